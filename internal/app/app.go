// Package app wires configuration, storage, clients, services, and the
// websocket hub into the shared core used by cmd/stakd-server.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/stakd-me/stakd-sub000/internal/clients/binance"
	"github.com/stakd-me/stakd-sub000/internal/clients/coinbase"
	"github.com/stakd-me/stakd-sub000/internal/clients/coingecko"
	"github.com/stakd-me/stakd-sub000/internal/clients/gemini"
	"github.com/stakd-me/stakd-sub000/internal/common"
	"github.com/stakd-me/stakd-sub000/internal/interfaces"
	"github.com/stakd-me/stakd-sub000/internal/realtime"
	"github.com/stakd-me/stakd-sub000/internal/services/market"
	"github.com/stakd-me/stakd-sub000/internal/services/portfolio"
	"github.com/stakd-me/stakd-sub000/internal/services/rebalance"
	"github.com/stakd-me/stakd-sub000/internal/services/report"
	"github.com/stakd-me/stakd-sub000/internal/services/vault"
	"github.com/stakd-me/stakd-sub000/internal/storage"
)

// App holds all initialized services, clients, and the websocket hub.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	MarketService    interfaces.MarketService
	PortfolioService interfaces.PortfolioService
	RebalanceService interfaces.RebalanceService
	VaultService     interfaces.VaultService
	ReportService    interfaces.ReportService
	Hub              *realtime.Hub
	StartupTime      time.Time

	cron            *cron.Cron
	schedulerCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, clients, services, and the hub.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	// Get binary directory for self-contained operation
	binDir := getBinaryDir()

	// Load configuration - check provided path, STAKD_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("STAKD_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "stakd.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/stakd.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage paths to the binary directory
	if config.Storage.Vault.Path != "" && !filepath.IsAbs(config.Storage.Vault.Path) {
		config.Storage.Vault.Path = filepath.Join(binDir, config.Storage.Vault.Path)
	}
	if config.Storage.Market.Path != "" && !filepath.IsAbs(config.Storage.Market.Path) {
		config.Storage.Market.Path = filepath.Join(binDir, config.Storage.Market.Path)
	}

	// Resolve relative log file path to the binary directory
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	// Initialize logger
	logger := common.NewLoggerFromConfig(config.Logging)

	// Initialize storage
	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Initialize price sources in configured fallback order. The CoinGecko
	// client is created regardless: it doubles as the history provider
	// behind volatility windows.
	coingeckoClient := coingecko.NewClient(
		coingecko.WithBaseURL(config.Clients.Coingecko.BaseURL),
		coingecko.WithAPIKey(config.Clients.Coingecko.APIKey),
		coingecko.WithLogger(logger),
		coingecko.WithRateLimit(config.Clients.Coingecko.RateLimit),
		coingecko.WithTimeout(common.ParseTimeout(config.Clients.Coingecko.Timeout)),
	)

	var sources []interfaces.PriceSource
	for _, name := range config.Market.Providers {
		switch name {
		case "binance":
			sources = append(sources, binance.NewClient(
				binance.WithBaseURL(config.Clients.Binance.BaseURL),
				binance.WithLogger(logger),
				binance.WithRateLimit(config.Clients.Binance.RateLimit),
				binance.WithTimeout(common.ParseTimeout(config.Clients.Binance.Timeout)),
			))
		case "coinbase":
			sources = append(sources, coinbase.NewClient(
				coinbase.WithBaseURL(config.Clients.Coinbase.BaseURL),
				coinbase.WithLogger(logger),
				coinbase.WithRateLimit(config.Clients.Coinbase.RateLimit),
				coinbase.WithTimeout(common.ParseTimeout(config.Clients.Coinbase.Timeout)),
			))
		case "coingecko":
			sources = append(sources, coingeckoClient)
		}
	}

	// Optional Gemini advisor for report narratives
	var advisor interfaces.Advisor
	if key := config.Clients.Gemini.APIKey; key != "" {
		geminiClient, err := gemini.NewClient(context.Background(), key,
			gemini.WithLogger(logger),
			gemini.WithModel(config.Clients.Gemini.Model),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client - reports render without narrative")
		} else {
			advisor = geminiClient
		}
	}

	// Initialize services
	marketService := market.NewService(storageManager, sources, coingeckoClient, logger)
	portfolioService := portfolio.NewService(storageManager, marketService, logger)
	rebalanceService := rebalance.NewService(storageManager, marketService, logger)
	vaultService := vault.NewService(storageManager, logger)
	reportService := report.NewService(portfolioService, rebalanceService, storageManager, advisor, logger)

	hub := realtime.NewHub(logger)

	a := &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		MarketService:    marketService,
		PortfolioService: portfolioService,
		RebalanceService: rebalanceService,
		VaultService:     vaultService,
		ReportService:    reportService,
		Hub:              hub,
		StartupTime:      startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// Close releases all resources held by the App.
// Shutdown order: cancel scheduler, stop cron, stop hub, close storage.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
	if a.cron != nil {
		a.cron.Stop()
		a.cron = nil
	}
	if a.Hub != nil {
		a.Hub.Stop()
	}
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}
