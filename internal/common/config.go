// Package common provides shared utilities for Stakd
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the root configuration structure
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Market      MarketConfig  `toml:"market"`
	Clients     ClientsConfig `toml:"clients"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds the storage area configuration
type StorageConfig struct {
	Vault  AreaConfig `toml:"vault"`
	Market AreaConfig `toml:"market"`
}

// AreaConfig configures one storage area
type AreaConfig struct {
	Path string `toml:"path"`
}

// MarketConfig controls the market data layer
type MarketConfig struct {
	RefreshInterval string   `toml:"refresh_interval"` // duration string, default "5m"
	Providers       []string `toml:"providers"`        // fallback order
	VolatilityDays  int      `toml:"volatility_days"`  // default lookback when settings omit one
}

// GetRefreshInterval parses and returns the price refresh interval.
func (c *MarketConfig) GetRefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// ClientsConfig holds external API client configuration
type ClientsConfig struct {
	Binance   BinanceConfig   `toml:"binance"`
	Coinbase  CoinbaseConfig  `toml:"coinbase"`
	Coingecko CoingeckoConfig `toml:"coingecko"`
	Gemini    GeminiConfig    `toml:"gemini"`
}

// BinanceConfig configures the Binance client
type BinanceConfig struct {
	BaseURL   string  `toml:"base_url"`
	RateLimit float64 `toml:"rate_limit"` // requests per second
	Timeout   string  `toml:"timeout"`
}

// CoinbaseConfig configures the Coinbase client
type CoinbaseConfig struct {
	BaseURL   string  `toml:"base_url"`
	RateLimit float64 `toml:"rate_limit"`
	Timeout   string  `toml:"timeout"`
}

// CoingeckoConfig configures the CoinGecko client
type CoingeckoConfig struct {
	BaseURL   string  `toml:"base_url"`
	APIKey    string  `toml:"api_key"` // demo key, optional
	RateLimit float64 `toml:"rate_limit"`
	Timeout   string  `toml:"timeout"`
}

// GeminiConfig configures the optional Gemini narrative client
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string `toml:"level"`
	Format   string `toml:"format"` // "console" or "json"
	FilePath string `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
		Storage: StorageConfig{
			Vault:  AreaConfig{Path: "data/vault"},
			Market: AreaConfig{Path: "data/market"},
		},
		Market: MarketConfig{
			RefreshInterval: "5m",
			Providers:       []string{"binance", "coinbase", "coingecko"},
			VolatilityDays:  30,
		},
		Clients: ClientsConfig{
			Binance: BinanceConfig{
				BaseURL:   "https://api.binance.com",
				RateLimit: 10,
				Timeout:   "30s",
			},
			Coinbase: CoinbaseConfig{
				BaseURL:   "https://api.coinbase.com",
				RateLimit: 5,
				Timeout:   "30s",
			},
			Coingecko: CoingeckoConfig{
				BaseURL:   "https://api.coingecko.com/api/v3",
				RateLimit: 0.5,
				Timeout:   "30s",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	normalizeProviders(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("STAKD_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("STAKD_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("STAKD_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("STAKD_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("STAKD_DATA_PATH"); path != "" {
		config.Storage.Vault.Path = filepath.Join(path, "vault")
		config.Storage.Market.Path = filepath.Join(path, "market")
	}

	if key := os.Getenv("STAKD_COINGECKO_API_KEY"); key != "" {
		config.Clients.Coingecko.APIKey = key
	}

	if key := os.Getenv("STAKD_GEMINI_API_KEY"); key != "" {
		config.Clients.Gemini.APIKey = key
	}
}

// normalizeProviders drops unknown provider names and restores the default
// order when the list comes out empty.
func normalizeProviders(config *Config) {
	known := map[string]bool{"binance": true, "coinbase": true, "coingecko": true}
	var providers []string
	for _, p := range config.Market.Providers {
		name := strings.ToLower(strings.TrimSpace(p))
		if known[name] {
			providers = append(providers, name)
		}
	}
	if len(providers) == 0 {
		providers = []string{"binance", "coinbase", "coingecko"}
	}
	config.Market.Providers = providers
}

// ParseTimeout parses a client timeout string, falling back to 30s.
func ParseTimeout(timeout string) time.Duration {
	d, err := time.ParseDuration(timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}
