package rebalance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stakd-me/stakd-sub000/internal/common"
	"github.com/stakd-me/stakd-sub000/internal/interfaces"
	"github.com/stakd-me/stakd-sub000/internal/models"
)

// Service implements RebalanceService
type Service struct {
	storage interfaces.StorageManager
	market  interfaces.MarketService
	logger  *common.Logger
	now     func() time.Time // injectable clock for testing
}

// NewService creates a new rebalance service
func NewService(storage interfaces.StorageManager, market interfaces.MarketService, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		market:  market,
		logger:  logger,
		now:     time.Now,
	}
}

var _ interfaces.RebalanceService = (*Service)(nil)

// Suggestions runs the configured strategy, or the override from opts,
// and returns the full suggestion set.
func (s *Service) Suggestions(ctx context.Context, opts interfaces.SuggestOptions) (*models.SuggestionsData, error) {
	vault, err := s.storage.VaultStore().LoadVault(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load vault: %w", err)
	}

	prices, err := s.market.Prices(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Price snapshot unavailable, rebalancing against zero values")
		prices = models.PriceMap{}
	}

	settings := ParseSettings(vault.Settings)
	strategy := settings.Strategy
	if strings.TrimSpace(opts.Strategy) != "" {
		strategy = models.ParseStrategy(opts.Strategy)
	}

	// Volatility is only an input to risk parity; skip the fetch for the
	// other strategies.
	var volatility models.VolatilityMap
	if strategy == models.StrategyRiskParity {
		volatility, err = s.market.Volatility(ctx, settings.RiskParityLookbackDays)
		if err != nil {
			// The strategy falls back to literal targets when any
			// volatility reading is missing.
			s.logger.Warn().Err(err).Msg("Volatility unavailable, risk parity falls back to literal targets")
			volatility = nil
		}
	}

	data := ComputeSuggestions(vault, prices, volatility, s.now(), opts.Strategy)

	s.logger.Info().
		Str("strategy", string(data.Strategy)).
		Int("targets", len(data.Targets)).
		Int("trades", data.Summary.TradeCount).
		Float64("total_volume", data.Summary.TotalVolume).
		Msg("Rebalance suggestions generated")

	return data, nil
}

// Alerts evaluates deviation and concentration conditions.
func (s *Service) Alerts(ctx context.Context) ([]models.Alert, error) {
	vault, err := s.storage.VaultStore().LoadVault(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load vault: %w", err)
	}

	prices, err := s.market.Prices(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Price snapshot unavailable, evaluating alerts against zero values")
		prices = models.PriceMap{}
	}

	return ComputeAlerts(vault, prices), nil
}
