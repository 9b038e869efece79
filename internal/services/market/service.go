// Package market maintains the price and volatility snapshots behind
// valuation and rebalancing.
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/stakd-me/stakd-sub000/internal/common"
	"github.com/stakd-me/stakd-sub000/internal/interfaces"
	"github.com/stakd-me/stakd-sub000/internal/models"
)

const (
	breakerCooldown  = 60 * time.Second
	breakerThreshold = 3 // consecutive failures before the breaker opens
)

// provider pairs a price source with its circuit breaker
type provider struct {
	source  interfaces.PriceSource
	breaker *gobreaker.CircuitBreaker
}

// Service implements MarketService
type Service struct {
	storage   interfaces.StorageManager
	providers []provider
	history   interfaces.HistoryProvider
	logger    *common.Logger
	group     singleflight.Group
	now       func() time.Time
}

// NewService creates a new market service. Sources are tried in the given
// order; history may be nil, which disables volatility refreshes.
func NewService(
	storage interfaces.StorageManager,
	sources []interfaces.PriceSource,
	history interfaces.HistoryProvider,
	logger *common.Logger,
) *Service {
	s := &Service{
		storage: storage,
		history: history,
		logger:  logger,
		now:     time.Now,
	}
	for _, source := range sources {
		s.providers = append(s.providers, provider{
			source:  source,
			breaker: newBreaker(source.Name(), logger),
		})
	}
	return s
}

func newBreaker(name string, logger *common.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Price provider breaker state changed")
		},
	})
}

// Tracked resolves the symbol/id pairs the vault currently references.
func (s *Service) Tracked(ctx context.Context) ([]models.TrackedToken, error) {
	vault, err := s.storage.VaultStore().LoadVault(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load vault: %w", err)
	}
	return vault.TrackedTokens(), nil
}

// Prices returns the current snapshot, refreshing when stale.
func (s *Service) Prices(ctx context.Context) (models.PriceMap, error) {
	snapshot, err := s.storage.MarketStore().LoadPriceSnapshot(ctx)
	if err == nil && common.IsFresh(snapshot.UpdatedAt, common.FreshnessPrices) {
		return snapshot.Prices, nil
	}
	return s.Refresh(ctx, false)
}

// Refresh fetches prices through the provider chain. Concurrent calls
// collapse into one fetch; when force is false a fresh cache is
// returned as-is.
func (s *Service) Refresh(ctx context.Context, force bool) (models.PriceMap, error) {
	result, err, _ := s.group.Do("prices", func() (interface{}, error) {
		return s.refreshPrices(ctx, force)
	})
	if err != nil {
		return nil, err
	}
	return result.(models.PriceMap), nil
}

func (s *Service) refreshPrices(ctx context.Context, force bool) (models.PriceMap, error) {
	previous, _ := s.storage.MarketStore().LoadPriceSnapshot(ctx)
	if !force && previous != nil && common.IsFresh(previous.UpdatedAt, common.FreshnessPrices) {
		return previous.Prices, nil
	}

	tracked, err := s.Tracked(ctx)
	if err != nil {
		return nil, err
	}

	if len(tracked) == 0 {
		empty := models.PriceMap{}
		s.savePrices(ctx, empty)
		return empty, nil
	}

	merged := s.fetchChain(ctx, tracked)

	// Stale beats empty: a round where every provider failed must not
	// wipe the last good snapshot.
	if len(merged) == 0 && previous != nil && len(previous.Prices) > 0 {
		s.logger.Warn().Msg("All price providers failed, keeping previous snapshot")
		return previous.Prices, nil
	}

	// Tokens nothing priced this round keep their previous quote.
	if previous != nil {
		for _, token := range tracked {
			if _, ok := merged[token.CoingeckoID]; ok {
				continue
			}
			if quote, ok := previous.Prices[token.CoingeckoID]; ok {
				merged[token.CoingeckoID] = quote
			}
		}
	}

	s.savePrices(ctx, merged)
	s.logger.Info().Int("tracked", len(tracked)).Int("priced", len(merged)).Msg("Price snapshot refreshed")
	return merged, nil
}

func (s *Service) savePrices(ctx context.Context, prices models.PriceMap) {
	snapshot := &models.PriceSnapshot{Prices: prices, UpdatedAt: s.now().UTC()}
	if err := s.storage.MarketStore().SavePriceSnapshot(ctx, snapshot); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist price snapshot")
	}
}

// fetchChain walks the providers in order, each one asked only for the
// tokens still missing, and merges the partial maps.
func (s *Service) fetchChain(ctx context.Context, tracked []models.TrackedToken) models.PriceMap {
	merged := models.PriceMap{}
	missing := tracked

	for _, p := range s.providers {
		if len(missing) == 0 {
			break
		}

		tokens := missing
		result, err := p.breaker.Execute(func() (interface{}, error) {
			return p.source.FetchPrices(ctx, tokens)
		})
		if err != nil {
			s.logger.Warn().Str("provider", p.source.Name()).Err(err).Msg("Price provider failed")
			continue
		}

		for id, quote := range result.(models.PriceMap) {
			if _, ok := merged[id]; !ok {
				merged[id] = quote
			}
		}

		still := make([]models.TrackedToken, 0, len(missing))
		for _, token := range missing {
			if _, ok := merged[token.CoingeckoID]; !ok {
				still = append(still, token)
			}
		}
		missing = still
	}

	return merged
}

// Volatility returns annualized volatility over the lookback window,
// refreshing when the cache is stale or was built for another window.
func (s *Service) Volatility(ctx context.Context, lookbackDays int) (models.VolatilityMap, error) {
	if lookbackDays < 2 {
		lookbackDays = 2
	}

	snapshot, err := s.storage.MarketStore().LoadVolatilitySnapshot(ctx)
	if err == nil && snapshot.LookbackDays == lookbackDays && common.IsFresh(snapshot.UpdatedAt, common.FreshnessVolatility) {
		return snapshot.Volatility, nil
	}

	if s.history == nil {
		if err == nil {
			return snapshot.Volatility, nil
		}
		return models.VolatilityMap{}, nil
	}

	key := fmt.Sprintf("volatility:%d", lookbackDays)
	result, refreshErr, _ := s.group.Do(key, func() (interface{}, error) {
		return s.refreshVolatility(ctx, lookbackDays)
	})
	if refreshErr != nil {
		return nil, refreshErr
	}
	return result.(models.VolatilityMap), nil
}

func (s *Service) refreshVolatility(ctx context.Context, lookbackDays int) (models.VolatilityMap, error) {
	previous, _ := s.storage.MarketStore().LoadVolatilitySnapshot(ctx)
	if previous != nil && previous.LookbackDays == lookbackDays && common.IsFresh(previous.UpdatedAt, common.FreshnessVolatility) {
		return previous.Volatility, nil
	}

	tracked, err := s.Tracked(ctx)
	if err != nil {
		return nil, err
	}

	volatility := models.VolatilityMap{}
	for _, token := range tracked {
		closes, err := s.history.DailyCloses(ctx, token.CoingeckoID, lookbackDays)
		if err != nil {
			s.logger.Warn().Str("id", token.CoingeckoID).Err(err).Msg("Daily closes unavailable")
			continue
		}
		if vol, ok := annualizedVolatility(closes); ok {
			volatility[token.CoingeckoID] = models.VolatilityPoint{Volatility: vol}
		}
	}

	if len(tracked) > 0 && len(volatility) == 0 && previous != nil && len(previous.Volatility) > 0 {
		s.logger.Warn().Msg("History provider failed, keeping previous volatility snapshot")
		return previous.Volatility, nil
	}

	snapshot := &models.VolatilitySnapshot{
		Volatility:   volatility,
		LookbackDays: lookbackDays,
		UpdatedAt:    s.now().UTC(),
	}
	if err := s.storage.MarketStore().SaveVolatilitySnapshot(ctx, snapshot); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist volatility snapshot")
	}

	s.logger.Info().Int("lookback_days", lookbackDays).Int("tokens", len(volatility)).Msg("Volatility snapshot refreshed")
	return volatility, nil
}

// Ensure Service implements MarketService
var _ interfaces.MarketService = (*Service)(nil)
