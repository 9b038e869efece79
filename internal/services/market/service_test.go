package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakd-me/stakd-sub000/internal/common"
	"github.com/stakd-me/stakd-sub000/internal/interfaces"
	"github.com/stakd-me/stakd-sub000/internal/models"
	"github.com/stakd-me/stakd-sub000/internal/storage"
)

// stubSource serves canned quotes for whatever it is asked about and
// counts how often the chain reaches it.
type stubSource struct {
	name   string
	prices models.PriceMap
	err    error
	calls  int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) FetchPrices(ctx context.Context, tokens []models.TrackedToken) (models.PriceMap, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := models.PriceMap{}
	for _, token := range tokens {
		if quote, ok := s.prices[token.CoingeckoID]; ok {
			out[token.CoingeckoID] = quote
		}
	}
	return out, nil
}

// stubHistory serves canned daily closes and records the requested window.
type stubHistory struct {
	closes   map[string][]float64
	err      error
	calls    int
	lastDays int
}

func (s *stubHistory) DailyCloses(ctx context.Context, coingeckoID string, days int) ([]float64, error) {
	s.calls++
	s.lastDays = days
	if s.err != nil {
		return nil, s.err
	}
	return s.closes[coingeckoID], nil
}

func newMarketTestService(t *testing.T, sources []interfaces.PriceSource, history interfaces.HistoryProvider) (*Service, interfaces.StorageManager) {
	t.Helper()

	cfg := common.NewDefaultConfig()
	cfg.Storage.Vault.Path = t.TempDir()
	cfg.Storage.Market.Path = t.TempDir()

	logger := common.NewSilentLogger()
	manager, err := storage.NewManager(logger, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	return NewService(manager, sources, history, logger), manager
}

func seedTrackedToken(t *testing.T, manager interfaces.StorageManager, symbol, coingeckoID string) {
	t.Helper()
	err := manager.VaultStore().SaveTransaction(context.Background(), &models.Transaction{
		ID:           "tx-" + symbol,
		TokenSymbol:  symbol,
		Type:         models.TransactionBuy,
		Quantity:     models.FlexFloat(1),
		CoingeckoID:  coingeckoID,
		TransactedAt: time.Now().UTC(),
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestRefreshSkipsProvidersWhenNothingTracked(t *testing.T) {
	source := &stubSource{name: "binance"}
	svc, _ := newMarketTestService(t, []interfaces.PriceSource{source}, nil)

	prices, err := svc.Refresh(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, prices)
	assert.Equal(t, 0, source.calls, "empty vault must not hit any provider")
}

func TestRefreshFirstProviderWins(t *testing.T) {
	first := &stubSource{name: "binance", prices: models.PriceMap{
		"bitcoin": {Usd: 50000, Source: "binance"},
	}}
	second := &stubSource{name: "coinbase", prices: models.PriceMap{
		"bitcoin": {Usd: 49000, Source: "coinbase"},
	}}
	svc, manager := newMarketTestService(t, []interfaces.PriceSource{first, second}, nil)
	seedTrackedToken(t, manager, "BTC", "bitcoin")

	prices, err := svc.Refresh(context.Background(), true)
	require.NoError(t, err)
	require.Contains(t, prices, "bitcoin")
	assert.InDelta(t, 50000.0, prices["bitcoin"].Usd, 0.001)
	assert.Equal(t, "binance", prices["bitcoin"].Source)
	assert.Equal(t, 0, second.calls, "nothing left to ask the second provider for")
}

func TestRefreshFallsBackForMissingTokens(t *testing.T) {
	first := &stubSource{name: "binance", prices: models.PriceMap{
		"bitcoin": {Usd: 50000, Source: "binance"},
	}}
	second := &stubSource{name: "coingecko", prices: models.PriceMap{
		"bitcoin":  {Usd: 49000, Source: "coingecko"},
		"ethereum": {Usd: 2500, Source: "coingecko"},
	}}
	svc, manager := newMarketTestService(t, []interfaces.PriceSource{first, second}, nil)
	seedTrackedToken(t, manager, "BTC", "bitcoin")
	seedTrackedToken(t, manager, "ETH", "ethereum")

	prices, err := svc.Refresh(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, "binance", prices["bitcoin"].Source, "first provider's quote survives the merge")
	assert.Equal(t, "coingecko", prices["ethereum"].Source)
	assert.Equal(t, 1, second.calls)
}

func TestRefreshKeepsPreviousSnapshotWhenAllProvidersFail(t *testing.T) {
	source := &stubSource{name: "binance", err: errors.New("HTTP 502")}
	svc, manager := newMarketTestService(t, []interfaces.PriceSource{source}, nil)
	seedTrackedToken(t, manager, "BTC", "bitcoin")

	previous := &models.PriceSnapshot{
		Prices:    models.PriceMap{"bitcoin": {Usd: 48000, Source: "binance"}},
		UpdatedAt: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, manager.MarketStore().SavePriceSnapshot(context.Background(), previous))

	prices, err := svc.Refresh(context.Background(), true)
	require.NoError(t, err)
	require.Contains(t, prices, "bitcoin")
	assert.InDelta(t, 48000.0, prices["bitcoin"].Usd, 0.001)
	assert.Equal(t, 1, source.calls)
}

func TestRefreshCarriesForwardUnpricedTokens(t *testing.T) {
	source := &stubSource{name: "binance", prices: models.PriceMap{
		"bitcoin": {Usd: 51000, Source: "binance"},
	}}
	svc, manager := newMarketTestService(t, []interfaces.PriceSource{source}, nil)
	seedTrackedToken(t, manager, "BTC", "bitcoin")
	seedTrackedToken(t, manager, "ETH", "ethereum")

	previous := &models.PriceSnapshot{
		Prices:    models.PriceMap{"ethereum": {Usd: 2400, Source: "coingecko"}},
		UpdatedAt: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, manager.MarketStore().SavePriceSnapshot(context.Background(), previous))

	prices, err := svc.Refresh(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.InDelta(t, 51000.0, prices["bitcoin"].Usd, 0.001)
	assert.InDelta(t, 2400.0, prices["ethereum"].Usd, 0.001, "unpriced token keeps its previous quote")
}

func TestPricesServesFreshSnapshotWithoutFetching(t *testing.T) {
	source := &stubSource{name: "binance", prices: models.PriceMap{
		"bitcoin": {Usd: 52000, Source: "binance"},
	}}
	svc, manager := newMarketTestService(t, []interfaces.PriceSource{source}, nil)
	seedTrackedToken(t, manager, "BTC", "bitcoin")

	fresh := &models.PriceSnapshot{
		Prices:    models.PriceMap{"bitcoin": {Usd: 50500, Source: "coinbase"}},
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, manager.MarketStore().SavePriceSnapshot(context.Background(), fresh))

	prices, err := svc.Prices(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 50500.0, prices["bitcoin"].Usd, 0.001)
	assert.Equal(t, 0, source.calls, "fresh cache must not hit providers")
}

func TestPricesRefreshesStaleSnapshot(t *testing.T) {
	source := &stubSource{name: "binance", prices: models.PriceMap{
		"bitcoin": {Usd: 53000, Source: "binance"},
	}}
	svc, manager := newMarketTestService(t, []interfaces.PriceSource{source}, nil)
	seedTrackedToken(t, manager, "BTC", "bitcoin")

	stale := &models.PriceSnapshot{
		Prices:    models.PriceMap{"bitcoin": {Usd: 50500, Source: "coinbase"}},
		UpdatedAt: time.Now().UTC().Add(-10 * time.Minute),
	}
	require.NoError(t, manager.MarketStore().SavePriceSnapshot(context.Background(), stale))

	prices, err := svc.Prices(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 53000.0, prices["bitcoin"].Usd, 0.001)
	assert.Equal(t, 1, source.calls)
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	source := &stubSource{name: "binance", err: errors.New("connection refused")}
	svc, manager := newMarketTestService(t, []interfaces.PriceSource{source}, nil)
	seedTrackedToken(t, manager, "BTC", "bitcoin")

	for i := 0; i < 4; i++ {
		_, err := svc.Refresh(context.Background(), true)
		require.NoError(t, err, "provider failures degrade, they never error the refresh")
	}

	// Three consecutive failures open the breaker; the fourth round skips
	// the provider entirely.
	assert.Equal(t, 3, source.calls)
}

func TestTrackedResolvesVaultSymbols(t *testing.T) {
	svc, manager := newMarketTestService(t, nil, nil)
	seedTrackedToken(t, manager, "ETH", "ethereum")
	seedTrackedToken(t, manager, "BTC", "bitcoin")

	tracked, err := svc.Tracked(context.Background())
	require.NoError(t, err)
	require.Len(t, tracked, 2)
	assert.Equal(t, "BTC", tracked[0].Symbol, "tracked tokens sort by symbol")
	assert.Equal(t, "bitcoin", tracked[0].CoingeckoID)
	assert.Equal(t, "ETH", tracked[1].Symbol)
}

func TestVolatilityComputesFromDailyCloses(t *testing.T) {
	history := &stubHistory{closes: map[string][]float64{
		"bitcoin": {100, 102, 99, 104, 101, 103, 100},
	}}
	svc, manager := newMarketTestService(t, nil, history)
	seedTrackedToken(t, manager, "BTC", "bitcoin")

	vol, err := svc.Volatility(context.Background(), 30)
	require.NoError(t, err)
	require.Contains(t, vol, "bitcoin")
	assert.Greater(t, vol["bitcoin"].Volatility, 0.0)

	snapshot, err := manager.MarketStore().LoadVolatilitySnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30, snapshot.LookbackDays)
	assert.Equal(t, 30, history.lastDays)
}

func TestVolatilityNilHistoryServesCacheOrEmpty(t *testing.T) {
	svc, manager := newMarketTestService(t, nil, nil)
	seedTrackedToken(t, manager, "BTC", "bitcoin")

	vol, err := svc.Volatility(context.Background(), 30)
	require.NoError(t, err)
	assert.Empty(t, vol)

	// A cached snapshot is served even when stale.
	cached := &models.VolatilitySnapshot{
		Volatility:   models.VolatilityMap{"bitcoin": {Volatility: 42.5}},
		LookbackDays: 30,
		UpdatedAt:    time.Now().UTC().Add(-48 * time.Hour),
	}
	require.NoError(t, manager.MarketStore().SaveVolatilitySnapshot(context.Background(), cached))

	vol, err = svc.Volatility(context.Background(), 30)
	require.NoError(t, err)
	assert.InDelta(t, 42.5, vol["bitcoin"].Volatility, 0.001)
}

func TestVolatilityWindowChangeForcesRefresh(t *testing.T) {
	history := &stubHistory{closes: map[string][]float64{
		"bitcoin": {100, 105, 98, 103, 99},
	}}
	svc, manager := newMarketTestService(t, nil, history)
	seedTrackedToken(t, manager, "BTC", "bitcoin")

	fresh := &models.VolatilitySnapshot{
		Volatility:   models.VolatilityMap{"bitcoin": {Volatility: 10}},
		LookbackDays: 30,
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, manager.MarketStore().SaveVolatilitySnapshot(context.Background(), fresh))

	_, err := svc.Volatility(context.Background(), 60)
	require.NoError(t, err)
	assert.Equal(t, 1, history.calls, "a different window invalidates the cache")

	snapshot, err := manager.MarketStore().LoadVolatilitySnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 60, snapshot.LookbackDays)
}

func TestVolatilityClampsTinyWindows(t *testing.T) {
	history := &stubHistory{closes: map[string][]float64{
		"bitcoin": {100, 101, 102},
	}}
	svc, manager := newMarketTestService(t, nil, history)
	seedTrackedToken(t, manager, "BTC", "bitcoin")

	_, err := svc.Volatility(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, history.lastDays, "lookback windows below two days clamp to two")
}
