package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakd-me/stakd-sub000/internal/models"
)

// seedPrices saves a fresh price snapshot so reads never hit a provider.
func seedPrices(t *testing.T, srv *Server, prices models.PriceMap) {
	t.Helper()
	err := srv.app.Storage.MarketStore().SavePriceSnapshot(context.Background(), &models.PriceSnapshot{
		Prices:    prices,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("SavePriceSnapshot failed: %v", err)
	}
}

func TestHandleHoldings_ReturnsPricedPositions(t *testing.T) {
	srv := newTestServerWithStorage(t)

	body := jsonBody(t, map[string]interface{}{
		"tokenSymbol":  "BTC",
		"type":         "buy",
		"quantity":     2,
		"pricePerUnit": 30000,
		"totalCost":    60000,
		"coingeckoId":  "bitcoin",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/vault/transactions", body)
	rec := httptest.NewRecorder()
	srv.handleTransactions(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	seedPrices(t, srv, models.PriceMap{
		"bitcoin": {Usd: 40000, Source: "binance"},
	})

	getRec := httptest.NewRecorder()
	srv.handleHoldings(getRec, httptest.NewRequest(http.MethodGet, "/api/portfolio/holdings", nil))

	require.Equal(t, http.StatusOK, getRec.Code, getRec.Body.String())
	var resp struct {
		Holdings []models.Holding `json:"holdings"`
		Count    int              `json:"count"`
	}
	require.NoError(t, json.NewDecoder(getRec.Body).Decode(&resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "BTC", resp.Holdings[0].TokenSymbol)
	assert.Equal(t, 2.0, resp.Holdings[0].CurrentQty)
	assert.Equal(t, 80000.0, resp.Holdings[0].CurrentValue)
}

func TestHandleSummary_ReturnsTotals(t *testing.T) {
	srv := newTestServerWithStorage(t)

	body := jsonBody(t, map[string]interface{}{
		"tokenSymbol":  "ETH",
		"type":         "buy",
		"quantity":     10,
		"pricePerUnit": 2000,
		"coingeckoId":  "ethereum",
	})
	rec := httptest.NewRecorder()
	srv.handleTransactions(rec, httptest.NewRequest(http.MethodPost, "/api/vault/transactions", body))
	require.Equal(t, http.StatusCreated, rec.Code)

	seedPrices(t, srv, models.PriceMap{
		"ethereum": {Usd: 2500},
	})

	getRec := httptest.NewRecorder()
	srv.handleSummary(getRec, httptest.NewRequest(http.MethodGet, "/api/portfolio/summary", nil))

	require.Equal(t, http.StatusOK, getRec.Code, getRec.Body.String())
	var summary models.PortfolioSummary
	require.NoError(t, json.NewDecoder(getRec.Body).Decode(&summary))
	assert.Equal(t, 25000.0, summary.TotalValueUsd)
	assert.Equal(t, 100.0, summary.TokenAllocations["ETH"])
}

func TestHandleTimeline_EmptyVault(t *testing.T) {
	srv := newTestServerWithStorage(t)
	seedPrices(t, srv, models.PriceMap{})

	rec := httptest.NewRecorder()
	srv.handleTimeline(rec, httptest.NewRequest(http.MethodGet, "/api/portfolio/timeline", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var timeline models.RealizedTimeline
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&timeline))
	assert.Empty(t, timeline.Timeline)
	assert.Equal(t, 0.0, timeline.TotalRealizedPL)
}

func TestHandleHistory_ReturnsSnapshots(t *testing.T) {
	srv := newTestServerWithStorage(t)
	seedPrices(t, srv, models.PriceMap{})

	_, err := srv.app.PortfolioService.CaptureSnapshot(context.Background())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.handleHistory(rec, httptest.NewRequest(http.MethodGet, "/api/portfolio/history", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Snapshots []models.PortfolioSnapshot `json:"snapshots"`
		Count     int                        `json:"count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), resp.Snapshots[0].Date)
}

func TestHandleHistory_InvalidFromDate(t *testing.T) {
	srv := newTestServerWithStorage(t)

	rec := httptest.NewRecorder()
	srv.handleHistory(rec, httptest.NewRequest(http.MethodGet, "/api/portfolio/history?from=21-01-05", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid from date")
}

func TestHandleHistory_BoundsFilter(t *testing.T) {
	srv := newTestServerWithStorage(t)

	ctx := context.Background()
	for _, snap := range []models.PortfolioSnapshot{
		{Date: "2026-01-01", TotalValueUsd: 100},
		{Date: "2026-02-01", TotalValueUsd: 200},
		{Date: "2026-03-01", TotalValueUsd: 300},
	} {
		s := snap
		require.NoError(t, srv.app.Storage.VaultStore().SaveSnapshot(ctx, &s))
	}

	rec := httptest.NewRecorder()
	srv.handleHistory(rec, httptest.NewRequest(http.MethodGet, "/api/portfolio/history?from=2026-01-15&to=2026-02-15", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Snapshots []models.PortfolioSnapshot `json:"snapshots"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Snapshots, 1)
	assert.Equal(t, "2026-02-01", resp.Snapshots[0].Date)
}

func TestHandleHoldings_MethodNotAllowed(t *testing.T) {
	srv := newTestServerWithStorage(t)

	rec := httptest.NewRecorder()
	srv.handleHoldings(rec, httptest.NewRequest(http.MethodPost, "/api/portfolio/holdings", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET", rec.Header().Get("Allow"))
}
