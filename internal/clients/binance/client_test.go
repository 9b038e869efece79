package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stakd-me/stakd-sub000/internal/models"
)

func trackedTokens(pairs ...string) []models.TrackedToken {
	tokens := make([]models.TrackedToken, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		tokens = append(tokens, models.TrackedToken{Symbol: pairs[i], CoingeckoID: pairs[i+1]})
	}
	return tokens
}

func TestFetchPrices_ParsesTickers(t *testing.T) {
	// Binance serializes numbers as strings
	var capturedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"symbol":"BTCUSDT","lastPrice":"64230.50","priceChangePercent":"2.41"},
			{"symbol":"ETHUSDT","lastPrice":"3120.00","priceChangePercent":"-1.05"},
			{"symbol":"BNBUSDT","lastPrice":"590.10","priceChangePercent":"0.33"}
		]`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	prices, err := client.FetchPrices(context.Background(), trackedTokens("BTC", "bitcoin", "ETH", "ethereum"))
	if err != nil {
		t.Fatalf("FetchPrices failed: %v", err)
	}

	if capturedPath != "/api/v3/ticker/24hr" {
		t.Errorf("expected path /api/v3/ticker/24hr, got %s", capturedPath)
	}
	if len(prices) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(prices))
	}

	btc, ok := prices["bitcoin"]
	if !ok {
		t.Fatal("expected quote keyed by coingecko id bitcoin")
	}
	if btc.Usd != 64230.50 {
		t.Errorf("expected usd 64230.50, got %.2f", btc.Usd)
	}
	if btc.Change24h != 2.41 {
		t.Errorf("expected change 2.41, got %.2f", btc.Change24h)
	}
	if btc.Source != "binance" {
		t.Errorf("expected source binance, got %s", btc.Source)
	}
	if btc.UpdatedAt.IsZero() {
		t.Error("expected updatedAt to be set")
	}

	if prices["ethereum"].Change24h != -1.05 {
		t.Errorf("expected eth change -1.05, got %.2f", prices["ethereum"].Change24h)
	}
}

func TestFetchPrices_SkipsUnknownPairs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"symbol":"BTCUSDT","lastPrice":"64230.50","priceChangePercent":"2.41"}]`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	prices, err := client.FetchPrices(context.Background(), trackedTokens("BTC", "bitcoin", "FAKECOIN", "fakecoin"))
	if err != nil {
		t.Fatalf("FetchPrices failed: %v", err)
	}
	if len(prices) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(prices))
	}
	if _, ok := prices["fakecoin"]; ok {
		t.Error("expected fakecoin to be left for the next source")
	}
}

func TestFetchPrices_NormalizesSymbols(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"symbol":"BTCUSDT","lastPrice":"64230.50","priceChangePercent":"2.41"}]`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	prices, err := client.FetchPrices(context.Background(), trackedTokens(" btc ", "bitcoin"))
	if err != nil {
		t.Fatalf("FetchPrices failed: %v", err)
	}
	if _, ok := prices["bitcoin"]; !ok {
		t.Error("expected lowercase symbol to match BTCUSDT")
	}
}

func TestFetchPrices_SkipsUSDTWithoutRequest(t *testing.T) {
	// USDT is the quote currency, there is no USDTUSDT pair to ask for
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	prices, err := client.FetchPrices(context.Background(), trackedTokens("USDT", "tether"))
	if err != nil {
		t.Fatalf("FetchPrices failed: %v", err)
	}
	if len(prices) != 0 {
		t.Errorf("expected no quotes, got %d", len(prices))
	}
	if requests != 0 {
		t.Errorf("expected no request, got %d", requests)
	}
}

func TestFetchPrices_EmptyTokens(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	prices, err := client.FetchPrices(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchPrices failed: %v", err)
	}
	if len(prices) != 0 || requests != 0 {
		t.Errorf("expected empty result without a request, got %d quotes after %d requests", len(prices), requests)
	}
}

func TestFetchPrices_ZeroPriceSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"symbol":"BTCUSDT","lastPrice":"0","priceChangePercent":"0"}]`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	prices, err := client.FetchPrices(context.Background(), trackedTokens("BTC", "bitcoin"))
	if err != nil {
		t.Fatalf("FetchPrices failed: %v", err)
	}
	if len(prices) != 0 {
		t.Errorf("expected zero-priced ticker to be skipped, got %d quotes", len(prices))
	}
}

func TestFetchPrices_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"code":-1003,"msg":"Too many requests"}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.FetchPrices(context.Background(), trackedTokens("BTC", "bitcoin"))
	if err == nil {
		t.Fatal("expected error on non-200 response")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusTeapot {
		t.Errorf("expected status %d, got %d", http.StatusTeapot, apiErr.StatusCode)
	}
}

func TestFetchPrices_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.FetchPrices(context.Background(), trackedTokens("BTC", "bitcoin"))
	if err == nil {
		t.Fatal("expected error on invalid JSON")
	}
}
