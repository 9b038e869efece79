// Package interfaces defines service contracts for Stakd
package interfaces

import (
	"context"

	"github.com/stakd-me/stakd-sub000/internal/models"
)

// PriceSource fetches USD quotes for tracked tokens. Sources return what
// they can and omit the rest; the market service merges partial maps
// across the provider chain.
type PriceSource interface {
	// Name identifies the provider ("binance", "coinbase", "coingecko")
	Name() string

	// FetchPrices returns quotes keyed by CoinGecko id for the tokens the
	// provider can serve
	FetchPrices(ctx context.Context, tokens []models.TrackedToken) (models.PriceMap, error)
}

// HistoryProvider serves historical daily closes for volatility windows
type HistoryProvider interface {
	// DailyCloses returns up to days daily closing prices, oldest first
	DailyCloses(ctx context.Context, coingeckoID string, days int) ([]float64, error)
}

// Advisor writes short prose over engine output. Implementations must be
// safe to skip: callers treat errors and empty strings as "no narrative".
type Advisor interface {
	GenerateNarrative(ctx context.Context, prompt string) (string, error)
}
