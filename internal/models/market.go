// Package models defines data structures for Stakd
package models

import "time"

// PriceQuote is the USD price snapshot for one token
type PriceQuote struct {
	Usd       float64   `json:"usd"`
	Change24h float64   `json:"change24h"`           // percent, 0 when the source has none
	UpdatedAt time.Time `json:"updatedAt,omitempty"` // source timestamp when known
	Source    string    `json:"source,omitempty"`    // "binance", "coinbase" or "coingecko"
}

// PriceMap keys quotes by CoinGecko id
type PriceMap map[string]PriceQuote

// VolatilityPoint carries the historical volatility for one token
type VolatilityPoint struct {
	Volatility float64 `json:"volatility"` // annualized, percent
}

// VolatilityMap keys volatility by CoinGecko id
type VolatilityMap map[string]VolatilityPoint

// TrackedToken is one symbol + CoinGecko id pair the market layer refreshes
type TrackedToken struct {
	Symbol      string `json:"symbol"`
	CoingeckoID string `json:"coingeckoId"`
}

// PriceSnapshot is the persisted price cache document
type PriceSnapshot struct {
	Prices    PriceMap  `json:"prices"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// VolatilitySnapshot is the persisted volatility cache document
type VolatilitySnapshot struct {
	Volatility   VolatilityMap `json:"volatility"`
	LookbackDays int           `json:"lookbackDays"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}
