// Package models defines data structures for Stakd
package models

import "time"

// Holding is the aggregated position for one symbol + CoinGecko id pair.
// Quantities accumulate across the full ledger; currentQty may be negative
// when the ledger is incomplete and is clamped to zero for valuation only.
type Holding struct {
	TokenSymbol         string  `json:"tokenSymbol"`
	TokenName           string  `json:"tokenName,omitempty"`
	CoingeckoID         string  `json:"coingeckoId,omitempty"`
	CurrentQty          float64 `json:"currentQty"` // buys + receives − sells − sends, pre-clamp
	BuyQty              float64 `json:"buyQty"`
	SellQty             float64 `json:"sellQty"`
	ReceiveQty          float64 `json:"receiveQty"`
	SendQty             float64 `json:"sendQty"`
	ManualQty           float64 `json:"manualQty"` // included in currentQty, excluded from basis
	TotalBuyCost        float64 `json:"totalBuyCost"`     // Σ quantity×price + fee over buys
	TotalSellRevenue    float64 `json:"totalSellRevenue"` // Σ quantity×price − fee over sells
	TotalFees           float64 `json:"totalFees"`        // every transaction type
	AvgCostBasis        float64 `json:"avgCostBasis"`     // totalBuyCost / buyQty, weighted average
	CurrentPrice        float64 `json:"currentPrice"`     // 0 when no price is known
	CurrentValue        float64 `json:"currentValue"`
	UnrealizedPL        float64 `json:"unrealizedPL"`
	UnrealizedPLPercent float64 `json:"unrealizedPLPercent"`
	RealizedPL          float64 `json:"realizedPL"` // final-average method, see RealizedTimeline for the chronological one
}

// PortfolioSummary is the valuation roll-up over all holdings
type PortfolioSummary struct {
	TotalValueUsd    float64            `json:"totalValueUsd"`
	SymbolValues     map[string]float64 `json:"symbolValues"`     // symbol → USD value, ids with one symbol merged
	TokenAllocations map[string]float64 `json:"tokenAllocations"` // symbol → percent of total, 2dp, display only
	UpdatedAt        time.Time          `json:"updatedAt"`
}

// PortfolioSnapshot is one daily value capture for the history endpoint
type PortfolioSnapshot struct {
	Date          string             `json:"date" badgerhold:"key"` // YYYY-MM-DD
	TotalValueUsd float64            `json:"totalValueUsd"`
	SymbolValues  map[string]float64 `json:"symbolValues"`
	CapturedAt    time.Time          `json:"capturedAt"`
}
