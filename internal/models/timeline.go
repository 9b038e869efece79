// Package models defines data structures for Stakd
package models

import "time"

// RealizedPLPoint is one sell event on the chronological realized P&L
// timeline. Average cost is taken from the running pool at sell time, so
// this series and Holding.RealizedPL (final-average) can disagree on
// ledgers where basis moved between sells.
type RealizedPLPoint struct {
	Date         time.Time `json:"date"`
	TokenSymbol  string    `json:"tokenSymbol"`
	Quantity     float64   `json:"quantity"`
	SellPrice    float64   `json:"sellPrice"` // net of fee
	AvgCost      float64   `json:"avgCost"`   // pool average at sell time
	PL           float64   `json:"pl"`
	CumulativePL float64   `json:"cumulativePL"`
}

// RealizedTimeline is the full chronological realized P&L series
type RealizedTimeline struct {
	Timeline        []RealizedPLPoint `json:"timeline"`
	TotalRealizedPL float64           `json:"totalRealizedPL"`
}
