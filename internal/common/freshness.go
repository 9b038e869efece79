// Package common provides shared utilities for Stakd
package common

import "time"

// Freshness TTLs for cached market data
const (
	FreshnessPrices     = 5 * time.Minute
	FreshnessVolatility = 12 * time.Hour // daily closes move slowly
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}
