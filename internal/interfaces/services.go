// Package interfaces defines service contracts for Stakd
package interfaces

import (
	"context"

	"github.com/stakd-me/stakd-sub000/internal/models"
)

// PortfolioService computes holdings and valuation from the vault
type PortfolioService interface {
	// Holdings aggregates the full ledger into per-token positions priced
	// at the current snapshot
	Holdings(ctx context.Context) ([]models.Holding, error)

	// Summary rolls holdings up into portfolio totals and allocations
	Summary(ctx context.Context) (*models.PortfolioSummary, error)

	// RealizedTimeline replays the ledger chronologically and reports
	// realized P&L per sell event
	RealizedTimeline(ctx context.Context) (*models.RealizedTimeline, error)

	// CaptureSnapshot records today's portfolio value for the history series
	CaptureSnapshot(ctx context.Context) (*models.PortfolioSnapshot, error)

	// History returns stored daily snapshots, optionally bounded by
	// YYYY-MM-DD dates (empty string means unbounded)
	History(ctx context.Context, from, to string) ([]models.PortfolioSnapshot, error)
}

// SuggestOptions configures a suggestion run
type SuggestOptions struct {
	Strategy string // override; empty uses the vault's rebalanceStrategy setting
}

// RebalanceService produces rebalance advice from the vault
type RebalanceService interface {
	// Suggestions runs the configured (or overridden) strategy and returns
	// the full suggestion set with summary and execution plan
	Suggestions(ctx context.Context, opts SuggestOptions) (*models.SuggestionsData, error)

	// Alerts evaluates deviation and concentration conditions independent
	// of the active strategy
	Alerts(ctx context.Context) ([]models.Alert, error)
}

// MarketService maintains price and volatility snapshots for tracked tokens
type MarketService interface {
	// Prices returns the current snapshot, refreshing when stale
	Prices(ctx context.Context) (models.PriceMap, error)

	// Refresh fetches prices through the provider chain. When force is
	// false a fresh cache is returned as-is.
	Refresh(ctx context.Context, force bool) (models.PriceMap, error)

	// Volatility returns annualized volatility over the lookback window,
	// refreshing when stale
	Volatility(ctx context.Context, lookbackDays int) (models.VolatilityMap, error)

	// Tracked resolves the symbol/id pairs the vault currently references
	Tracked(ctx context.Context) ([]models.TrackedToken, error)
}

// VaultService manages the user dataset and its import/export
type VaultService interface {
	GetVault(ctx context.Context) (*models.VaultData, error)

	AddTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error

	AddManualEntry(ctx context.Context, entry *models.ManualEntry) (*models.ManualEntry, error)
	DeleteManualEntry(ctx context.Context, id string) error

	ReplaceTargets(ctx context.Context, targets []models.RebalanceTarget) error
	ReplaceGroups(ctx context.Context, groups []models.TokenGroup) error
	ReplaceCategories(ctx context.Context, categories []models.TokenCategory) error

	GetSettings(ctx context.Context) (map[string]string, error)
	UpdateSettings(ctx context.Context, settings map[string]string) error

	// Export seals the whole vault with a passphrase-derived key
	Export(ctx context.Context, passphrase string) (*models.VaultEnvelope, error)

	// Import replaces the vault with a previously exported envelope.
	// A wrong passphrase fails without touching stored data.
	Import(ctx context.Context, envelope *models.VaultEnvelope, passphrase string) error
}

// ReportService renders rebalance output for humans
type ReportService interface {
	// RebalanceReport renders the current suggestions as markdown
	RebalanceReport(ctx context.Context) (string, error)

	// AllocationChart renders current allocations as a PNG pie chart
	AllocationChart(ctx context.Context) ([]byte, error)

	// DeviationChart renders per-target deviations as a PNG bar chart
	DeviationChart(ctx context.Context) ([]byte, error)
}
