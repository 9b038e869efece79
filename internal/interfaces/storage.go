// Package interfaces defines service contracts for Stakd
package interfaces

import (
	"context"

	"github.com/stakd-me/stakd-sub000/internal/models"
)

// StorageManager coordinates all storage backends
type StorageManager interface {
	VaultStore() VaultStore
	MarketStore() MarketStore

	// Lifecycle
	Close() error
}

// VaultStore persists the user dataset in the embedded vault area.
// Listings are deterministic: ledger entries chronological, replace-style
// sets in declared order, snapshots by date.
type VaultStore interface {
	// LoadVault assembles the complete dataset the engine computes over
	LoadVault(ctx context.Context) (*models.VaultData, error)

	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	ListTransactions(ctx context.Context) ([]models.Transaction, error)

	SaveManualEntry(ctx context.Context, entry *models.ManualEntry) error
	DeleteManualEntry(ctx context.Context, id string) error
	ListManualEntries(ctx context.Context) ([]models.ManualEntry, error)

	ReplaceTargets(ctx context.Context, targets []models.RebalanceTarget) error
	ListTargets(ctx context.Context) ([]models.RebalanceTarget, error)

	ReplaceGroups(ctx context.Context, groups []models.TokenGroup) error
	ListGroups(ctx context.Context) ([]models.TokenGroup, error)

	ReplaceCategories(ctx context.Context, categories []models.TokenCategory) error
	ListCategories(ctx context.Context) ([]models.TokenCategory, error)

	GetSettings(ctx context.Context) (map[string]string, error)
	PutSetting(ctx context.Context, key, value string) error
	SetSettings(ctx context.Context, settings map[string]string) error

	SaveSnapshot(ctx context.Context, snapshot *models.PortfolioSnapshot) error
	ListSnapshots(ctx context.Context, from, to string) ([]models.PortfolioSnapshot, error)

	// ReplaceAll swaps the entire dataset in one pass (vault import)
	ReplaceAll(ctx context.Context, vault *models.VaultData) error

	Close() error
}

// MarketStore persists price and volatility snapshots in the market area
type MarketStore interface {
	LoadPriceSnapshot(ctx context.Context) (*models.PriceSnapshot, error)
	SavePriceSnapshot(ctx context.Context, snapshot *models.PriceSnapshot) error

	LoadVolatilitySnapshot(ctx context.Context) (*models.VolatilitySnapshot, error)
	SaveVolatilitySnapshot(ctx context.Context, snapshot *models.VolatilitySnapshot) error

	Close() error
}
