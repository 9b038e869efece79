// Package vaultdb implements VaultStore using BadgerHold. Ledger records
// are keyed by id; replace-style sets (targets, groups, categories) are
// keyed by padded position so a listing restores the order the user
// declared them in.
package vaultdb

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/timshannon/badgerhold/v4"

	"github.com/stakd-me/stakd-sub000/internal/common"
	"github.com/stakd-me/stakd-sub000/internal/interfaces"
	"github.com/stakd-me/stakd-sub000/internal/models"
)

// Store implements interfaces.VaultStore using BadgerHold.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// NewStore opens or creates the vault database at path.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create vaultdb path %s: %w", path, err)
	}
	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil
	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open vaultdb at %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("VaultDB opened")
	return &Store{db: db, logger: logger}, nil
}

var _ interfaces.VaultStore = (*Store)(nil)

// positionKey orders replace-style sets. Padding keeps the key order
// numeric up to a million rows.
func positionKey(i int) string {
	return fmt.Sprintf("%06d", i)
}

// LoadVault assembles the complete dataset in one pass.
func (s *Store) LoadVault(ctx context.Context) (*models.VaultData, error) {
	transactions, err := s.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	manualEntries, err := s.ListManualEntries(ctx)
	if err != nil {
		return nil, err
	}
	targets, err := s.ListTargets(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := s.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	return &models.VaultData{
		Transactions:     transactions,
		ManualEntries:    manualEntries,
		RebalanceTargets: targets,
		TokenGroups:      groups,
		TokenCategories:  categories,
		Settings:         settings,
	}, nil
}

func (s *Store) SaveTransaction(_ context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("transaction id is required")
	}
	if err := s.db.Upsert(tx.ID, tx); err != nil {
		return fmt.Errorf("failed to save transaction '%s': %w", tx.ID, err)
	}
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := s.db.Get(id, &tx); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("transaction '%s' not found", id)
		}
		return nil, fmt.Errorf("failed to get transaction '%s': %w", id, err)
	}
	return &tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	if err := s.db.Delete(id, models.Transaction{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("transaction '%s' not found", id)
		}
		return fmt.Errorf("failed to delete transaction '%s': %w", id, err)
	}
	return nil
}

// ListTransactions returns the ledger in chronological order.
func (s *Store) ListTransactions(_ context.Context) ([]models.Transaction, error) {
	var all []models.Transaction
	if err := s.db.Find(&all, nil); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if !a.TransactedAt.Equal(b.TransactedAt) {
			return a.TransactedAt.Before(b.TransactedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return all, nil
}

func (s *Store) SaveManualEntry(_ context.Context, entry *models.ManualEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("manual entry id is required")
	}
	if err := s.db.Upsert(entry.ID, entry); err != nil {
		return fmt.Errorf("failed to save manual entry '%s': %w", entry.ID, err)
	}
	return nil
}

func (s *Store) DeleteManualEntry(_ context.Context, id string) error {
	if err := s.db.Delete(id, models.ManualEntry{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("manual entry '%s' not found", id)
		}
		return fmt.Errorf("failed to delete manual entry '%s': %w", id, err)
	}
	return nil
}

func (s *Store) ListManualEntries(_ context.Context) ([]models.ManualEntry, error) {
	var all []models.ManualEntry
	if err := s.db.Find(&all, nil); err != nil {
		return nil, fmt.Errorf("failed to list manual entries: %w", err)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return all, nil
}

func (s *Store) ReplaceTargets(_ context.Context, targets []models.RebalanceTarget) error {
	if err := s.db.DeleteMatching(&models.RebalanceTarget{}, nil); err != nil {
		return fmt.Errorf("failed to clear targets: %w", err)
	}
	for i := range targets {
		if err := s.db.Insert(positionKey(i), &targets[i]); err != nil {
			return fmt.Errorf("failed to save target %d: %w", i, err)
		}
	}
	return nil
}

func (s *Store) ListTargets(_ context.Context) ([]models.RebalanceTarget, error) {
	var all []models.RebalanceTarget
	if err := s.db.Find(&all, nil); err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	return all, nil
}

func (s *Store) ReplaceGroups(_ context.Context, groups []models.TokenGroup) error {
	if err := s.db.DeleteMatching(&models.TokenGroup{}, nil); err != nil {
		return fmt.Errorf("failed to clear groups: %w", err)
	}
	for i := range groups {
		if err := s.db.Insert(positionKey(i), &groups[i]); err != nil {
			return fmt.Errorf("failed to save group %d: %w", i, err)
		}
	}
	return nil
}

func (s *Store) ListGroups(_ context.Context) ([]models.TokenGroup, error) {
	var all []models.TokenGroup
	if err := s.db.Find(&all, nil); err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return all, nil
}

func (s *Store) ReplaceCategories(_ context.Context, categories []models.TokenCategory) error {
	if err := s.db.DeleteMatching(&models.TokenCategory{}, nil); err != nil {
		return fmt.Errorf("failed to clear categories: %w", err)
	}
	for i := range categories {
		if err := s.db.Insert(positionKey(i), &categories[i]); err != nil {
			return fmt.Errorf("failed to save category %d: %w", i, err)
		}
	}
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]models.TokenCategory, error) {
	var all []models.TokenCategory
	if err := s.db.Find(&all, nil); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return all, nil
}

func (s *Store) GetSettings(_ context.Context) (map[string]string, error) {
	var records []models.SettingRecord
	if err := s.db.Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	settings := make(map[string]string, len(records))
	for _, rec := range records {
		settings[rec.Key] = rec.Value
	}
	return settings, nil
}

func (s *Store) PutSetting(_ context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("setting key is required")
	}
	rec := models.SettingRecord{Key: key, Value: value}
	if err := s.db.Upsert(key, &rec); err != nil {
		return fmt.Errorf("failed to save setting '%s': %w", key, err)
	}
	return nil
}

// SetSettings upserts every pair in the map. Keys absent from the map
// keep their stored value.
func (s *Store) SetSettings(ctx context.Context, settings map[string]string) error {
	for key, value := range settings {
		if err := s.PutSetting(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) SaveSnapshot(_ context.Context, snapshot *models.PortfolioSnapshot) error {
	if snapshot.Date == "" {
		return fmt.Errorf("snapshot date is required")
	}
	if err := s.db.Upsert(snapshot.Date, snapshot); err != nil {
		return fmt.Errorf("failed to save snapshot '%s': %w", snapshot.Date, err)
	}
	return nil
}

// ListSnapshots returns snapshots in date order. from and to are
// inclusive YYYY-MM-DD bounds; an empty bound is open.
func (s *Store) ListSnapshots(_ context.Context, from, to string) ([]models.PortfolioSnapshot, error) {
	var all []models.PortfolioSnapshot
	if err := s.db.Find(&all, nil); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	var out []models.PortfolioSnapshot
	for _, snap := range all {
		if from != "" && snap.Date < from {
			continue
		}
		if to != "" && snap.Date > to {
			continue
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// ReplaceAll swaps the entire user dataset in one pass. Snapshot history
// is derived data and survives an import.
func (s *Store) ReplaceAll(ctx context.Context, vault *models.VaultData) error {
	clears := []interface{}{
		&models.Transaction{},
		&models.ManualEntry{},
		&models.RebalanceTarget{},
		&models.TokenGroup{},
		&models.TokenCategory{},
		&models.SettingRecord{},
	}
	for _, t := range clears {
		if err := s.db.DeleteMatching(t, nil); err != nil {
			return fmt.Errorf("failed to clear vault: %w", err)
		}
	}

	for i := range vault.Transactions {
		if err := s.SaveTransaction(ctx, &vault.Transactions[i]); err != nil {
			return err
		}
	}
	for i := range vault.ManualEntries {
		if err := s.SaveManualEntry(ctx, &vault.ManualEntries[i]); err != nil {
			return err
		}
	}
	if err := s.ReplaceTargets(ctx, vault.RebalanceTargets); err != nil {
		return err
	}
	if err := s.ReplaceGroups(ctx, vault.TokenGroups); err != nil {
		return err
	}
	if err := s.ReplaceCategories(ctx, vault.TokenCategories); err != nil {
		return err
	}
	if err := s.SetSettings(ctx, vault.Settings); err != nil {
		return err
	}

	s.logger.Info().
		Int("transactions", len(vault.Transactions)).
		Int("manual_entries", len(vault.ManualEntries)).
		Int("targets", len(vault.RebalanceTargets)).
		Msg("Vault replaced")

	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
