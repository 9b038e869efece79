// Package vault manages the user dataset: ledger entries, manual balances,
// rebalance targets, grouping metadata, settings, and passphrase-sealed
// export/import of the whole set.
package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stakd-me/stakd-sub000/internal/common"
	"github.com/stakd-me/stakd-sub000/internal/interfaces"
	"github.com/stakd-me/stakd-sub000/internal/models"
)

// Service implements VaultService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
	now     func() time.Time // injectable clock for testing
}

// NewService creates a new vault service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

var _ interfaces.VaultService = (*Service)(nil)

// GetVault returns the complete dataset.
func (s *Service) GetVault(ctx context.Context) (*models.VaultData, error) {
	vault, err := s.storage.VaultStore().LoadVault(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load vault: %w", err)
	}
	return vault, nil
}

// AddTransaction appends a ledger entry. Missing ID and timestamps are
// filled in; the ledger itself is append-only and never recomputed here.
func (s *Service) AddTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now().UTC()
	}
	if tx.TransactedAt.IsZero() {
		tx.TransactedAt = tx.CreatedAt
	}

	if err := s.storage.VaultStore().SaveTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	s.logger.Info().
		Str("id", tx.ID).
		Str("symbol", tx.TokenSymbol).
		Str("type", string(tx.Type)).
		Msg("Transaction added")

	return tx, nil
}

// UpdateTransaction replaces an existing ledger entry in place. The
// original CreatedAt is preserved so chronological ordering is stable.
func (s *Service) UpdateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	existing, err := s.storage.VaultStore().GetTransaction(ctx, tx.ID)
	if err != nil {
		return nil, err
	}

	tx.CreatedAt = existing.CreatedAt
	if tx.TransactedAt.IsZero() {
		tx.TransactedAt = existing.TransactedAt
	}

	if err := s.storage.VaultStore().SaveTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}

	s.logger.Info().
		Str("id", tx.ID).
		Str("symbol", tx.TokenSymbol).
		Msg("Transaction updated")

	return tx, nil
}

// DeleteTransaction removes a ledger entry by id.
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.storage.VaultStore().DeleteTransaction(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("id", id).Msg("Transaction deleted")
	return nil
}

// AddManualEntry records an off-exchange balance.
func (s *Service) AddManualEntry(ctx context.Context, entry *models.ManualEntry) (*models.ManualEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}

	if err := s.storage.VaultStore().SaveManualEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save manual entry: %w", err)
	}

	s.logger.Info().
		Str("id", entry.ID).
		Str("symbol", entry.TokenSymbol).
		Msg("Manual entry added")

	return entry, nil
}

// DeleteManualEntry removes an off-exchange balance by id.
func (s *Service) DeleteManualEntry(ctx context.Context, id string) error {
	if err := s.storage.VaultStore().DeleteManualEntry(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("id", id).Msg("Manual entry deleted")
	return nil
}

// ReplaceTargets swaps the full allocation target set. Rows without an id
// get one so later edits can address them.
func (s *Service) ReplaceTargets(ctx context.Context, targets []models.RebalanceTarget) error {
	for i := range targets {
		if targets[i].ID == "" {
			targets[i].ID = uuid.New().String()
		}
	}

	if err := s.storage.VaultStore().ReplaceTargets(ctx, targets); err != nil {
		return fmt.Errorf("failed to replace targets: %w", err)
	}

	s.logger.Info().Int("count", len(targets)).Msg("Rebalance targets replaced")
	return nil
}

// ReplaceGroups swaps the full token group set.
func (s *Service) ReplaceGroups(ctx context.Context, groups []models.TokenGroup) error {
	if err := s.storage.VaultStore().ReplaceGroups(ctx, groups); err != nil {
		return fmt.Errorf("failed to replace groups: %w", err)
	}

	s.logger.Info().Int("count", len(groups)).Msg("Token groups replaced")
	return nil
}

// ReplaceCategories swaps the full category tag set.
func (s *Service) ReplaceCategories(ctx context.Context, categories []models.TokenCategory) error {
	if err := s.storage.VaultStore().ReplaceCategories(ctx, categories); err != nil {
		return fmt.Errorf("failed to replace categories: %w", err)
	}

	s.logger.Info().Int("count", len(categories)).Msg("Token categories replaced")
	return nil
}

// GetSettings returns all persisted settings.
func (s *Service) GetSettings(ctx context.Context) (map[string]string, error) {
	settings, err := s.storage.VaultStore().GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// UpdateSettings merges the given keys into the stored settings. Keys not
// present are left untouched.
func (s *Service) UpdateSettings(ctx context.Context, settings map[string]string) error {
	if err := s.storage.VaultStore().SetSettings(ctx, settings); err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}

	s.logger.Info().Int("count", len(settings)).Msg("Settings updated")
	return nil
}

// Export seals the whole vault under a passphrase-derived key.
func (s *Service) Export(ctx context.Context, passphrase string) (*models.VaultEnvelope, error) {
	vault, err := s.storage.VaultStore().LoadVault(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load vault: %w", err)
	}

	plaintext, err := json.Marshal(vault)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize vault: %w", err)
	}

	envelope, err := sealVault(plaintext, passphrase)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("transactions", len(vault.Transactions)).
		Int("manual_entries", len(vault.ManualEntries)).
		Msg("Vault exported")

	return envelope, nil
}

// Import replaces the vault with a previously exported envelope. Decryption
// and decoding both happen before any write, so a wrong passphrase or a
// corrupted envelope leaves stored data untouched.
func (s *Service) Import(ctx context.Context, envelope *models.VaultEnvelope, passphrase string) error {
	plaintext, err := openVault(envelope, passphrase)
	if err != nil {
		return err
	}

	var vault models.VaultData
	if err := json.Unmarshal(plaintext, &vault); err != nil {
		return fmt.Errorf("failed to decode vault export: %w", err)
	}

	if err := s.storage.VaultStore().ReplaceAll(ctx, &vault); err != nil {
		return fmt.Errorf("failed to import vault: %w", err)
	}

	s.logger.Info().
		Int("transactions", len(vault.Transactions)).
		Int("manual_entries", len(vault.ManualEntries)).
		Int("targets", len(vault.RebalanceTargets)).
		Msg("Vault imported")

	return nil
}
