// Package storage provides the top-level StorageManager that coordinates
// the 2 storage areas: vaultdb and marketfs.
package storage

import (
	"fmt"

	"github.com/stakd-me/stakd-sub000/internal/common"
	"github.com/stakd-me/stakd-sub000/internal/interfaces"
	"github.com/stakd-me/stakd-sub000/internal/storage/marketfs"
	"github.com/stakd-me/stakd-sub000/internal/storage/vaultdb"
)

// Manager implements interfaces.StorageManager using 2 storage areas.
type Manager struct {
	vault  *vaultdb.Store
	market *marketfs.Store
	logger *common.Logger
}

// NewManager creates a new StorageManager with both storage areas.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	vaultStore, err := vaultdb.NewStore(logger, config.Storage.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault store: %w", err)
	}

	marketStore, err := marketfs.NewStore(logger, config.Storage.Market.Path)
	if err != nil {
		vaultStore.Close()
		return nil, fmt.Errorf("failed to create market store: %w", err)
	}

	logger.Info().
		Str("vault", config.Storage.Vault.Path).
		Str("market", config.Storage.Market.Path).
		Msg("Storage manager initialized (2 areas)")

	return &Manager{
		vault:  vaultStore,
		market: marketStore,
		logger: logger,
	}, nil
}

func (m *Manager) VaultStore() interfaces.VaultStore {
	return m.vault
}

func (m *Manager) MarketStore() interfaces.MarketStore {
	return m.market
}

func (m *Manager) Close() error {
	var firstErr error
	if err := m.vault.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := m.market.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
