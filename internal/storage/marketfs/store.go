// Package marketfs implements MarketStore as JSON documents on disk.
// Market data is a disposable cache: losing it only costs a refresh, so
// plain files beat a database here. Writes go through a temp file and
// rename so a crash never leaves a half-written snapshot.
package marketfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stakd-me/stakd-sub000/internal/common"
	"github.com/stakd-me/stakd-sub000/internal/interfaces"
	"github.com/stakd-me/stakd-sub000/internal/models"
)

const (
	pricesFile     = "prices.json"
	volatilityFile = "volatility.json"
)

// Store implements interfaces.MarketStore on the local filesystem.
type Store struct {
	basePath string
	logger   *common.Logger
}

// NewStore creates the market store directory if needed.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create market store path %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("MarketFS store opened")
	return &Store{basePath: path, logger: logger}, nil
}

var _ interfaces.MarketStore = (*Store)(nil)

func (s *Store) LoadPriceSnapshot(_ context.Context) (*models.PriceSnapshot, error) {
	var snapshot models.PriceSnapshot
	if err := s.readJSON(pricesFile, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *Store) SavePriceSnapshot(_ context.Context, snapshot *models.PriceSnapshot) error {
	return s.writeJSON(pricesFile, snapshot)
}

func (s *Store) LoadVolatilitySnapshot(_ context.Context) (*models.VolatilitySnapshot, error) {
	var snapshot models.VolatilitySnapshot
	if err := s.readJSON(volatilityFile, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *Store) SaveVolatilitySnapshot(_ context.Context, snapshot *models.VolatilitySnapshot) error {
	return s.writeJSON(volatilityFile, snapshot)
}

// Close is a no-op for file-based storage.
func (s *Store) Close() error {
	return nil
}

func (s *Store) readJSON(name string, dest interface{}) error {
	path := filepath.Join(s.basePath, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("'%s' not found", name)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("'%s' is empty", name)
	}
	return json.Unmarshal(data, dest)
}

func (s *Store) writeJSON(name string, data interface{}) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	jsonData = append(jsonData, '\n')

	tmpFile, err := os.CreateTemp(s.basePath, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(jsonData); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(s.basePath, name)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
