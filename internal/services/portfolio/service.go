package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/stakd-me/stakd-sub000/internal/common"
	"github.com/stakd-me/stakd-sub000/internal/interfaces"
	"github.com/stakd-me/stakd-sub000/internal/models"
)

// Service implements PortfolioService
type Service struct {
	storage interfaces.StorageManager
	market  interfaces.MarketService
	logger  *common.Logger
	now     func() time.Time // injectable clock for testing
}

// NewService creates a new portfolio service
func NewService(storage interfaces.StorageManager, market interfaces.MarketService, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		market:  market,
		logger:  logger,
		now:     time.Now,
	}
}

var _ interfaces.PortfolioService = (*Service)(nil)

// Holdings aggregates the ledger into priced positions.
func (s *Service) Holdings(ctx context.Context) ([]models.Holding, error) {
	vault, err := s.storage.VaultStore().LoadVault(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load vault: %w", err)
	}

	prices, err := s.market.Prices(ctx)
	if err != nil {
		// Stale or absent prices degrade valuations to zero, they never
		// block the ledger view.
		s.logger.Warn().Err(err).Msg("Price snapshot unavailable, valuing holdings at zero")
		prices = models.PriceMap{}
	}

	return ComputeHoldings(vault.Transactions, vault.ManualEntries, prices), nil
}

// Summary rolls the current holdings up into portfolio totals.
func (s *Service) Summary(ctx context.Context) (*models.PortfolioSummary, error) {
	holdings, err := s.Holdings(ctx)
	if err != nil {
		return nil, err
	}

	summary := ComputeSummary(holdings)
	summary.UpdatedAt = s.now()
	return summary, nil
}

// RealizedTimeline replays the ledger chronologically.
func (s *Service) RealizedTimeline(ctx context.Context) (*models.RealizedTimeline, error) {
	vault, err := s.storage.VaultStore().LoadVault(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load vault: %w", err)
	}

	return ComputeRealizedTimeline(vault.Transactions), nil
}

// CaptureSnapshot records today's portfolio value. One snapshot per day:
// a second capture on the same date overwrites the first.
func (s *Service) CaptureSnapshot(ctx context.Context) (*models.PortfolioSnapshot, error) {
	summary, err := s.Summary(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &models.PortfolioSnapshot{
		Date:          s.now().UTC().Format("2006-01-02"),
		TotalValueUsd: summary.TotalValueUsd,
		SymbolValues:  summary.SymbolValues,
		CapturedAt:    s.now().UTC(),
	}

	if err := s.storage.VaultStore().SaveSnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}

	s.logger.Info().
		Str("date", snapshot.Date).
		Float64("total_value_usd", snapshot.TotalValueUsd).
		Msg("Portfolio snapshot captured")

	return snapshot, nil
}

// History returns stored snapshots, optionally bounded by YYYY-MM-DD dates.
func (s *Service) History(ctx context.Context, from, to string) ([]models.PortfolioSnapshot, error) {
	snapshots, err := s.storage.VaultStore().ListSnapshots(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return snapshots, nil
}
