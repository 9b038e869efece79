// Package report renders rebalance output for humans: a markdown report,
// allocation and deviation charts, and an optional AI narrative.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stakd-me/stakd-sub000/internal/common"
	"github.com/stakd-me/stakd-sub000/internal/interfaces"
	"github.com/stakd-me/stakd-sub000/internal/models"
	"github.com/stakd-me/stakd-sub000/internal/services/rebalance"
)

// Service implements ReportService
type Service struct {
	portfolio interfaces.PortfolioService
	rebalance interfaces.RebalanceService
	storage   interfaces.StorageManager
	advisor   interfaces.Advisor // nil disables the narrative section
	logger    *common.Logger
	now       func() time.Time
}

// NewService creates a new report service. advisor may be nil; the report
// then renders without a narrative.
func NewService(
	portfolio interfaces.PortfolioService,
	rebalanceSvc interfaces.RebalanceService,
	storage interfaces.StorageManager,
	advisor interfaces.Advisor,
	logger *common.Logger,
) *Service {
	return &Service{
		portfolio: portfolio,
		rebalance: rebalanceSvc,
		storage:   storage,
		advisor:   advisor,
		logger:    logger,
		now:       time.Now,
	}
}

var _ interfaces.ReportService = (*Service)(nil)

// RebalanceReport renders the current suggestion set as markdown.
func (s *Service) RebalanceReport(ctx context.Context) (string, error) {
	data, err := s.rebalance.Suggestions(ctx, interfaces.SuggestOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to compute suggestions: %w", err)
	}

	holdings, err := s.portfolio.Holdings(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to compute holdings: %w", err)
	}

	alerts, err := s.rebalance.Alerts(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Alert evaluation failed, report continues without alerts")
		alerts = nil
	}

	raw, err := s.storage.VaultStore().GetSettings(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Settings unavailable, report uses defaults")
		raw = nil
	}
	settings := rebalance.ParseSettings(raw)

	narrative := s.narrative(ctx, data)

	report := formatRebalanceReport(s.now().UTC(), holdings, data, alerts, settings, narrative)

	s.logger.Info().
		Str("strategy", string(data.Strategy)).
		Int("suggestions", len(data.Targets)).
		Int("alerts", len(alerts)).
		Msg("Rebalance report generated")

	return report, nil
}

// AllocationChart renders current allocations as a PNG pie chart.
func (s *Service) AllocationChart(ctx context.Context) ([]byte, error) {
	summary, err := s.portfolio.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute summary: %w", err)
	}
	return renderAllocationChart(summary)
}

// DeviationChart renders per-target deviations as a PNG bar chart.
func (s *Service) DeviationChart(ctx context.Context) ([]byte, error) {
	data, err := s.rebalance.Suggestions(ctx, interfaces.SuggestOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to compute suggestions: %w", err)
	}
	return renderDeviationChart(data)
}

// narrative asks the advisor for a short prose summary. Any failure degrades
// to an empty narrative; the report itself never fails on advisor errors.
func (s *Service) narrative(ctx context.Context, data *models.SuggestionsData) string {
	if s.advisor == nil {
		return ""
	}

	text, err := s.advisor.GenerateNarrative(ctx, narrativePrompt(data))
	if err != nil {
		s.logger.Warn().Err(err).Msg("Advisor narrative unavailable, continuing without it")
		return ""
	}
	return strings.TrimSpace(text)
}
