package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/stakd-me/stakd-sub000/internal/common"
	"github.com/stakd-me/stakd-sub000/internal/interfaces"
	"github.com/stakd-me/stakd-sub000/internal/realtime"
)

// snapshotSchedule captures the portfolio value at midnight server time.
const snapshotSchedule = "0 0 * * *"

// StartScheduler launches the price refresh loop and the daily snapshot
// cron job. Call Close to stop both.
func (a *App) StartScheduler() {
	ctx, cancel := context.WithCancel(context.Background())
	a.schedulerCancel = cancel
	go runPriceRefresh(ctx, a.MarketService, a.PortfolioService, a.Hub, a.Config.Market.GetRefreshInterval(), a.Logger)

	c := cron.New()
	if _, err := c.AddFunc(snapshotSchedule, a.captureDailySnapshot); err != nil {
		a.Logger.Error().Err(err).Msg("Failed to schedule daily snapshot job")
	} else {
		c.Start()
		a.cron = c
	}
}

// runPriceRefresh refreshes prices on a fixed interval. An immediate warm
// refresh runs first so the initial reads already have a snapshot.
func runPriceRefresh(
	ctx context.Context,
	marketService interfaces.MarketService,
	portfolioService interfaces.PortfolioService,
	hub *realtime.Hub,
	interval time.Duration,
	logger *common.Logger,
) {
	refreshAndBroadcast(ctx, marketService, portfolioService, hub, logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Price scheduler: stopped")
			return
		case <-ticker.C:
			refreshAndBroadcast(ctx, marketService, portfolioService, hub, logger)
		}
	}
}

func refreshAndBroadcast(
	ctx context.Context,
	marketService interfaces.MarketService,
	portfolioService interfaces.PortfolioService,
	hub *realtime.Hub,
	logger *common.Logger,
) {
	start := time.Now()

	prices, err := marketService.Refresh(ctx, false)
	if err != nil {
		logger.Warn().Err(err).Msg("Price refresh: failed")
		return
	}
	if len(prices) == 0 {
		// Nothing tracked yet
		return
	}

	summary, err := portfolioService.Summary(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Price refresh: summary recompute failed")
		return
	}

	hub.Broadcast(realtime.PortfolioUpdate(summary))

	logger.Info().
		Int("tokens", len(prices)).
		Dur("elapsed", time.Since(start)).
		Msg("Price refresh: complete")
}

// captureDailySnapshot records today's portfolio value for the history
// series. Runs under the cron schedule.
func (a *App) captureDailySnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := a.PortfolioService.CaptureSnapshot(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Daily snapshot capture failed")
	}
}
