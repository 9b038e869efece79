package rebalance

import (
	"math"
	"sort"

	"github.com/stakd-me/stakd-sub000/internal/models"
)

// postProcess appends untargeted rows, rolls up the summary, and builds
// the ordered execution plan.
func postProcess(c *strategyContext, data *models.SuggestionsData) {
	data.Targets = appendUntargeted(c, data.Targets)
	data.Summary = summarize(c, data.Targets)
	data.ExecutionSteps = buildExecutionPlan(data.Targets)
}

// appendUntargeted adds a hold row for every position worth more than
// the dust threshold that no target covers. Stablecoins stay off the
// list while they count as cash reserve.
func appendUntargeted(c *strategyContext, targets []models.Suggestion) []models.Suggestion {
	var extra []models.Suggestion
	for symbol, value := range c.symbolValues {
		if value <= c.settings.DustThresholdUsd || c.targeted[symbol] {
			continue
		}
		if c.settings.TreatStablecoinsAsCash && c.stablecoins[symbol] {
			continue
		}
		extra = append(extra, models.Suggestion{
			TokenSymbol:    symbol,
			CoingeckoID:    c.ids[symbol],
			Action:         models.ActionHold,
			CurrentValue:   value,
			CurrentPercent: c.currentPercent(value),
			IsUntargeted:   true,
		})
	}
	sort.Slice(extra, func(i, j int) bool {
		if extra[i].CurrentValue != extra[j].CurrentValue {
			return extra[i].CurrentValue > extra[j].CurrentValue
		}
		return extra[i].TokenSymbol < extra[j].TokenSymbol
	})
	return append(targets, extra...)
}

// summarize rolls the suggestion set up into counts, volumes and the
// drift estimate. Untargeted rows are excluded throughout.
func summarize(c *strategyContext, targets []models.Suggestion) models.SuggestionSummary {
	var sum models.SuggestionSummary
	var driftAfter, maxDeviation float64

	for _, s := range targets {
		if s.IsUntargeted {
			continue
		}
		dev := math.Abs(s.Deviation)
		sum.PortfolioDrift += dev
		if dev > maxDeviation {
			maxDeviation = dev
		}
		if s.Action == models.ActionHold {
			// Held rows keep their deviation after the plan runs.
			driftAfter += dev
			continue
		}
		sum.TradeCount++
		if s.Action == models.ActionBuy {
			sum.BuyCount++
		} else {
			sum.SellCount++
		}
		sum.TotalVolume += s.Amount
		sum.TotalEstimatedFees += s.EstimatedFee + s.EstimatedSlippage
	}

	sum.IsWellBalanced = maxDeviation <= c.settings.HoldZonePercent
	if sum.PortfolioDrift <= 0 {
		sum.PortfolioEfficiency = 100
	} else {
		improvement := (sum.PortfolioDrift - driftAfter) / sum.PortfolioDrift * 100
		sum.PortfolioEfficiency = math.Min(100, math.Max(0, improvement))
	}
	return sum
}

// buildExecutionPlan orders actionable suggestions sells first so the
// buys are funded, tracking a running cash balance from zero.
func buildExecutionPlan(targets []models.Suggestion) []models.ExecutionStep {
	var steps []models.ExecutionStep
	var runningCash float64

	add := func(s models.Suggestion) {
		if s.Action == models.ActionSell {
			runningCash += s.NetAmount
		} else {
			runningCash -= s.NetAmount
		}
		steps = append(steps, models.ExecutionStep{
			Step:              len(steps) + 1,
			TokenSymbol:       s.TokenSymbol,
			Action:            s.Action,
			Amount:            s.Amount,
			EstimatedSlippage: s.EstimatedSlippage,
			EstimatedFee:      s.EstimatedFee,
			NetAmount:         s.NetAmount,
			RunningCash:       runningCash,
		})
	}

	for _, s := range targets {
		if s.Action == models.ActionSell {
			add(s)
		}
	}
	for _, s := range targets {
		if s.Action == models.ActionBuy {
			add(s)
		}
	}
	return steps
}
