package rebalance

import (
	"math"
	"strings"
	"time"

	"github.com/stakd-me/stakd-sub000/internal/models"
	"github.com/stakd-me/stakd-sub000/internal/services/portfolio"
)

// ComputeSuggestions runs one full engine pass over the vault with the
// given price and volatility snapshots. It is pure: the same inputs and
// clock always yield the same advice. A non-blank override replaces the
// persisted strategy for this run only.
func ComputeSuggestions(vault *models.VaultData, prices models.PriceMap, volatility models.VolatilityMap, now time.Time, override string) *models.SuggestionsData {
	settings := ParseSettings(vault.Settings)
	if strings.TrimSpace(override) != "" {
		settings.Strategy = models.ParseStrategy(override)
	}

	holdings := portfolio.ComputeHoldings(vault.Transactions, vault.ManualEntries, prices)
	summary := portfolio.ComputeSummary(holdings)
	c := buildContext(vault, summary, settings)

	data := &models.SuggestionsData{
		Strategy:        settings.Strategy,
		GeneratedAt:     now,
		TotalValueUsd:   c.totalValue,
		EffectiveTotal:  c.effectiveTotal,
		InvestableTotal: c.investableTotal,
	}

	switch settings.Strategy {
	case models.StrategyCalendar:
		if settings.LastRebalanceDate.IsZero() {
			// No usable date recorded, the window never blocks.
			data.Targets = thresholdPass(c)
			break
		}
		next := nextRebalanceDate(settings.LastRebalanceDate, settings.Interval)
		data.NextRebalanceDate = next.Format("2006-01-02")
		if now.Before(next) {
			data.CalendarBlocked = true
			data.Targets = holdAllPass(c)
		} else {
			data.Targets = thresholdPass(c)
		}

	case models.StrategyPercentOfPortfolio:
		data.Targets = impactPass(c)

	case models.StrategyRiskParity:
		adjusted, reports, ok := riskParityAdjust(c.targets, volatility)
		if ok {
			c.targets = adjusted
			data.RiskParityTargets = reports
		}
		data.Targets = thresholdPass(c)

	case models.StrategyDCAWeighted:
		data.Targets = thresholdPass(c)
		data.DCAChunks = splitForDCA(data.Targets, settings, now)

	default:
		data.Targets = thresholdPass(c)
	}

	postProcess(c, data)
	return data
}

// baseSuggestion fills the valuation fields every strategy shares.
// All sizing divides by the investable total so the cash reserve stays
// out of the allocation universe.
func baseSuggestion(c *strategyContext, t mergedTarget) models.Suggestion {
	s := models.Suggestion{
		TokenSymbol:    t.key,
		CoingeckoID:    t.coingeckoID,
		IsGroup:        t.isGroup,
		CurrentValue:   t.currentValue,
		CurrentPercent: c.currentPercent(t.currentValue),
		TargetPercent:  t.targetPercent,
		TargetValue:    t.targetPercent / 100 * c.investableTotal,
	}
	s.Deviation = s.CurrentPercent - s.TargetPercent
	s.IsDust = t.currentValue > 0 && t.currentValue < c.settings.DustThresholdUsd
	return s
}

// finalize applies the gates shared by every strategy and sizes the
// trade. triggered says whether the strategy's own trigger fired.
func finalize(c *strategyContext, s models.Suggestion, triggered bool) models.Suggestion {
	tradeAmount := math.Abs(s.TargetValue - s.CurrentValue)

	if c.effectiveTotal <= 0 || !triggered || tradeAmount < c.settings.MinTradeUsd {
		s.Action = models.ActionHold
		return s
	}

	action := models.ActionSell
	if s.Deviation < 0 {
		action = models.ActionBuy
	}
	if c.settings.BuyOnlyMode && action == models.ActionSell {
		s.Action = models.ActionHold
		return s
	}

	s.Action = action
	s.Amount = tradeAmount
	s.EstimatedSlippage = tradeAmount * c.settings.SlippagePercent / 100
	s.EstimatedFee = tradeAmount * c.settings.TradingFeePercent / 100
	if action == models.ActionBuy {
		s.NetAmount = s.Amount + s.EstimatedSlippage + s.EstimatedFee
	} else {
		s.NetAmount = s.Amount - s.EstimatedSlippage - s.EstimatedFee
	}
	return s
}

// thresholdPass triggers on deviations outside the hold zone.
func thresholdPass(c *strategyContext) []models.Suggestion {
	out := make([]models.Suggestion, 0, len(c.targets))
	for _, t := range c.targets {
		s := baseSuggestion(c, t)
		out = append(out, finalize(c, s, math.Abs(s.Deviation) > c.settings.HoldZonePercent))
	}
	return out
}

// holdAllPass emits every target as a zero-amount hold.
func holdAllPass(c *strategyContext) []models.Suggestion {
	out := make([]models.Suggestion, 0, len(c.targets))
	for _, t := range c.targets {
		s := baseSuggestion(c, t)
		s.Action = models.ActionHold
		out = append(out, s)
	}
	return out
}

// impactPass triggers on the trade's share of the whole portfolio
// instead of the hold zone.
func impactPass(c *strategyContext) []models.Suggestion {
	out := make([]models.Suggestion, 0, len(c.targets))
	for _, t := range c.targets {
		s := baseSuggestion(c, t)
		var impact float64
		if c.effectiveTotal > 0 {
			impact = math.Abs(s.TargetValue-s.CurrentValue) / c.effectiveTotal * 100
		}
		s.PortfolioImpact = impact
		out = append(out, finalize(c, s, impact >= c.settings.PortfolioChangeThreshold))
	}
	return out
}

// nextRebalanceDate is when the calendar window reopens.
func nextRebalanceDate(last time.Time, interval models.RebalanceInterval) time.Time {
	switch interval {
	case models.IntervalWeekly:
		return last.AddDate(0, 0, 7)
	case models.IntervalQuarterly:
		return last.AddDate(0, 3, 0)
	default:
		return last.AddDate(0, 1, 0)
	}
}

// riskParityAdjust reweights targets by inverse volatility, normalized so
// the adjusted percentages sum to the original total. It is all or
// nothing: if any target lacks a usable volatility reading the literal
// targets stand and no report is returned.
func riskParityAdjust(targets []mergedTarget, volatility models.VolatilityMap) ([]mergedTarget, []models.RiskParityTarget, bool) {
	if len(targets) == 0 {
		return targets, nil, false
	}

	weights := make([]float64, len(targets))
	var weightSum, originalSum float64
	for i, t := range targets {
		if t.coingeckoID == "" {
			return targets, nil, false
		}
		point, ok := volatility[t.coingeckoID]
		if !ok || point.Volatility <= 0 {
			return targets, nil, false
		}
		weights[i] = 1 / point.Volatility
		weightSum += weights[i]
		originalSum += t.targetPercent
	}

	adjusted := make([]mergedTarget, len(targets))
	reports := make([]models.RiskParityTarget, len(targets))
	largest := 0
	var roundedSum float64
	for i, t := range targets {
		share := round2(weights[i] / weightSum * originalSum)
		adjusted[i] = t
		adjusted[i].targetPercent = share
		roundedSum += share
		if weights[i] > weights[largest] {
			largest = i
		}
		reports[i] = models.RiskParityTarget{
			TokenSymbol:     t.key,
			OriginalPercent: t.targetPercent,
			AdjustedPercent: share,
			Volatility:      volatility[t.coingeckoID].Volatility,
		}
	}

	// Rounding drift lands on the largest weight so the total is
	// preserved exactly.
	if residual := round2(originalSum - roundedSum); residual != 0 {
		adjusted[largest].targetPercent = round2(adjusted[largest].targetPercent + residual)
		reports[largest].AdjustedPercent = adjusted[largest].targetPercent
	}

	return adjusted, reports, true
}

// splitForDCA divides each actionable suggestion evenly across the
// scheduled chunks, rewriting the rows to per-chunk size. No chunks are
// emitted when nothing is actionable.
func splitForDCA(targets []models.Suggestion, settings models.RebalanceSettings, now time.Time) []models.DCAChunk {
	n := settings.DCASplitCount
	if n < 1 {
		n = 1
	}
	intervalDays := settings.DCAIntervalDays
	if intervalDays < 1 {
		intervalDays = 1
	}

	var trades []models.DCATrade
	for i := range targets {
		s := &targets[i]
		if s.Action == models.ActionHold {
			continue
		}
		s.Amount /= float64(n)
		s.EstimatedSlippage /= float64(n)
		s.EstimatedFee /= float64(n)
		s.NetAmount /= float64(n)
		trades = append(trades, models.DCATrade{
			TokenSymbol:       s.TokenSymbol,
			Action:            s.Action,
			Amount:            s.Amount,
			EstimatedSlippage: s.EstimatedSlippage,
			EstimatedFee:      s.EstimatedFee,
			NetAmount:         s.NetAmount,
		})
	}
	if len(trades) == 0 {
		return nil
	}

	chunks := make([]models.DCAChunk, n)
	for i := 0; i < n; i++ {
		chunkTrades := make([]models.DCATrade, len(trades))
		copy(chunkTrades, trades)
		chunks[i] = models.DCAChunk{
			Index:       i,
			ScheduledAt: now.AddDate(0, 0, i*intervalDays),
			Trades:      chunkTrades,
		}
	}
	return chunks
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
