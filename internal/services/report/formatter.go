package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/stakd-me/stakd-sub000/internal/common"
	"github.com/stakd-me/stakd-sub000/internal/models"
)

// formatRebalanceReport renders the markdown rebalance report: holdings,
// suggestions, execution steps, alerts, optional narrative, and the
// settings the run used.
func formatRebalanceReport(
	generatedAt time.Time,
	holdings []models.Holding,
	data *models.SuggestionsData,
	alerts []models.Alert,
	settings models.RebalanceSettings,
	narrative string,
) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Rebalance Report\n\n")
	sb.WriteString(fmt.Sprintf("**Date:** %s\n", generatedAt.Format("2006-01-02 15:04 MST")))
	sb.WriteString(fmt.Sprintf("**Strategy:** %s\n", data.Strategy))
	sb.WriteString(fmt.Sprintf("**Portfolio Value:** %s\n", common.FormatMoney(data.TotalValueUsd)))
	if data.InvestableTotal != data.TotalValueUsd {
		sb.WriteString(fmt.Sprintf("**Investable Value:** %s\n", common.FormatMoney(data.InvestableTotal)))
	}
	sb.WriteString(fmt.Sprintf("**Portfolio Drift:** %s\n", common.FormatPct(data.Summary.PortfolioDrift)))
	if data.Summary.IsWellBalanced {
		sb.WriteString("**Status:** Well balanced, no trades needed\n\n")
	} else {
		sb.WriteString(fmt.Sprintf("**Status:** %d trade(s) suggested, estimated efficiency after rebalance %s\n\n",
			data.Summary.TradeCount, common.FormatPct(data.Summary.PortfolioEfficiency)))
	}

	if data.CalendarBlocked {
		sb.WriteString(fmt.Sprintf("> Calendar window not reached. Next rebalance: %s.\n\n", data.NextRebalanceDate))
	}

	// Holdings table
	sb.WriteString("## Holdings\n\n")
	if len(holdings) == 0 {
		sb.WriteString("No holdings recorded.\n\n")
	} else {
		sb.WriteString("| Symbol | Qty | Avg Cost | Price | Value | Unrealized P&L | Unrealized % |\n")
		sb.WriteString("|--------|-----|----------|-------|-------|----------------|--------------|\n")
		total := 0.0
		for _, h := range holdings {
			total += h.CurrentValue
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s |\n",
				h.TokenSymbol, common.FormatQty(h.CurrentQty),
				common.FormatMoney(h.AvgCostBasis), common.FormatMoney(h.CurrentPrice),
				common.FormatMoney(h.CurrentValue),
				common.FormatSignedMoney(h.UnrealizedPL), common.FormatSignedPct(h.UnrealizedPLPercent)))
		}
		sb.WriteString(fmt.Sprintf("| **Total** | | | | **%s** | | |\n\n", common.FormatMoney(total)))
	}

	// Suggestions table
	sb.WriteString("## Suggestions\n\n")
	if len(data.Targets) == 0 {
		sb.WriteString("No rebalance targets configured.\n\n")
	} else {
		sb.WriteString("| Token | Action | Current % | Target % | Deviation | Trade | Net |\n")
		sb.WriteString("|-------|--------|-----------|----------|-----------|-------|-----|\n")
		for _, t := range data.Targets {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s |\n",
				suggestionLabel(t), formatAction(t),
				common.FormatPct(t.CurrentPercent), common.FormatPct(t.TargetPercent),
				common.FormatSignedPct(t.Deviation),
				common.FormatMoney(t.Amount), common.FormatMoney(t.NetAmount)))
		}
		sb.WriteString("\n")

		sb.WriteString(fmt.Sprintf("**Trades:** %d (%d buys, %d sells) | **Volume:** %s | **Estimated Costs:** %s\n\n",
			data.Summary.TradeCount, data.Summary.BuyCount, data.Summary.SellCount,
			common.FormatMoney(data.Summary.TotalVolume), common.FormatMoney(data.Summary.TotalEstimatedFees)))
	}

	// Risk parity adjustments
	if len(data.RiskParityTargets) > 0 {
		sb.WriteString("## Risk Parity Weights\n\n")
		sb.WriteString("| Token | Original % | Adjusted % | Volatility |\n")
		sb.WriteString("|-------|------------|------------|------------|\n")
		for _, rp := range data.RiskParityTargets {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.4f |\n",
				rp.TokenSymbol, common.FormatPct(rp.OriginalPercent),
				common.FormatPct(rp.AdjustedPercent), rp.Volatility))
		}
		sb.WriteString("\n")
	}

	// DCA schedule
	if len(data.DCAChunks) > 0 {
		sb.WriteString("## DCA Schedule\n\n")
		for _, chunk := range data.DCAChunks {
			sb.WriteString(fmt.Sprintf("### Chunk %d — %s\n\n", chunk.Index+1, chunk.ScheduledAt.Format("2006-01-02")))
			if len(chunk.Trades) == 0 {
				sb.WriteString("No trades in this chunk.\n\n")
				continue
			}
			sb.WriteString("| Token | Action | Amount | Net |\n")
			sb.WriteString("|-------|--------|--------|-----|\n")
			for _, tr := range chunk.Trades {
				sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
					tr.TokenSymbol, strings.ToUpper(string(tr.Action)),
					common.FormatMoney(tr.Amount), common.FormatMoney(tr.NetAmount)))
			}
			sb.WriteString("\n")
		}
	}

	// Execution plan
	if len(data.ExecutionSteps) > 0 {
		sb.WriteString("## Execution Plan\n\n")
		sb.WriteString("| Step | Token | Action | Amount | Costs | Net | Running Cash |\n")
		sb.WriteString("|------|-------|--------|--------|-------|-----|-------------|\n")
		for _, step := range data.ExecutionSteps {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s | %s |\n",
				step.Step, step.TokenSymbol, strings.ToUpper(string(step.Action)),
				common.FormatMoney(step.Amount),
				common.FormatMoney(step.EstimatedSlippage+step.EstimatedFee),
				common.FormatMoney(step.NetAmount), common.FormatSignedMoney(step.RunningCash)))
		}
		sb.WriteString("\n")
	}

	// Alerts
	if len(alerts) > 0 {
		sb.WriteString("## Alerts\n\n")
		for _, alert := range alerts {
			tag := "info"
			switch alert.Severity {
			case models.SeverityHigh:
				tag = "HIGH"
			case models.SeverityMedium:
				tag = "MEDIUM"
			}
			sb.WriteString(fmt.Sprintf("- [%s] **%s**: %s\n", tag, alert.TokenSymbol, alert.Message))
		}
		sb.WriteString("\n")
	}

	// AI narrative
	if narrative != "" {
		sb.WriteString("## Summary\n\n")
		sb.WriteString(narrative)
		sb.WriteString("\n\n")
	}

	// Settings in effect
	sb.WriteString("## Settings\n\n")
	sb.WriteString("| Setting | Value |\n")
	sb.WriteString("|---------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Strategy | %s |\n", settings.Strategy))
	sb.WriteString(fmt.Sprintf("| Hold zone | %s |\n", common.FormatPct(settings.HoldZonePercent)))
	sb.WriteString(fmt.Sprintf("| Min trade | %s |\n", common.FormatMoney(settings.MinTradeUsd)))
	sb.WriteString(fmt.Sprintf("| Buy-only mode | %s |\n", onOff(settings.BuyOnlyMode)))
	sb.WriteString(fmt.Sprintf("| New cash | %s |\n", common.FormatMoney(settings.NewCashUsd)))
	sb.WriteString(fmt.Sprintf("| Cash reserve | %s + %s |\n",
		common.FormatMoney(settings.CashReserveUsd), common.FormatPct(settings.CashReservePercent)))
	sb.WriteString(fmt.Sprintf("| Dust threshold | %s |\n", common.FormatMoney(settings.DustThresholdUsd)))
	sb.WriteString(fmt.Sprintf("| Slippage | %s |\n", common.FormatPct(settings.SlippagePercent)))
	sb.WriteString(fmt.Sprintf("| Trading fee | %s |\n", common.FormatPct(settings.TradingFeePercent)))
	sb.WriteString(fmt.Sprintf("| Concentration threshold | %s |\n", common.FormatPct(settings.ConcentrationThresholdPercent)))
	switch settings.Strategy {
	case models.StrategyCalendar:
		sb.WriteString(fmt.Sprintf("| Interval | %s |\n", settings.Interval))
		if !settings.LastRebalanceDate.IsZero() {
			sb.WriteString(fmt.Sprintf("| Last rebalance | %s |\n", settings.LastRebalanceDate.Format("2006-01-02")))
		}
	case models.StrategyPercentOfPortfolio:
		sb.WriteString(fmt.Sprintf("| Change threshold | %s |\n", common.FormatPct(settings.PortfolioChangeThreshold)))
	case models.StrategyRiskParity:
		sb.WriteString(fmt.Sprintf("| Volatility lookback | %d days |\n", settings.RiskParityLookbackDays))
	case models.StrategyDCAWeighted:
		sb.WriteString(fmt.Sprintf("| DCA split | %d chunks every %d days |\n", settings.DCASplitCount, settings.DCAIntervalDays))
	}

	return sb.String()
}

// suggestionLabel renders the token cell, flagging groups and untargeted
// positions.
func suggestionLabel(s models.Suggestion) string {
	label := s.TokenSymbol
	if s.IsGroup {
		label += " (group)"
	}
	if s.IsUntargeted {
		label += " (untargeted)"
	}
	return label
}

// formatAction renders the action cell, flagging dust suppressions.
func formatAction(s models.Suggestion) string {
	action := strings.ToUpper(string(s.Action))
	if s.IsDust {
		action += " (dust)"
	}
	return action
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// narrativePrompt condenses the suggestion set into a prompt for the
// advisor. The advisor describes, never recommends.
func narrativePrompt(data *models.SuggestionsData) string {
	var sb strings.Builder
	sb.WriteString("Write a short narrative (3 to 5 sentences) for a personal crypto portfolio rebalance report. ")
	sb.WriteString("Describe what the numbers show in plain language. Do not give financial advice or predictions.\n\n")
	sb.WriteString(fmt.Sprintf("Strategy: %s\n", data.Strategy))
	sb.WriteString(fmt.Sprintf("Portfolio value: %.2f USD\n", data.TotalValueUsd))
	sb.WriteString(fmt.Sprintf("Total drift from targets: %.1f%%\n", data.Summary.PortfolioDrift))
	sb.WriteString(fmt.Sprintf("Suggested trades: %d (%d buys, %d sells), volume %.2f USD, estimated costs %.2f USD\n",
		data.Summary.TradeCount, data.Summary.BuyCount, data.Summary.SellCount,
		data.Summary.TotalVolume, data.Summary.TotalEstimatedFees))
	for _, t := range data.Targets {
		if t.Action == models.ActionHold {
			continue
		}
		sb.WriteString(fmt.Sprintf("- %s %s: %.2f USD (deviation %+.1f%%)\n",
			strings.ToUpper(string(t.Action)), t.TokenSymbol, t.Amount, t.Deviation))
	}
	return sb.String()
}
