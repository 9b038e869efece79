package rebalance

import (
	"fmt"
	"math"
	"sort"

	"github.com/stakd-me/stakd-sub000/internal/models"
	"github.com/stakd-me/stakd-sub000/internal/services/portfolio"
)

// ComputeAlerts derives deviation and concentration alerts from the
// vault and a price snapshot. It runs independently of whichever
// strategy is active.
func ComputeAlerts(vault *models.VaultData, prices models.PriceMap) []models.Alert {
	settings := ParseSettings(vault.Settings)
	holdings := portfolio.ComputeHoldings(vault.Transactions, vault.ManualEntries, prices)
	summary := portfolio.ComputeSummary(holdings)
	c := buildContext(vault, summary, settings)

	alerts := deviationAlerts(c)
	return append(alerts, concentrationAlerts(c)...)
}

// deviationAlerts fires for every target outside the hold zone, with
// severity stepping up at two and three times the zone.
func deviationAlerts(c *strategyContext) []models.Alert {
	zone := c.settings.HoldZonePercent
	var alerts []models.Alert

	for _, t := range c.targets {
		current := c.currentPercent(t.currentValue)
		deviation := current - t.targetPercent
		abs := math.Abs(deviation)
		if abs <= zone {
			continue
		}

		severity := models.SeverityLow
		switch {
		case abs > zone*3:
			severity = models.SeverityHigh
		case abs > zone*2:
			severity = models.SeverityMedium
		}

		direction := "above"
		if deviation < 0 {
			direction = "below"
		}

		alerts = append(alerts, models.Alert{
			Type:           models.AlertDeviation,
			Severity:       severity,
			TokenSymbol:    t.key,
			Message:        fmt.Sprintf("%s is %.1f points %s its %.1f%% target", t.key, abs, direction, t.targetPercent),
			CurrentPercent: current,
			TargetPercent:  t.targetPercent,
			Deviation:      deviation,
			Threshold:      zone,
		})
	}
	return alerts
}

// concentrationAlerts fires for any symbol holding more than the
// concentration threshold of the portfolio, targeted or not. Severity
// becomes high past one and a half times the threshold.
func concentrationAlerts(c *strategyContext) []models.Alert {
	threshold := c.settings.ConcentrationThresholdPercent

	symbols := make([]string, 0, len(c.symbolValues))
	for symbol := range c.symbolValues {
		symbols = append(symbols, symbol)
	}
	sort.Slice(symbols, func(i, j int) bool {
		vi, vj := c.symbolValues[symbols[i]], c.symbolValues[symbols[j]]
		if vi != vj {
			return vi > vj
		}
		return symbols[i] < symbols[j]
	})

	var alerts []models.Alert
	for _, symbol := range symbols {
		if c.settings.ExcludeStablecoinsFromConc && c.stablecoins[symbol] {
			continue
		}
		pct := c.currentPercent(c.symbolValues[symbol])
		if pct <= threshold {
			continue
		}

		severity := models.SeverityMedium
		if pct > threshold*1.5 {
			severity = models.SeverityHigh
		}

		alerts = append(alerts, models.Alert{
			Type:           models.AlertConcentration,
			Severity:       severity,
			TokenSymbol:    symbol,
			Message:        fmt.Sprintf("%s is %.1f%% of the portfolio, above the %.1f%% concentration limit", symbol, pct, threshold),
			CurrentPercent: pct,
			Threshold:      threshold,
		})
	}
	return alerts
}
