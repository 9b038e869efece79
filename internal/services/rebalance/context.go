package rebalance

import (
	"math"
	"strings"

	"github.com/stakd-me/stakd-sub000/internal/models"
)

// mergedTarget is one allocation row after duplicate keys are summed.
// A key naming a token group exactly beats the symbol reading.
type mergedTarget struct {
	key           string // group name or normalized symbol
	isGroup       bool
	targetPercent float64
	coingeckoID   string
	currentValue  float64
	members       []string // group member symbols, normalized
}

// strategyContext carries everything the strategies share for one run.
type strategyContext struct {
	settings models.RebalanceSettings

	totalValue           float64
	effectiveTotal       float64
	effectiveCashReserve float64
	investableTotal      float64
	stablecoinValue      float64

	symbolValues map[string]float64
	stablecoins  map[string]bool
	ids          map[string]string // symbol → resolved CoinGecko id
	targets      []mergedTarget    // first-seen order
	targeted     map[string]bool   // symbols covered directly or via a group
}

// buildContext derives the shared strategy inputs from the vault and the
// valuation summary.
func buildContext(vault *models.VaultData, summary *models.PortfolioSummary, settings models.RebalanceSettings) *strategyContext {
	ctx := &strategyContext{
		settings:     settings,
		totalValue:   summary.TotalValueUsd,
		symbolValues: summary.SymbolValues,
		stablecoins:  vault.StablecoinSet(),
		targeted:     make(map[string]bool),
	}
	if ctx.symbolValues == nil {
		ctx.symbolValues = map[string]float64{}
	}

	groups := vault.GroupByName()
	ctx.ids = vault.ResolveCoingeckoIDs()

	// Merge duplicate target rows by key, summing percentages. The first
	// non-empty CoinGecko id for a key wins.
	index := make(map[string]int)
	for _, target := range vault.RebalanceTargets {
		rawKey := strings.TrimSpace(target.TokenSymbol)
		if rawKey == "" {
			continue
		}

		group, isGroup := groups[rawKey]
		key := rawKey
		if !isGroup {
			key = models.NormalizeSymbol(rawKey)
		}

		if i, ok := index[key]; ok {
			ctx.targets[i].targetPercent += target.TargetPercent.Float()
			if ctx.targets[i].coingeckoID == "" {
				ctx.targets[i].coingeckoID = models.NormalizeCoingeckoID(target.CoingeckoID)
			}
			continue
		}

		merged := mergedTarget{
			key:           key,
			isGroup:       isGroup,
			targetPercent: target.TargetPercent.Float(),
			coingeckoID:   models.NormalizeCoingeckoID(target.CoingeckoID),
		}
		if isGroup {
			for _, member := range group.Symbols {
				merged.members = append(merged.members, models.NormalizeSymbol(member))
			}
		}
		index[key] = len(ctx.targets)
		ctx.targets = append(ctx.targets, merged)
	}

	// Per-target current value and id resolution, plus the covered-symbol
	// set the post-processor needs for untargeted rows.
	for i := range ctx.targets {
		t := &ctx.targets[i]
		if t.isGroup {
			for _, member := range t.members {
				t.currentValue += ctx.symbolValues[member]
				ctx.targeted[member] = true
			}
			continue
		}
		t.currentValue = ctx.symbolValues[t.key]
		ctx.targeted[t.key] = true
		if t.coingeckoID == "" {
			t.coingeckoID = ctx.ids[t.key]
		}
	}

	ctx.effectiveTotal = ctx.totalValue
	if settings.BuyOnlyMode {
		ctx.effectiveTotal += settings.NewCashUsd
	}

	if settings.TreatStablecoinsAsCash {
		for symbol, value := range ctx.symbolValues {
			if ctx.stablecoins[symbol] {
				ctx.stablecoinValue += value
			}
		}
	}

	ctx.effectiveCashReserve = math.Max(settings.CashReserveUsd, ctx.effectiveTotal*settings.CashReservePercent/100)
	ctx.effectiveCashReserve += ctx.stablecoinValue
	ctx.investableTotal = math.Max(0, ctx.effectiveTotal-ctx.effectiveCashReserve)

	return ctx
}

// currentPercent is the share of the effective total, zero when the
// portfolio is empty.
func (c *strategyContext) currentPercent(value float64) float64 {
	if c.effectiveTotal <= 0 {
		return 0
	}
	return value / c.effectiveTotal * 100
}
