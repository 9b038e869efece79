package rebalance

import (
	"math"
	"testing"
	"time"

	"github.com/stakd-me/stakd-sub000/internal/models"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func approxEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

// position builds a manual entry so tests control value purely through
// quantity × price, without cost-basis noise.
func position(symbol, id string, qty float64) models.ManualEntry {
	return models.ManualEntry{TokenSymbol: symbol, CoingeckoID: id, Quantity: models.FlexFloat(qty)}
}

func target(key, id string, percent float64) models.RebalanceTarget {
	return models.RebalanceTarget{TokenSymbol: key, CoingeckoID: id, TargetPercent: models.FlexFloat(percent)}
}

func quote(usd float64) models.PriceQuote {
	return models.PriceQuote{Usd: usd}
}

// twoTokenVault holds BTC worth 8000 and ETH worth 2000 against 50/50
// targets, so the deviations are +30 and -30 points.
func twoTokenVault(settings map[string]string) (*models.VaultData, models.PriceMap) {
	vault := &models.VaultData{
		ManualEntries: []models.ManualEntry{
			position("BTC", "bitcoin", 2),
			position("ETH", "ethereum", 1),
		},
		RebalanceTargets: []models.RebalanceTarget{
			target("BTC", "bitcoin", 50),
			target("ETH", "ethereum", 50),
		},
		Settings: settings,
	}
	prices := models.PriceMap{
		"bitcoin":  quote(4000),
		"ethereum": quote(2000),
	}
	return vault, prices
}

func rowFor(t *testing.T, data *models.SuggestionsData, symbol string) models.Suggestion {
	t.Helper()
	for _, s := range data.Targets {
		if s.TokenSymbol == symbol {
			return s
		}
	}
	t.Fatalf("no suggestion row for %s", symbol)
	return models.Suggestion{}
}

func TestThreshold_SizesBuyAndSell(t *testing.T) {
	vault, prices := twoTokenVault(map[string]string{"rebalanceStrategy": "threshold"})

	data := ComputeSuggestions(vault, prices, nil, testNow, "")

	if data.Strategy != models.StrategyThreshold {
		t.Fatalf("strategy = %s, want threshold", data.Strategy)
	}
	if !approxEqual(data.EffectiveTotal, 10000, 0.001) {
		t.Errorf("EffectiveTotal = %.2f, want 10000", data.EffectiveTotal)
	}

	btc := rowFor(t, data, "BTC")
	if btc.Action != models.ActionSell {
		t.Errorf("BTC action = %s, want sell", btc.Action)
	}
	if !approxEqual(btc.CurrentPercent, 80, 0.001) || !approxEqual(btc.Deviation, 30, 0.001) {
		t.Errorf("BTC percent/deviation = %.2f/%.2f, want 80/30", btc.CurrentPercent, btc.Deviation)
	}
	if !approxEqual(btc.TargetValue, 5000, 0.001) || !approxEqual(btc.Amount, 3000, 0.001) {
		t.Errorf("BTC target/amount = %.2f/%.2f, want 5000/3000", btc.TargetValue, btc.Amount)
	}
	// 0.5% slippage and 0.1% fee on 3000, subtracted from sell proceeds
	if !approxEqual(btc.EstimatedSlippage, 15, 0.001) || !approxEqual(btc.EstimatedFee, 3, 0.001) {
		t.Errorf("BTC slippage/fee = %.2f/%.2f, want 15/3", btc.EstimatedSlippage, btc.EstimatedFee)
	}
	if !approxEqual(btc.NetAmount, 2982, 0.001) {
		t.Errorf("BTC net = %.2f, want 2982", btc.NetAmount)
	}

	eth := rowFor(t, data, "ETH")
	if eth.Action != models.ActionBuy {
		t.Errorf("ETH action = %s, want buy", eth.Action)
	}
	if !approxEqual(eth.NetAmount, 3018, 0.001) {
		t.Errorf("ETH net = %.2f, want 3018 (amount plus costs)", eth.NetAmount)
	}
}

func TestThreshold_HoldZoneGates(t *testing.T) {
	vault, prices := twoTokenVault(map[string]string{"rebalanceStrategy": "threshold"})
	vault.RebalanceTargets = []models.RebalanceTarget{
		target("BTC", "bitcoin", 78),
		target("ETH", "ethereum", 22),
	}

	data := ComputeSuggestions(vault, prices, nil, testNow, "")

	for _, symbol := range []string{"BTC", "ETH"} {
		row := rowFor(t, data, symbol)
		if row.Action != models.ActionHold {
			t.Errorf("%s action = %s, want hold inside the zone", symbol, row.Action)
		}
		if row.Amount != 0 || row.NetAmount != 0 {
			t.Errorf("%s hold carries amounts %.2f/%.2f, want 0", symbol, row.Amount, row.NetAmount)
		}
	}
}

func TestThreshold_MinTradeGates(t *testing.T) {
	vault := &models.VaultData{
		ManualEntries: []models.ManualEntry{
			position("BTC", "bitcoin", 0.02),
			position("ETH", "ethereum", 0.01),
		},
		RebalanceTargets: []models.RebalanceTarget{
			target("BTC", "bitcoin", 50),
			target("ETH", "ethereum", 50),
		},
		Settings: map[string]string{"rebalanceStrategy": "threshold"},
	}
	prices := models.PriceMap{"bitcoin": quote(4000), "ethereum": quote(2000)}

	data := ComputeSuggestions(vault, prices, nil, testNow, "")

	// 30-point deviations but only 30 USD to move, below the 50 minimum
	btc := rowFor(t, data, "BTC")
	if btc.Action != models.ActionHold {
		t.Errorf("BTC action = %s, want hold below min trade", btc.Action)
	}
}

func TestThreshold_BuyOnlyForcesSellToHold(t *testing.T) {
	vault, prices := twoTokenVault(map[string]string{
		"rebalanceStrategy": "threshold",
		"buyOnlyMode":       "1",
	})

	data := ComputeSuggestions(vault, prices, nil, testNow, "")

	btc := rowFor(t, data, "BTC")
	if btc.Action != models.ActionHold {
		t.Errorf("BTC action = %s, want hold in buy-only mode", btc.Action)
	}
	if btc.Amount != 0 {
		t.Errorf("BTC amount = %.2f, want 0", btc.Amount)
	}
	eth := rowFor(t, data, "ETH")
	if eth.Action != models.ActionBuy {
		t.Errorf("ETH action = %s, buys must survive buy-only mode", eth.Action)
	}
}

func TestThreshold_EmptyTargetsYieldsUntargetedHoldsOnly(t *testing.T) {
	vault, prices := twoTokenVault(map[string]string{"rebalanceStrategy": "threshold"})
	vault.RebalanceTargets = nil

	data := ComputeSuggestions(vault, prices, nil, testNow, "")

	if len(data.Targets) != 2 {
		t.Fatalf("rows = %d, want 2 untargeted positions", len(data.Targets))
	}
	for _, row := range data.Targets {
		if !row.IsUntargeted || row.Action != models.ActionHold {
			t.Errorf("%s untargeted/action = %v/%s, want true/hold", row.TokenSymbol, row.IsUntargeted, row.Action)
		}
	}
	if data.Summary.TradeCount != 0 {
		t.Errorf("TradeCount = %d, want 0", data.Summary.TradeCount)
	}
}

func TestThreshold_EmptyPortfolioHoldsEverything(t *testing.T) {
	vault := &models.VaultData{
		RebalanceTargets: []models.RebalanceTarget{
			target("BTC", "bitcoin", 50),
			target("ETH", "ethereum", 50),
		},
		Settings: map[string]string{"rebalanceStrategy": "threshold"},
	}

	data := ComputeSuggestions(vault, models.PriceMap{}, nil, testNow, "")

	if data.EffectiveTotal != 0 {
		t.Fatalf("EffectiveTotal = %.2f, want 0", data.EffectiveTotal)
	}
	for _, row := range data.Targets {
		if row.Action != models.ActionHold {
			t.Errorf("%s action = %s, want hold when nothing is valued", row.TokenSymbol, row.Action)
		}
	}
}

func TestStrategyOverride_ReplacesSetting(t *testing.T) {
	vault, prices := twoTokenVault(map[string]string{"rebalanceStrategy": "threshold"})

	data := ComputeSuggestions(vault, prices, nil, testNow, "calendar")

	if data.Strategy != models.StrategyCalendar {
		t.Errorf("strategy = %s, want calendar from the override", data.Strategy)
	}
}

func TestCalendar_BlockedInsideWindow(t *testing.T) {
	vault, prices := twoTokenVault(map[string]string{
		"rebalanceStrategy": "calendar",
		"rebalanceInterval": "monthly",
		"lastRebalanceDate": "2025-06-01",
	})

	data := ComputeSuggestions(vault, prices, nil, testNow, "")

	if !data.CalendarBlocked {
		t.Fatal("CalendarBlocked = false, want blocked until July 1")
	}
	if data.NextRebalanceDate != "2025-07-01" {
		t.Errorf("NextRebalanceDate = %s, want 2025-07-01", data.NextRebalanceDate)
	}
	for _, row := range data.Targets {
		if row.Action != models.ActionHold || row.Amount != 0 {
			t.Errorf("%s = %s/%.2f, want hold/0 while blocked", row.TokenSymbol, row.Action, row.Amount)
		}
	}
}

func TestCalendar_ActsAfterWindow(t *testing.T) {
	vault, prices := twoTokenVault(map[string]string{
		"rebalanceStrategy": "calendar",
		"rebalanceInterval": "monthly",
		"lastRebalanceDate": "2025-04-01",
	})

	data := ComputeSuggestions(vault, prices, nil, testNow, "")

	if data.CalendarBlocked {
		t.Fatal("CalendarBlocked = true, window elapsed on May 1")
	}
	if data.NextRebalanceDate != "2025-05-01" {
		t.Errorf("NextRebalanceDate = %s, want 2025-05-01", data.NextRebalanceDate)
	}
	if rowFor(t, data, "BTC").Action != models.ActionSell {
		t.Error("BTC should sell once the window elapsed")
	}
}

func TestCalendar_InvalidDateNeverBlocks(t *testing.T) {
	vault, prices := twoTokenVault(map[string]string{
		"rebalanceStrategy": "calendar",
		"lastRebalanceDate": "not-a-date",
	})

	data := ComputeSuggestions(vault, prices, nil, testNow, "")

	if data.CalendarBlocked {
		t.Fatal("CalendarBlocked = true, an unparseable date must never block")
	}
	if data.NextRebalanceDate != "" {
		t.Errorf("NextRebalanceDate = %s, want empty without a valid date", data.NextRebalanceDate)
	}
	if rowFor(t, data, "BTC").Action != models.ActionSell {
		t.Error("BTC should sell when the calendar cannot block")
	}
}

func TestCalendar_IntervalWindows(t *testing.T) {
	cases := []struct {
		name     string
		interval string
		last     string
		blocked  bool
	}{
		{"weekly inside", "weekly", "2025-06-10", true},
		{"weekly elapsed", "weekly", "2025-06-01", false},
		{"monthly inside", "monthly", "2025-06-01", true},
		{"quarterly inside", "quarterly", "2025-05-01", true},
		{"quarterly elapsed", "quarterly", "2025-02-01", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vault, prices := twoTokenVault(map[string]string{
				"rebalanceStrategy": "calendar",
				"rebalanceInterval": tc.interval,
				"lastRebalanceDate": tc.last,
			})
			data := ComputeSuggestions(vault, prices, nil, testNow, "")
			if data.CalendarBlocked != tc.blocked {
				t.Errorf("blocked = %v, want %v", data.CalendarBlocked, tc.blocked)
			}
		})
	}
}

func TestPercentOfPortfolio_TriggersOnImpactNotZone(t *testing.T) {
	// 2-point deviations stay inside the 5-point hold zone, but a 2%
	// portfolio impact clears a 1% change threshold.
	vault, prices := twoTokenVault(map[string]string{
		"portfolioChangeThreshold": "1",
	})
	vault.RebalanceTargets = []models.RebalanceTarget{
		target("BTC", "bitcoin", 78),
		target("ETH", "ethereum", 22),
	}

	data := ComputeSuggestions(vault, prices, nil, testNow, "")

	if data.Strategy != models.StrategyPercentOfPortfolio {
		t.Fatalf("strategy = %s, want the percent-of-portfolio default", data.Strategy)
	}
	btc := rowFor(t, data, "BTC")
	if btc.Action != models.ActionSell {
		t.Errorf("BTC action = %s, want sell on impact trigger", btc.Action)
	}
	if !approxEqual(btc.PortfolioImpact, 2, 0.001) {
		t.Errorf("BTC impact = %.2f, want 2", btc.PortfolioImpact)
	}
}

func TestPercentOfPortfolio_HoldsBelowImpactThreshold(t *testing.T) {
	// 30-point deviations, but the 30% impact stays under a 40% threshold.
	vault, prices := twoTokenVault(map[string]string{
		"portfolioChangeThreshold": "40",
	})

	data := ComputeSuggestions(vault, prices, nil, testNow, "")

	for _, symbol := range []string{"BTC", "ETH"} {
		if row := rowFor(t, data, symbol); row.Action != models.ActionHold {
			t.Errorf("%s action = %s, want hold below the impact threshold", symbol, row.Action)
		}
	}
}

func TestRiskParity_ReweightsByInverseVolatility(t *testing.T) {
	vault, prices := twoTokenVault(map[string]string{"rebalanceStrategy": "risk-parity"})
	vault.RebalanceTargets = []models.RebalanceTarget{
		target("BTC", "bitcoin", 60),
		target("ETH", "ethereum", 40),
	}
	volatility := models.VolatilityMap{
		"bitcoin":  {Volatility: 20},
		"ethereum": {Volatility: 80},
	}

	data := ComputeSuggestions(vault, prices, volatility, testNow, "")

	if len(data.RiskParityTargets) != 2 {
		t.Fatalf("risk parity reports = %d, want 2", len(data.RiskParityTargets))
	}
	btc := data.RiskParityTargets[0]
	if !approxEqual(btc.OriginalPercent, 60, 0.001) || !approxEqual(btc.AdjustedPercent, 80, 0.001) {
		t.Errorf("BTC original/adjusted = %.2f/%.2f, want 60/80", btc.OriginalPercent, btc.AdjustedPercent)
	}
	if !approxEqual(btc.Volatility, 20, 0.001) {
		t.Errorf("BTC volatility = %.2f, want 20", btc.Volatility)
	}

	// Portfolio sits exactly on the adjusted weights, so nothing trades.
	if rowFor(t, data, "BTC").Action != models.ActionHold {
		t.Error("BTC should hold at its adjusted target")
	}
	if !approxEqual(rowFor(t, data, "BTC").TargetPercent, 80, 0.001) {
		t.Error("BTC suggestion should carry the adjusted target percent")
	}
}

func TestRiskParity_RoundingResidualGoesToLargestWeight(t *testing.T) {
	vault := &models.VaultData{
		ManualEntries: []models.ManualEntry{
			position("BTC", "bitcoin", 3),
			position("ETH", "ethereum", 1.5),
			position("SOL", "solana", 40),
		},
		RebalanceTargets: []models.RebalanceTarget{
			target("BTC", "bitcoin", 30),
			target("ETH", "ethereum", 30),
			target("SOL", "solana", 40),
		},
		Settings: map[string]string{"rebalanceStrategy": "risk-parity"},
	}
	prices := models.PriceMap{"bitcoin": quote(1000), "ethereum": quote(2000), "solana": quote(100)}
	// Equal volatility: each share rounds to 33.33 and the residual 0.01
	// lands on the first (largest-weight) entry.
	volatility := models.VolatilityMap{
		"bitcoin":  {Volatility: 30},
		"ethereum": {Volatility: 30},
		"solana":   {Volatility: 30},
	}

	data := ComputeSuggestions(vault, prices, volatility, testNow, "")

	if len(data.RiskParityTargets) != 3 {
		t.Fatalf("risk parity reports = %d, want 3", len(data.RiskParityTargets))
	}
	adjusted := []float64{
		data.RiskParityTargets[0].AdjustedPercent,
		data.RiskParityTargets[1].AdjustedPercent,
		data.RiskParityTargets[2].AdjustedPercent,
	}
	if !approxEqual(adjusted[0], 33.34, 0.001) || !approxEqual(adjusted[1], 33.33, 0.001) || !approxEqual(adjusted[2], 33.33, 0.001) {
		t.Errorf("adjusted = %v, want [33.34 33.33 33.33]", adjusted)
	}
	if sum := adjusted[0] + adjusted[1] + adjusted[2]; !approxEqual(sum, 100, 0.0001) {
		t.Errorf("adjusted sum = %.4f, want exactly the original 100", sum)
	}
}

func TestRiskParity_FallsBackWhenVolatilityMissing(t *testing.T) {
	vault, prices := twoTokenVault(map[string]string{"rebalanceStrategy": "risk-parity"})
	vault.RebalanceTargets = []models.RebalanceTarget{
		target("BTC", "bitcoin", 60),
		target("ETH", "ethereum", 40),
	}
	volatility := models.VolatilityMap{"bitcoin": {Volatility: 20}} // ethereum missing

	data := ComputeSuggestions(vault, prices, volatility, testNow, "")

	if data.RiskParityTargets != nil {
		t.Fatal("RiskParityTargets surfaced despite missing volatility")
	}
	// Literal targets stand: BTC 80% vs 60% deviates 20 points.
	btc := rowFor(t, data, "BTC")
	if btc.Action != models.ActionSell || !approxEqual(btc.TargetPercent, 60, 0.001) {
		t.Errorf("BTC = %s@%.2f, want sell against the literal 60%% target", btc.Action, btc.TargetPercent)
	}
}

func TestDCA_SplitsTradesAcrossChunks(t *testing.T) {
	vault, prices := twoTokenVault(map[string]string{"rebalanceStrategy": "dca-weighted"})

	data := ComputeSuggestions(vault, prices, nil, testNow, "")

	if len(data.DCAChunks) != 4 {
		t.Fatalf("chunks = %d, want the default 4", len(data.DCAChunks))
	}

	btc := rowFor(t, data, "BTC")
	if !approxEqual(btc.Amount, 750, 0.001) {
		t.Errorf("BTC per-chunk amount = %.2f, want 3000/4", btc.Amount)
	}
	if !approxEqual(btc.EstimatedSlippage, 3.75, 0.001) || !approxEqual(btc.EstimatedFee, 0.75, 0.001) {
		t.Errorf("BTC per-chunk slippage/fee = %.2f/%.2f, want 3.75/0.75", btc.EstimatedSlippage, btc.EstimatedFee)
	}

	var total float64
	for i, chunk := range data.DCAChunks {
		if chunk.Index != i {
			t.Errorf("chunk index = %d, want %d", chunk.Index, i)
		}
		want := testNow.AddDate(0, 0, i*7)
		if !chunk.ScheduledAt.Equal(want) {
			t.Errorf("chunk %d scheduled %s, want %s", i, chunk.ScheduledAt, want)
		}
		if len(chunk.Trades) != 2 {
			t.Fatalf("chunk %d trades = %d, want 2", i, len(chunk.Trades))
		}
		for _, trade := range chunk.Trades {
			if trade.TokenSymbol == "BTC" {
				total += trade.Amount
			}
		}
	}
	if !approxEqual(total, 3000, 0.001) {
		t.Errorf("BTC chunk amounts sum = %.2f, want the un-split 3000", total)
	}
}

func TestDCA_ClampsSplitAndInterval(t *testing.T) {
	vault, prices := twoTokenVault(map[string]string{
		"rebalanceStrategy": "dca-weighted",
		"dcaSplitCount":     "0",
		"dcaIntervalDays":   "-3",
	})

	data := ComputeSuggestions(vault, prices, nil, testNow, "")

	if len(data.DCAChunks) != 1 {
		t.Fatalf("chunks = %d, want 1 after clamping", len(data.DCAChunks))
	}
	if !approxEqual(rowFor(t, data, "BTC").Amount, 3000, 0.001) {
		t.Error("single chunk must keep the full amount")
	}
}

func TestDCA_NoChunksWhenNothingActionable(t *testing.T) {
	vault, prices := twoTokenVault(map[string]string{"rebalanceStrategy": "dca-weighted"})
	vault.RebalanceTargets = []models.RebalanceTarget{
		target("BTC", "bitcoin", 78),
		target("ETH", "ethereum", 22),
	}

	data := ComputeSuggestions(vault, prices, nil, testNow, "")

	if data.DCAChunks != nil {
		t.Errorf("chunks = %d, want none for an all-hold pass", len(data.DCAChunks))
	}
}
