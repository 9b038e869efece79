// Package portfolio computes holdings and valuation from the vault ledger
package portfolio

import (
	"math"
	"sort"

	"github.com/stakd-me/stakd-sub000/internal/models"
)

// ComputeHoldings aggregates the full ledger into per-token positions.
// Pure: same inputs produce the same output, missing prices degrade to
// zero value, and nothing here returns an error.
//
// Positions are keyed by symbol + CoinGecko id so one symbol held under
// two ids stays two rows. currentQty carries the raw net quantity and may
// go negative on incomplete ledgers; valuation clamps at zero without
// rewriting the ledger's arithmetic.
func ComputeHoldings(transactions []models.Transaction, manualEntries []models.ManualEntry, prices models.PriceMap) []models.Holding {
	byKey := make(map[string]*models.Holding)

	holdingFor := func(symbol, name, coingeckoID string) *models.Holding {
		key := models.HoldingKey(symbol, coingeckoID)
		h, ok := byKey[key]
		if !ok {
			h = &models.Holding{
				TokenSymbol: models.NormalizeSymbol(symbol),
				CoingeckoID: models.NormalizeCoingeckoID(coingeckoID),
			}
			byKey[key] = h
		}
		if h.TokenName == "" && name != "" {
			h.TokenName = name
		}
		return h
	}

	for _, tx := range transactions {
		h := holdingFor(tx.TokenSymbol, tx.TokenName, tx.CoingeckoID)

		qty := tx.Quantity.Float()
		price := tx.PricePerUnit.Float()
		fee := tx.Fee.Float()
		h.TotalFees += fee

		switch tx.Type {
		case models.TransactionBuy:
			h.BuyQty += qty
			h.TotalBuyCost += qty*price + fee
		case models.TransactionSell:
			h.SellQty += qty
			h.TotalSellRevenue += qty*price - fee
		case models.TransactionReceive:
			h.ReceiveQty += qty
		case models.TransactionSend:
			h.SendQty += qty
		}
	}

	// Manual entries contribute quantity only and never carry basis.
	for _, entry := range manualEntries {
		h := holdingFor(entry.TokenSymbol, entry.TokenName, entry.CoingeckoID)
		h.ManualQty += entry.Quantity.Float()
	}

	holdings := make([]models.Holding, 0, len(byKey))
	for _, h := range byKey {
		h.CurrentQty = h.BuyQty + h.ReceiveQty + h.ManualQty - h.SellQty - h.SendQty

		if h.BuyQty > 0 {
			h.AvgCostBasis = h.TotalBuyCost / h.BuyQty
		}

		if quote, ok := prices[h.CoingeckoID]; ok {
			h.CurrentPrice = quote.Usd
		}

		valuedQty := math.Max(h.CurrentQty, 0)
		h.CurrentValue = valuedQty * h.CurrentPrice
		h.UnrealizedPL = valuedQty * (h.CurrentPrice - h.AvgCostBasis)
		if h.AvgCostBasis > 0 {
			h.UnrealizedPLPercent = (h.CurrentPrice - h.AvgCostBasis) / h.AvgCostBasis * 100
		}
		h.RealizedPL = h.TotalSellRevenue - h.SellQty*h.AvgCostBasis

		holdings = append(holdings, *h)
	}

	sort.Slice(holdings, func(i, j int) bool {
		if holdings[i].CurrentValue != holdings[j].CurrentValue {
			return holdings[i].CurrentValue > holdings[j].CurrentValue
		}
		if holdings[i].TokenSymbol != holdings[j].TokenSymbol {
			return holdings[i].TokenSymbol < holdings[j].TokenSymbol
		}
		return holdings[i].CoingeckoID < holdings[j].CoingeckoID
	})

	return holdings
}

// ComputeSummary rolls holdings up into portfolio totals. symbolValues
// merges ids sharing one symbol; tokenAllocations is rounded to two
// decimals for display while every internal figure stays unrounded.
func ComputeSummary(holdings []models.Holding) *models.PortfolioSummary {
	summary := &models.PortfolioSummary{
		SymbolValues:     make(map[string]float64),
		TokenAllocations: make(map[string]float64),
	}

	for _, h := range holdings {
		summary.TotalValueUsd += h.CurrentValue
		summary.SymbolValues[h.TokenSymbol] += h.CurrentValue
	}

	if summary.TotalValueUsd > 0 {
		for symbol, value := range summary.SymbolValues {
			summary.TokenAllocations[symbol] = round2(value / summary.TotalValueUsd * 100)
		}
	}

	return summary
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
