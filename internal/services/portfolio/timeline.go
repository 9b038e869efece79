package portfolio

import (
	"sort"

	"github.com/stakd-me/stakd-sub000/internal/models"
)

// costPool is the running average-cost inventory for one symbol + id pair.
type costPool struct {
	totalCost float64
	totalQty  float64
}

// ComputeRealizedTimeline replays the ledger in chronological order and
// emits one point per sell. The average cost used for each sell is the
// pool average at that moment, so the series can legitimately disagree
// with Holding.RealizedPL, which prices every sell at the final average.
//
// Buys add cost and quantity, receives add quantity only, sends are not
// part of the scan. The sell price is net of fee, derived from the
// transaction's recorded gross: (totalCost − fee) / quantity.
func ComputeRealizedTimeline(transactions []models.Transaction) *models.RealizedTimeline {
	ordered := make([]models.Transaction, len(transactions))
	copy(ordered, transactions)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].TransactedAt.Equal(ordered[j].TransactedAt) {
			return ordered[i].TransactedAt.Before(ordered[j].TransactedAt)
		}
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	pools := make(map[string]*costPool)
	result := &models.RealizedTimeline{Timeline: []models.RealizedPLPoint{}}

	for _, tx := range ordered {
		key := models.HoldingKey(tx.TokenSymbol, tx.CoingeckoID)
		pool, ok := pools[key]
		if !ok {
			pool = &costPool{}
			pools[key] = pool
		}

		qty := tx.Quantity.Float()

		switch tx.Type {
		case models.TransactionBuy:
			pool.totalCost += qty*tx.PricePerUnit.Float() + tx.Fee.Float()
			pool.totalQty += qty
		case models.TransactionReceive:
			pool.totalQty += qty
		case models.TransactionSell:
			if qty <= 0 || pool.totalQty <= 0 {
				continue
			}
			avgCost := pool.totalCost / pool.totalQty
			sellPrice := (tx.TotalCost.Float() - tx.Fee.Float()) / qty
			pl := (sellPrice - avgCost) * qty

			pool.totalCost -= avgCost * qty
			pool.totalQty -= qty

			result.TotalRealizedPL += pl
			result.Timeline = append(result.Timeline, models.RealizedPLPoint{
				Date:         tx.TransactedAt,
				TokenSymbol:  models.NormalizeSymbol(tx.TokenSymbol),
				Quantity:     qty,
				SellPrice:    sellPrice,
				AvgCost:      avgCost,
				PL:           pl,
				CumulativePL: result.TotalRealizedPL,
			})
		}
	}

	return result
}
