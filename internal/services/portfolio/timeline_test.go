package portfolio

import (
	"testing"
	"time"

	"github.com/stakd-me/stakd-sub000/internal/models"
)

func datedTx(tx models.Transaction, day int) models.Transaction {
	tx.TransactedAt = time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC)
	return tx
}

func TestComputeRealizedTimeline_SimpleProfitableSell(t *testing.T) {
	txs := []models.Transaction{
		datedTx(buyTx("BTC", "bitcoin", 10, 10, 0), 1),
		datedTx(sellTx("BTC", "bitcoin", 5, 20, 0), 2),
	}

	result := ComputeRealizedTimeline(txs)
	if len(result.Timeline) != 1 {
		t.Fatalf("timeline = %d points, want 1", len(result.Timeline))
	}

	p := result.Timeline[0]
	// pool (100, 10) → avgCost 10; sellPrice = 100/5 = 20; pl = (20-10)*5 = 50
	if !approxEqual(p.AvgCost, 10, 0.001) {
		t.Errorf("AvgCost = %.4f, want 10", p.AvgCost)
	}
	if !approxEqual(p.SellPrice, 20, 0.001) {
		t.Errorf("SellPrice = %.4f, want 20", p.SellPrice)
	}
	if !approxEqual(p.PL, 50, 0.001) {
		t.Errorf("PL = %.4f, want 50", p.PL)
	}
	if !approxEqual(result.TotalRealizedPL, 50, 0.001) {
		t.Errorf("TotalRealizedPL = %.4f, want 50", result.TotalRealizedPL)
	}
}

func TestComputeRealizedTimeline_SellFeeReducesSellPrice(t *testing.T) {
	txs := []models.Transaction{
		datedTx(buyTx("BTC", "bitcoin", 1, 100, 0), 1),
		datedTx(sellTx("BTC", "bitcoin", 1, 150, 10), 2),
	}

	p := ComputeRealizedTimeline(txs).Timeline[0]
	// sellPrice = (150 - 10) / 1 = 140; pl = 140 - 100 = 40
	if !approxEqual(p.SellPrice, 140, 0.001) {
		t.Errorf("SellPrice = %.4f, want 140", p.SellPrice)
	}
	if !approxEqual(p.PL, 40, 0.001) {
		t.Errorf("PL = %.4f, want 40", p.PL)
	}
}

func TestComputeRealizedTimeline_PoolReducedProportionally(t *testing.T) {
	txs := []models.Transaction{
		datedTx(buyTx("ETH", "ethereum", 10, 10, 0), 1),
		datedTx(buyTx("ETH", "ethereum", 10, 20, 0), 2),
		datedTx(sellTx("ETH", "ethereum", 10, 30, 0), 3),
		datedTx(sellTx("ETH", "ethereum", 10, 30, 0), 4),
	}

	result := ComputeRealizedTimeline(txs)
	if len(result.Timeline) != 2 {
		t.Fatalf("timeline = %d points, want 2", len(result.Timeline))
	}

	// pool (300, 20) → avg 15 for both sells: reduction keeps the average
	if !approxEqual(result.Timeline[0].AvgCost, 15, 0.001) {
		t.Errorf("first AvgCost = %.4f, want 15", result.Timeline[0].AvgCost)
	}
	if !approxEqual(result.Timeline[1].AvgCost, 15, 0.001) {
		t.Errorf("second AvgCost = %.4f, want 15 after proportional reduction", result.Timeline[1].AvgCost)
	}
	if !approxEqual(result.TotalRealizedPL, 300, 0.001) {
		t.Errorf("TotalRealizedPL = %.4f, want 300", result.TotalRealizedPL)
	}
	if !approxEqual(result.Timeline[1].CumulativePL, 300, 0.001) {
		t.Errorf("CumulativePL = %.4f, want 300", result.Timeline[1].CumulativePL)
	}
}

func TestComputeRealizedTimeline_InputOrderIrrelevant(t *testing.T) {
	ordered := []models.Transaction{
		datedTx(buyTx("BTC", "bitcoin", 1, 100, 0), 1),
		datedTx(sellTx("BTC", "bitcoin", 1, 200, 0), 2),
	}
	shuffled := []models.Transaction{ordered[1], ordered[0]}

	a := ComputeRealizedTimeline(ordered)
	b := ComputeRealizedTimeline(shuffled)

	if len(a.Timeline) != 1 || len(b.Timeline) != 1 {
		t.Fatalf("timeline lengths = %d/%d, want 1/1", len(a.Timeline), len(b.Timeline))
	}
	if !approxEqual(a.TotalRealizedPL, b.TotalRealizedPL, 1e-9) {
		t.Errorf("totals differ: %.4f vs %.4f", a.TotalRealizedPL, b.TotalRealizedPL)
	}
}

func TestComputeRealizedTimeline_ReceivesAddQuantityOnly(t *testing.T) {
	txs := []models.Transaction{
		datedTx(models.Transaction{TokenSymbol: "ETH", CoingeckoID: "ethereum", Type: models.TransactionReceive, Quantity: 10}, 1),
		datedTx(buyTx("ETH", "ethereum", 10, 20, 0), 2),
		datedTx(sellTx("ETH", "ethereum", 10, 30, 0), 3),
	}

	p := ComputeRealizedTimeline(txs).Timeline[0]
	// pool (200, 20) → avg 10: the received quantity dilutes the basis
	if !approxEqual(p.AvgCost, 10, 0.001) {
		t.Errorf("AvgCost = %.4f, want 10", p.AvgCost)
	}
}

func TestComputeRealizedTimeline_SellIntoEmptyPoolSkipped(t *testing.T) {
	txs := []models.Transaction{
		datedTx(sellTx("BTC", "bitcoin", 1, 100, 0), 1),
	}

	result := ComputeRealizedTimeline(txs)
	if len(result.Timeline) != 0 {
		t.Errorf("timeline = %d points, want 0 for a sell with no inventory", len(result.Timeline))
	}
	if result.TotalRealizedPL != 0 {
		t.Errorf("TotalRealizedPL = %.4f, want 0", result.TotalRealizedPL)
	}
}

func TestComputeRealizedTimeline_SendsIgnored(t *testing.T) {
	txs := []models.Transaction{
		datedTx(buyTx("BTC", "bitcoin", 2, 100, 0), 1),
		datedTx(models.Transaction{TokenSymbol: "BTC", CoingeckoID: "bitcoin", Type: models.TransactionSend, Quantity: 1}, 2),
		datedTx(sellTx("BTC", "bitcoin", 1, 150, 0), 3),
	}

	p := ComputeRealizedTimeline(txs).Timeline[0]
	// pool remains (200, 2): sends are not part of the scan
	if !approxEqual(p.AvgCost, 100, 0.001) {
		t.Errorf("AvgCost = %.4f, want 100", p.AvgCost)
	}
}

// The chronological series prices each sell at the pool average of its
// moment; the holdings view prices every sell at the final average. On a
// ledger with a buy after the sell, the two answers differ and both are
// correct for their method.
func TestRealizedMethods_Disagree(t *testing.T) {
	txs := []models.Transaction{
		datedTx(buyTx("BTC", "bitcoin", 1, 100, 0), 1),
		datedTx(sellTx("BTC", "bitcoin", 1, 200, 0), 2),
		datedTx(buyTx("BTC", "bitcoin", 1, 300, 0), 3),
	}

	timeline := ComputeRealizedTimeline(txs)
	// pool avg at sell time = 100 → pl = 100
	if !approxEqual(timeline.TotalRealizedPL, 100, 0.001) {
		t.Errorf("chronological total = %.4f, want 100", timeline.TotalRealizedPL)
	}

	h := ComputeHoldings(txs, nil, models.PriceMap{})[0]
	// final average = (100+300)/2 = 200 → realized = 200 - 200 = 0
	if !approxEqual(h.RealizedPL, 0, 0.001) {
		t.Errorf("final-average realized = %.4f, want 0", h.RealizedPL)
	}
}
