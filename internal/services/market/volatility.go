package market

import "math"

// tradingDaysPerYear annualizes daily returns; crypto trades every day.
const tradingDaysPerYear = 365

// annualizedVolatility computes the sample standard deviation of daily
// log returns over the closes, annualized and expressed in percent.
// Returns false when fewer than two usable returns exist.
func annualizedVolatility(closes []float64) (float64, bool) {
	if len(closes) < 2 {
		return 0, false
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}
	if len(returns) < 2 {
		return 0, false
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear) * 100, true
}
