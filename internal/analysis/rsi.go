package analysis

import "fmt"

// DefaultRSIPeriod is the conventional RSI lookback.
const DefaultRSIPeriod = 14

// RSI calculates the Relative Strength Index over the most recent `period`
// price deltas. The result is in [0, 100].
//
// Edge cases are explicit to avoid division by zero: a flat window (no gains
// and no losses) is neutral at exactly 50; a window with gains and no losses
// is 100.
func RSI(prices []float64, period int) (float64, error) {
	if period < 1 {
		return 0, fmt.Errorf("invalid period: %d (must be at least 1)", period)
	}
	if len(prices) < period+1 {
		return 0, insufficientData("rsi", period+1, len(prices))
	}

	// Most recent `period` deltas.
	window := prices[len(prices)-period-1:]

	var gains, losses float64
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta >= 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	switch {
	case avgLoss == 0 && avgGain == 0:
		return 50, nil
	case avgLoss == 0:
		return 100, nil
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), nil
}
