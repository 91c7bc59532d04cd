package analysis

import "fmt"

// MovingAverage calculates the simple moving average over a sliding window.
// The result has length len(prices)-period+1; each element is the arithmetic
// mean of a contiguous window of `period` prices.
func MovingAverage(prices []float64, period int) ([]float64, error) {
	if period < 1 {
		return nil, fmt.Errorf("invalid period: %d (must be at least 1)", period)
	}
	if len(prices) < period {
		return nil, insufficientData("moving_average", period, len(prices))
	}

	result := make([]float64, 0, len(prices)-period+1)

	// Rolling sum instead of re-summing each window.
	var sum float64
	for _, p := range prices[:period] {
		sum += p
	}
	result = append(result, sum/float64(period))

	for i := period; i < len(prices); i++ {
		sum += prices[i] - prices[i-period]
		result = append(result, sum/float64(period))
	}

	return result, nil
}

// EMA calculates the exponential moving average with smoothing factor
// 2/(period+1), seeded by the simple moving average of the first `period`
// prices. The result has length len(prices)-period+1.
func EMA(prices []float64, period int) ([]float64, error) {
	if period < 1 {
		return nil, fmt.Errorf("invalid period: %d (must be at least 1)", period)
	}
	if len(prices) < period {
		return nil, insufficientData("ema", period, len(prices))
	}

	var seed float64
	for _, p := range prices[:period] {
		seed += p
	}
	seed /= float64(period)

	multiplier := 2.0 / float64(period+1)

	result := make([]float64, 0, len(prices)-period+1)
	result = append(result, seed)

	ema := seed
	for _, p := range prices[period:] {
		ema = (p-ema)*multiplier + ema
		result = append(result, ema)
	}

	return result, nil
}
