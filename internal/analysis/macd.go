package analysis

import "fmt"

// Default MACD periods (fast EMA, slow EMA, signal EMA).
const (
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

// MACDResult represents the most recent MACD state of a price series.
type MACDResult struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
	Crossover string  `json:"crossover"` // "bullish", "bearish", "none"
}

// MACD calculates the Moving Average Convergence Divergence.
//
// MACD line = EMA(fast) - EMA(slow); signal line = EMA(signalPeriod) of the
// MACD line; histogram = MACD - signal. All EMAs use the 2/(n+1) smoothing
// factor seeded by a simple moving average (see EMA).
func MACD(prices []float64, fast, slow, signalPeriod int) (*MACDResult, error) {
	if fast < 1 || slow < 1 || signalPeriod < 1 {
		return nil, fmt.Errorf("invalid periods: fast=%d, slow=%d, signal=%d", fast, slow, signalPeriod)
	}
	if fast >= slow {
		return nil, fmt.Errorf("fast period (%d) must be less than slow period (%d)", fast, slow)
	}

	// The MACD line has len(prices)-slow+1 points; the signal EMA needs
	// signalPeriod of them.
	minRequired := slow + signalPeriod - 1
	if len(prices) < minRequired {
		return nil, insufficientData("macd", minRequired, len(prices))
	}

	fastEMA, err := EMA(prices, fast)
	if err != nil {
		return nil, err
	}
	slowEMA, err := EMA(prices, slow)
	if err != nil {
		return nil, err
	}

	// Align the fast series to the slow one: both end at the last price.
	offset := len(fastEMA) - len(slowEMA)
	macdLine := make([]float64, len(slowEMA))
	for i := range slowEMA {
		macdLine[i] = fastEMA[i+offset] - slowEMA[i]
	}

	signalLine, err := EMA(macdLine, signalPeriod)
	if err != nil {
		return nil, err
	}

	currentMACD := macdLine[len(macdLine)-1]
	currentSignal := signalLine[len(signalLine)-1]
	currentHistogram := currentMACD - currentSignal

	crossover := "none"
	if len(signalLine) >= 2 {
		prevMACD := macdLine[len(macdLine)-2]
		prevSignal := signalLine[len(signalLine)-2]
		prevHistogram := prevMACD - prevSignal

		if prevHistogram <= 0 && currentHistogram > 0 {
			crossover = "bullish"
		}
		if prevHistogram >= 0 && currentHistogram < 0 {
			crossover = "bearish"
		}
	}

	return &MACDResult{
		MACD:      currentMACD,
		Signal:    currentSignal,
		Histogram: currentHistogram,
		Crossover: crossover,
	}, nil
}
