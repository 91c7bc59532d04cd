package analysis

import "fmt"

// Trend classifies the direction of a price series.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

// TrendConfig tunes the trend classification windows and flat band.
type TrendConfig struct {
	ShortWindow     int
	LongWindow      int
	FlatBandPercent float64
}

// DefaultTrendConfig returns the conventional 20/50 crossover setup with a
// 0.5% flat band.
func DefaultTrendConfig() TrendConfig {
	return TrendConfig{
		ShortWindow:     20,
		LongWindow:      50,
		FlatBandPercent: 0.5,
	}
}

// ClassifyTrend compares a short moving average against a long one over the
// most recent prices: "up" when the short average exceeds the long one by
// more than FlatBandPercent, "down" for the mirror case, "flat" otherwise.
func ClassifyTrend(prices []float64, cfg TrendConfig) (Trend, error) {
	if cfg.ShortWindow < 1 || cfg.LongWindow < 1 {
		return "", fmt.Errorf("invalid trend windows: short=%d, long=%d", cfg.ShortWindow, cfg.LongWindow)
	}
	if cfg.ShortWindow >= cfg.LongWindow {
		return "", fmt.Errorf("short window (%d) must be less than long window (%d)", cfg.ShortWindow, cfg.LongWindow)
	}
	if len(prices) < cfg.LongWindow {
		return "", insufficientData("trend", cfg.LongWindow, len(prices))
	}

	shortMA := mean(prices[len(prices)-cfg.ShortWindow:])
	longMA := mean(prices[len(prices)-cfg.LongWindow:])

	if longMA == 0 {
		return TrendFlat, nil
	}

	diffPercent := (shortMA - longMA) / longMA * 100

	switch {
	case diffPercent > cfg.FlatBandPercent:
		return TrendUp, nil
	case diffPercent < -cfg.FlatBandPercent:
		return TrendDown, nil
	default:
		return TrendFlat, nil
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
