package analysis

import (
	"errors"
	"testing"
)

func TestMACDMonotonicallyIncreasing(t *testing.T) {
	// On a steadily rising series the MACD line runs above its signal line,
	// so the histogram ends up non-negative.
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + float64(i)*2
	}

	result, err := MACD(prices, DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Histogram < 0 {
		t.Errorf("expected non-negative histogram on rising series, got %f", result.Histogram)
	}
	if result.MACD <= 0 {
		t.Errorf("expected positive MACD line on rising series, got %f", result.MACD)
	}
}

func TestMACDFlatSeries(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 42
	}

	result, err := MACD(prices, DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(result.MACD, 0) || !almostEqual(result.Signal, 0) || !almostEqual(result.Histogram, 0) {
		t.Errorf("expected zero MACD on flat series, got %+v", result)
	}
	if result.Crossover != "none" {
		t.Errorf("expected no crossover on flat series, got %q", result.Crossover)
	}
}

func TestMACDValidation(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = float64(i)
	}

	tests := []struct {
		name               string
		prices             []float64
		fast, slow, signal int
	}{
		{"Fast not less than slow", prices, 26, 12, 9},
		{"Zero period", prices, 0, 26, 9},
		{"Series too short", prices[:20], 12, 26, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := MACD(tt.prices, tt.fast, tt.slow, tt.signal); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestMACDMinimumLength(t *testing.T) {
	// slow + signal - 1 prices is exactly enough for one signal value.
	minLen := DefaultMACDSlow + DefaultMACDSignal - 1
	prices := make([]float64, minLen)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}

	if _, err := MACD(prices, DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal); err != nil {
		t.Fatalf("unexpected error at minimum length: %v", err)
	}

	_, err := MACD(prices[:minLen-1], DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
	var ins *InsufficientDataError
	if !errors.As(err, &ins) {
		t.Fatalf("expected InsufficientDataError below minimum length, got %v", err)
	}
}
