package analysis

import (
	"errors"
	"testing"
)

func risingSeries(n int, start, step float64) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = start + float64(i)*step
	}
	return prices
}

func TestClassifyTrend(t *testing.T) {
	cfg := DefaultTrendConfig()

	tests := []struct {
		name   string
		prices []float64
		want   Trend
	}{
		{
			name:   "Rising series trends up",
			prices: risingSeries(60, 100, 1),
			want:   TrendUp,
		},
		{
			name:   "Falling series trends down",
			prices: risingSeries(60, 160, -1),
			want:   TrendDown,
		},
		{
			name:   "Flat series is flat",
			prices: risingSeries(60, 100, 0),
			want:   TrendFlat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClassifyTrend(tt.prices, cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyTrendFlatBand(t *testing.T) {
	// A drift smaller than the flat band must classify as flat.
	cfg := TrendConfig{ShortWindow: 2, LongWindow: 4, FlatBandPercent: 5.0}
	prices := []float64{100, 100.1, 100.2, 100.3}

	got, err := ClassifyTrend(prices, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != TrendFlat {
		t.Errorf("got %q, want flat within band", got)
	}
}

func TestClassifyTrendErrors(t *testing.T) {
	cfg := DefaultTrendConfig()

	_, err := ClassifyTrend(risingSeries(10, 100, 1), cfg)
	var ins *InsufficientDataError
	if !errors.As(err, &ins) {
		t.Fatalf("expected InsufficientDataError for short series, got %v", err)
	}

	bad := TrendConfig{ShortWindow: 50, LongWindow: 20, FlatBandPercent: 0.5}
	if _, err := ClassifyTrend(risingSeries(60, 100, 1), bad); err == nil {
		t.Fatal("expected error for inverted windows")
	}
}

func TestCompute(t *testing.T) {
	prices := risingSeries(60, 100, 1)
	set, err := Compute(prices, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if set.RSI == nil {
		t.Error("expected RSI to be computed")
	}
	if set.MACD == nil {
		t.Error("expected MACD to be computed")
	}
	if set.Trend != TrendUp {
		t.Errorf("expected up trend, got %q", set.Trend)
	}
	if _, ok := set.MovingAverages[20]; !ok {
		t.Error("expected 20-period moving average")
	}
	if len(set.Missing) != 0 {
		t.Errorf("expected no missing indicators, got %v", set.Missing)
	}
}

func TestComputeDegradesShortSeries(t *testing.T) {
	// 16 prices: enough for RSI(14) and MA(20)? No MA(20), no MACD, no trend.
	set, err := Compute(risingSeries(16, 100, 1), DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.RSI == nil {
		t.Error("expected RSI to survive degradation")
	}
	if set.MACD != nil {
		t.Error("expected MACD to be missing")
	}
	if set.Trend != "" {
		t.Errorf("expected trend to be missing, got %q", set.Trend)
	}
	if len(set.Missing) == 0 {
		t.Error("expected missing indicators to be recorded")
	}
}

func TestComputeEmptySeries(t *testing.T) {
	if _, err := Compute(nil, DefaultConfig()); err == nil {
		t.Fatal("expected error for empty series")
	}
}
