package analysis

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMovingAverage(t *testing.T) {
	tests := []struct {
		name      string
		prices    []float64
		period    int
		want      []float64
		wantError bool
	}{
		{
			name:   "Window of three",
			prices: []float64{100, 102, 101, 103, 105},
			period: 3,
			want:   []float64{101.0, 102.0, 103.0},
		},
		{
			name:   "Window equals series length",
			prices: []float64{2, 4, 6},
			period: 3,
			want:   []float64{4.0},
		},
		{
			name:   "Period one returns the series",
			prices: []float64{5, 7, 9},
			period: 1,
			want:   []float64{5, 7, 9},
		},
		{
			name:      "Series shorter than period",
			prices:    []float64{1, 2},
			period:    3,
			wantError: true,
		},
		{
			name:      "Empty series",
			prices:    nil,
			period:    3,
			wantError: true,
		},
		{
			name:      "Invalid period",
			prices:    []float64{1, 2, 3},
			period:    0,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MovingAverage(tt.prices, tt.period)
			if tt.wantError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("length mismatch: got %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if !almostEqual(got[i], tt.want[i]) {
					t.Errorf("index %d: got %f, want %f", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMovingAverageOutputLength(t *testing.T) {
	// Output length must always be len(prices)-period+1.
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}

	for period := 1; period <= len(prices); period++ {
		got, err := MovingAverage(prices, period)
		if err != nil {
			t.Fatalf("period %d: unexpected error: %v", period, err)
		}
		if want := len(prices) - period + 1; len(got) != want {
			t.Errorf("period %d: got length %d, want %d", period, len(got), want)
		}
	}
}

func TestMovingAverageInsufficientDataError(t *testing.T) {
	_, err := MovingAverage([]float64{1, 2, 3}, 10)
	var ins *InsufficientDataError
	if !errors.As(err, &ins) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if ins.Needed != 10 || ins.Got != 3 {
		t.Errorf("unexpected error fields: needed=%d got=%d", ins.Needed, ins.Got)
	}
}

func TestEMA(t *testing.T) {
	// Seeded by the SMA of the first period prices.
	prices := []float64{1, 2, 3, 4, 5}
	got, err := EMA(prices, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("length mismatch: got %d, want 3", len(got))
	}
	// Seed = mean(1,2,3) = 2; multiplier = 0.5.
	// next = (4-2)*0.5+2 = 3; next = (5-3)*0.5+3 = 4.
	want := []float64{2, 3, 4}
	for i := range got {
		if !almostEqual(got[i], want[i]) {
			t.Errorf("index %d: got %f, want %f", i, got[i], want[i])
		}
	}
}

func TestEMAInsufficientData(t *testing.T) {
	if _, err := EMA([]float64{1, 2}, 3); err == nil {
		t.Fatal("expected error for short series")
	}
}
