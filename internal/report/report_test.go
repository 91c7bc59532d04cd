package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/stockadvisor/internal/analysis"
	"github.com/ajitpratap0/stockadvisor/internal/sentiment"
)

func floatPtr(v float64) *float64 { return &v }

func bullishInput() Input {
	return Input{
		Symbol:       "AAPL",
		CurrentPrice: 185.5,
		Currency:     "USD",
		Indicators: &analysis.IndicatorSet{
			Trend: analysis.TrendUp,
			RSI:   floatPtr(45),
			MACD:  &analysis.MACDResult{MACD: 1.2, Signal: 0.8, Histogram: 0.4, Crossover: "none"},
		},
		Sentiment:   sentiment.Result{Label: sentiment.Positive, Score: 0.3},
		GeneratedAt: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
	}
}

func TestSynthesizeBuySignal(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())
	got := s.Synthesize(bullishInput())

	// technical = (1 + 0 + 1)/3; combined = 0.6*0.6667 + 0.4*0.3 = 0.52.
	assert.Equal(t, Buy, got.Recommendation)
	assert.InDelta(t, 0.52, got.Confidence, 1e-9)
	assert.Greater(t, got.Confidence, 0.2)
	assert.Contains(t, got.Rationale, "trend is up")
	assert.Contains(t, got.Rationale, "MACD histogram positive")
}

func TestSynthesizeSellSignal(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())
	got := s.Synthesize(Input{
		Symbol:       "XYZ",
		CurrentPrice: 10,
		Currency:     "USD",
		Indicators: &analysis.IndicatorSet{
			Trend: analysis.TrendDown,
			RSI:   floatPtr(75),
			MACD:  &analysis.MACDResult{Histogram: -0.2},
		},
		Sentiment: sentiment.Result{Label: sentiment.Negative, Score: -0.5},
	})

	assert.Equal(t, Sell, got.Recommendation)
	assert.Greater(t, got.Confidence, 0.2)
	assert.Contains(t, got.Rationale, "overbought")
}

func TestSynthesizeHoldOnMixedSignals(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())
	got := s.Synthesize(Input{
		Symbol: "MIX",
		Indicators: &analysis.IndicatorSet{
			Trend: analysis.TrendFlat,
			RSI:   floatPtr(50),
			MACD:  &analysis.MACDResult{Histogram: 0},
		},
		Sentiment: sentiment.Result{Label: sentiment.Neutral, Score: 0},
	})

	assert.Equal(t, Hold, got.Recommendation)
	assert.Zero(t, got.Confidence)
}

func TestSynthesizeDeterministic(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())
	input := bullishInput()

	first := s.Synthesize(input)
	second := s.Synthesize(input)

	assert.Equal(t, first.Recommendation, second.Recommendation)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.Equal(t, first.Rationale, second.Rationale)
}

func TestSynthesizeDegradedIndicators(t *testing.T) {
	// Missing indicator fields contribute zero, not a crash.
	s := NewSynthesizer(DefaultConfig())
	got := s.Synthesize(Input{
		Symbol:     "NEW",
		Indicators: &analysis.IndicatorSet{Missing: []string{"rsi", "macd", "trend"}},
		Sentiment:  sentiment.Result{Label: sentiment.Positive, Score: 0.6},
	})

	// combined = 0.4*0.6 = 0.24 > 0.2.
	assert.Equal(t, Buy, got.Recommendation)
	assert.Contains(t, got.Rationale, "RSI unavailable")
	assert.Contains(t, got.Rationale, "MACD unavailable")
}

func TestSynthesizeNilIndicators(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())
	got := s.Synthesize(Input{Symbol: "NIL", Sentiment: sentiment.Result{Label: sentiment.Neutral}})

	assert.Equal(t, Hold, got.Recommendation)
	assert.Contains(t, got.Rationale, "technical indicators unavailable")
}

func TestCompareRanksByStrength(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())
	now := time.Now()

	reports := []*Report{
		{Symbol: "HOLD1", Recommendation: Hold, Confidence: 0.9},
		{Symbol: "SELL1", Recommendation: Sell, Confidence: 0.8},
		{Symbol: "BUY2", Recommendation: Buy, Confidence: 0.3},
		{Symbol: "BUY1", Recommendation: Buy, Confidence: 0.7},
	}

	got := s.Compare(reports, now)
	require.Len(t, got.Reports, 4)

	order := []string{"BUY1", "BUY2", "HOLD1", "SELL1"}
	for i, symbol := range order {
		assert.Equal(t, symbol, got.Reports[i].Symbol, "rank %d", i)
	}
	assert.Contains(t, got.Summary, "BUY1")
}

func TestCompareTieBreaksBySymbol(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())

	reports := []*Report{
		{Symbol: "ZZZ", Recommendation: Buy, Confidence: 0.5},
		{Symbol: "AAA", Recommendation: Buy, Confidence: 0.5},
	}

	got := s.Compare(reports, time.Now())
	assert.Equal(t, "AAA", got.Reports[0].Symbol)
	assert.Equal(t, "ZZZ", got.Reports[1].Symbol)
}

func TestCompareEmpty(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())
	got := s.Compare(nil, time.Now())
	assert.Empty(t, got.Reports)
	assert.Equal(t, "no symbols to compare", got.Summary)
}
