// Package report turns computed indicators and sentiment into deterministic
// investment recommendations.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/ajitpratap0/stockadvisor/internal/analysis"
	"github.com/ajitpratap0/stockadvisor/internal/sentiment"
)

// Recommendation is the synthesized action for a symbol.
type Recommendation string

const (
	Buy  Recommendation = "BUY"
	Sell Recommendation = "SELL"
	Hold Recommendation = "HOLD"
)

// RSI zone boundaries for the recommendation score.
const (
	rsiOverbought = 70.0
	rsiOversold   = 30.0
)

// Config holds the recommendation weights and thresholds. Weights are
// normalized by their sum, so they need not add up to 1.
type Config struct {
	TechnicalWeight float64
	SentimentWeight float64
	BuyThreshold    float64
	SellThreshold   float64
}

// DefaultConfig returns the documented defaults: technical 0.6, sentiment
// 0.4, BUY above +0.2, SELL below -0.2.
func DefaultConfig() Config {
	return Config{
		TechnicalWeight: 0.6,
		SentimentWeight: 0.4,
		BuyThreshold:    0.2,
		SellThreshold:   -0.2,
	}
}

// Input carries everything a report is derived from. Reports are a pure
// function of their Input: identical inputs produce identical reports.
type Input struct {
	Symbol       string
	CurrentPrice float64
	Currency     string
	Indicators   *analysis.IndicatorSet
	Sentiment    sentiment.Result
	GeneratedAt  time.Time
}

// Report is an immutable per-symbol analysis report.
type Report struct {
	Symbol         string                 `json:"symbol"`
	CurrentPrice   float64                `json:"current_price"`
	Currency       string                 `json:"currency"`
	Indicators     *analysis.IndicatorSet `json:"indicators"`
	Sentiment      sentiment.Result       `json:"sentiment"`
	Recommendation Recommendation         `json:"recommendation"`
	Confidence     float64                `json:"confidence"`
	Rationale      string                 `json:"rationale"`
	GeneratedAt    time.Time              `json:"generated_at"`
}

// Synthesizer produces reports under a fixed configuration.
type Synthesizer struct {
	cfg Config
}

// NewSynthesizer creates a synthesizer with the given configuration.
func NewSynthesizer(cfg Config) *Synthesizer {
	return &Synthesizer{cfg: cfg}
}

// Synthesize combines technical indicators and sentiment into a
// recommendation with confidence and rationale.
//
// The technical score is the mean of three signals in {-1, 0, +1}: trend
// direction, RSI zone (oversold +1, overbought -1), and MACD histogram sign.
// Missing indicators contribute 0 and are noted in the rationale. The
// combined score is the weighted sum of the technical score and the
// sentiment scalar; confidence is its magnitude clipped to [0, 1].
func (s *Synthesizer) Synthesize(input Input) *Report {
	trendScore, rsiScore, macdScore := signalScores(input.Indicators)
	technical := (trendScore + rsiScore + macdScore) / 3.0

	weightSum := s.cfg.TechnicalWeight + s.cfg.SentimentWeight
	combined := (s.cfg.TechnicalWeight*technical + s.cfg.SentimentWeight*input.Sentiment.Score) / weightSum

	recommendation := Hold
	switch {
	case combined > s.cfg.BuyThreshold:
		recommendation = Buy
	case combined < s.cfg.SellThreshold:
		recommendation = Sell
	}

	confidence := combined
	if confidence < 0 {
		confidence = -confidence
	}
	if confidence > 1 {
		confidence = 1
	}

	return &Report{
		Symbol:         input.Symbol,
		CurrentPrice:   input.CurrentPrice,
		Currency:       input.Currency,
		Indicators:     input.Indicators,
		Sentiment:      input.Sentiment,
		Recommendation: recommendation,
		Confidence:     confidence,
		Rationale:      buildRationale(input.Indicators, input.Sentiment, combined),
		GeneratedAt:    input.GeneratedAt,
	}
}

// signalScores maps indicators to the three signals of the technical score.
// A nil or missing indicator contributes 0.
func signalScores(ind *analysis.IndicatorSet) (trend, rsi, macd float64) {
	if ind == nil {
		return 0, 0, 0
	}

	switch ind.Trend {
	case analysis.TrendUp:
		trend = 1
	case analysis.TrendDown:
		trend = -1
	}

	if ind.RSI != nil {
		switch {
		case *ind.RSI > rsiOverbought:
			rsi = -1
		case *ind.RSI < rsiOversold:
			rsi = 1
		}
	}

	if ind.MACD != nil {
		switch {
		case ind.MACD.Histogram > 0:
			macd = 1
		case ind.MACD.Histogram < 0:
			macd = -1
		}
	}

	return trend, rsi, macd
}

// buildRationale renders a fixed-structure explanation of the dominating
// signals. The structure depends only on the inputs, so identical inputs
// produce identical rationale strings.
func buildRationale(ind *analysis.IndicatorSet, sent sentiment.Result, combined float64) string {
	var parts []string

	if ind == nil {
		parts = append(parts, "technical indicators unavailable")
	} else {
		switch ind.Trend {
		case analysis.TrendUp:
			parts = append(parts, "price trend is up")
		case analysis.TrendDown:
			parts = append(parts, "price trend is down")
		case analysis.TrendFlat:
			parts = append(parts, "price trend is flat")
		default:
			parts = append(parts, "trend unavailable (insufficient data)")
		}

		if ind.RSI == nil {
			parts = append(parts, "RSI unavailable (insufficient data)")
		} else {
			switch {
			case *ind.RSI > rsiOverbought:
				parts = append(parts, fmt.Sprintf("overbought (RSI %.1f above %.0f)", *ind.RSI, rsiOverbought))
			case *ind.RSI < rsiOversold:
				parts = append(parts, fmt.Sprintf("oversold (RSI %.1f below %.0f)", *ind.RSI, rsiOversold))
			default:
				parts = append(parts, fmt.Sprintf("RSI neutral at %.1f", *ind.RSI))
			}
		}

		if ind.MACD == nil {
			parts = append(parts, "MACD unavailable (insufficient data)")
		} else {
			switch {
			case ind.MACD.Histogram > 0:
				parts = append(parts, fmt.Sprintf("MACD histogram positive (%.4f)", ind.MACD.Histogram))
			case ind.MACD.Histogram < 0:
				parts = append(parts, fmt.Sprintf("MACD histogram negative (%.4f)", ind.MACD.Histogram))
			default:
				parts = append(parts, "MACD histogram neutral")
			}
		}
	}

	parts = append(parts, fmt.Sprintf("news sentiment %s (%.2f)", sent.Label, sent.Score))
	parts = append(parts, fmt.Sprintf("combined score %.2f", combined))

	return strings.Join(parts, "; ")
}
