// Package market implements the data-source gateway for price data. It owns
// rate limiting, retries, circuit breaking, and caching of raw fetches.
package market

import (
	"context"
	"time"
)

// PricePoint is one OHLCV unit of price data for a symbol.
type PricePoint struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	Currency  string    `json:"currency"`
}

// Gateway fetches current and historical price data. Implementations must
// return series ordered by strictly increasing timestamp with no duplicates;
// callers may not assume fixed spacing.
type Gateway interface {
	// CurrentQuote returns the latest price point for a symbol.
	CurrentQuote(ctx context.Context, symbol string) (*PricePoint, error)

	// HistoricalSeries returns the ordered close-price history for a symbol
	// over a named range ("1mo", "6mo", "1y", ...).
	HistoricalSeries(ctx context.Context, symbol string, rng string) ([]PricePoint, error)
}

// Closes extracts the close prices of a series in order.
func Closes(series []PricePoint) []float64 {
	closes := make([]float64, len(series))
	for i, p := range series {
		closes[i] = p.Close
	}
	return closes
}
