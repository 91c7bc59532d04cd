package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/stockadvisor/internal/cache"
)

// countingGateway records how many times each fetch is made.
type countingGateway struct {
	quoteCalls  int
	seriesCalls int
	err         error
}

func (g *countingGateway) CurrentQuote(_ context.Context, symbol string) (*PricePoint, error) {
	g.quoteCalls++
	if g.err != nil {
		return nil, g.err
	}
	return &PricePoint{Symbol: symbol, Close: 100, Currency: "USD", Timestamp: time.Unix(1719849600, 0)}, nil
}

func (g *countingGateway) HistoricalSeries(_ context.Context, symbol string, _ string) ([]PricePoint, error) {
	g.seriesCalls++
	if g.err != nil {
		return nil, g.err
	}
	return []PricePoint{
		{Symbol: symbol, Close: 99, Timestamp: time.Unix(1719763200, 0)},
		{Symbol: symbol, Close: 100, Timestamp: time.Unix(1719849600, 0)},
	}, nil
}

func TestCachedGatewayQuote(t *testing.T) {
	ctx := context.Background()
	inner := &countingGateway{}
	g := NewCachedGateway(inner, cache.NewMemory(16), time.Minute)

	first, err := g.CurrentQuote(ctx, "AAPL")
	require.NoError(t, err)

	second, err := g.CurrentQuote(ctx, "AAPL")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.quoteCalls, "second lookup should hit the cache")
	assert.Equal(t, first.Close, second.Close)

	// A different symbol is a separate entry.
	_, err = g.CurrentQuote(ctx, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.quoteCalls)
}

func TestCachedGatewaySeriesKeyedByRange(t *testing.T) {
	ctx := context.Background()
	inner := &countingGateway{}
	g := NewCachedGateway(inner, cache.NewMemory(16), time.Minute)

	_, err := g.HistoricalSeries(ctx, "AAPL", "1mo")
	require.NoError(t, err)
	_, err = g.HistoricalSeries(ctx, "AAPL", "1mo")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.seriesCalls)

	_, err = g.HistoricalSeries(ctx, "AAPL", "1y")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.seriesCalls, "a different range is a separate entry")
}

func TestCachedGatewayErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingGateway{err: &SourceUnavailableError{Source: sourceName}}
	g := NewCachedGateway(inner, cache.NewMemory(16), time.Minute)

	_, err := g.CurrentQuote(ctx, "AAPL")
	require.Error(t, err)

	inner.err = nil
	point, err := g.CurrentQuote(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 100.0, point.Close)
	assert.Equal(t, 2, inner.quoteCalls, "failures must not poison the cache")
}

func TestCachedGatewayCorruptEntryRefetches(t *testing.T) {
	ctx := context.Background()
	inner := &countingGateway{}
	mem := cache.NewMemory(16)
	g := NewCachedGateway(inner, mem, time.Minute)

	mem.Set(ctx, "market:quote:AAPL", []byte("not json"), time.Minute)

	point, err := g.CurrentQuote(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 100.0, point.Close)
	assert.Equal(t, 1, inner.quoteCalls)
}
