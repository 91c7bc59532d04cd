package market

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/stockadvisor/internal/cache"
	"github.com/ajitpratap0/stockadvisor/internal/metrics"
)

// CachedGateway wraps a Gateway with a read-through cache. Cache failures
// and decode failures fall back to the inner gateway; stale or corrupt
// entries never surface to callers.
type CachedGateway struct {
	inner Gateway
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedGateway wraps inner with a cache using a single TTL for all
// entries.
func NewCachedGateway(inner Gateway, c cache.Cache, ttl time.Duration) *CachedGateway {
	return &CachedGateway{inner: inner, cache: c, ttl: ttl}
}

// CurrentQuote returns a cached quote if one is fresh, fetching otherwise.
func (g *CachedGateway) CurrentQuote(ctx context.Context, symbol string) (*PricePoint, error) {
	key := "market:quote:" + symbol

	if data, ok := g.cache.Get(ctx, key); ok {
		var point PricePoint
		if err := json.Unmarshal(data, &point); err == nil {
			metrics.RecordCacheLookup(true)
			return &point, nil
		}
		log.Warn().Str("key", key).Msg("Corrupt cache entry, refetching")
		g.cache.Delete(ctx, key)
	}
	metrics.RecordCacheLookup(false)

	point, err := g.inner.CurrentQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(point); err == nil {
		g.cache.Set(ctx, key, data, g.ttl)
	}
	return point, nil
}

// HistoricalSeries returns a cached series if one is fresh, fetching
// otherwise.
func (g *CachedGateway) HistoricalSeries(ctx context.Context, symbol string, rng string) ([]PricePoint, error) {
	if rng == "" {
		rng = DefaultRange
	}
	key := fmt.Sprintf("market:series:%s:%s", symbol, rng)

	if data, ok := g.cache.Get(ctx, key); ok {
		var series []PricePoint
		if err := json.Unmarshal(data, &series); err == nil {
			metrics.RecordCacheLookup(true)
			return series, nil
		}
		log.Warn().Str("key", key).Msg("Corrupt cache entry, refetching")
		g.cache.Delete(ctx, key)
	}
	metrics.RecordCacheLookup(false)

	series, err := g.inner.HistoricalSeries(ctx, symbol, rng)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(series); err == nil {
		g.cache.Set(ctx, key, data, g.ttl)
	}
	return series, nil
}
