// Package cache provides a bounded TTL cache for fetched market and news
// data. The cache is an optimization only: a miss must produce the same
// result as a hit, just slower.
package cache

import (
	"context"
	"time"
)

// Cache stores serialized entries under string keys with a per-entry TTL.
type Cache interface {
	// Get returns the entry for key, or ok=false on a miss or expired entry.
	Get(ctx context.Context, key string) (data []byte, ok bool)

	// Set stores the entry, replacing any existing one atomically.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration)

	// Delete removes the entry for key if present.
	Delete(ctx context.Context, key string)
}
