package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// entry is one cached value with its expiry.
type entry struct {
	data      []byte
	expiresAt time.Time
}

// Memory is an in-process bounded TTL cache. Reads take a shared lock and
// return a snapshot; writes replace entries atomically. When the entry
// count exceeds maxEntries the entry closest to expiry is dropped.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]entry
	maxEntries int
	now        func() time.Time
}

// NewMemory creates a memory cache bounded to maxEntries entries.
func NewMemory(maxEntries int) *Memory {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Memory{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached data for key if present and not expired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || m.now().After(e.expiresAt) {
		return nil, false
	}
	return e.data, true
}

// Set stores data under key for ttl. Expired entries are swept
// opportunistically; if the cache is still full, the entry closest to
// expiry is evicted to keep memory bounded.
func (m *Memory) Set(_ context.Context, key string, data []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		for k, e := range m.entries {
			if now.After(e.expiresAt) {
				delete(m.entries, k)
			}
		}
		if len(m.entries) >= m.maxEntries {
			m.evictSoonestLocked()
		}
	}

	m.entries[key] = entry{data: data, expiresAt: now.Add(ttl)}
}

// Delete removes the entry for key.
func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Len returns the current entry count, counting expired entries not yet
// swept.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// evictSoonestLocked drops the entry with the earliest expiry.
func (m *Memory) evictSoonestLocked() {
	var victim string
	var soonest time.Time
	first := true
	for k, e := range m.entries {
		if first || e.expiresAt.Before(soonest) {
			victim = k
			soonest = e.expiresAt
			first = false
		}
	}
	if !first {
		delete(m.entries, victim)
		log.Debug().Str("key", victim).Msg("Evicted cache entry")
	}
}
