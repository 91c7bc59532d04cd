// Package conversation keeps per-user chat context: message history,
// tracked symbols, and preferences. Contexts are created lazily, bounded in
// length, and evicted after sitting idle.
package conversation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Message is one turn in a conversation.
type Message struct {
	ID        string         `json:"id"`
	Role      string         `json:"role"` // "user" or "assistant"
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewMessage creates a message with a fresh ID and the current time.
func NewMessage(role, content string, metadata map[string]any) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
}

// Context is a snapshot of one user's conversation state.
type Context struct {
	UserID         string            `json:"user_id"`
	Messages       []Message         `json:"messages"`
	TrackedSymbols []string          `json:"tracked_symbols"`
	Preferences    map[string]string `json:"preferences"`
	LastAccessed   time.Time         `json:"last_accessed"`
}

// StoreConfig tunes history bounds and idle eviction.
type StoreConfig struct {
	MaxHistory    int           // messages kept per user
	HistoryWindow int           // messages included in model prompts
	IdleTTL       time.Duration // eviction threshold for untouched contexts
	SweepInterval time.Duration
}

// DefaultStoreConfig returns the standard store tuning.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		MaxHistory:    50,
		HistoryWindow: 10,
		IdleTTL:       60 * time.Minute,
		SweepInterval: 10 * time.Minute,
	}
}

type userState struct {
	// turnMu serializes whole conversation turns; mu guards the fields.
	// Separate locks so turn holders can still call data methods.
	turnMu         sync.Mutex
	mu             sync.Mutex
	messages       []Message
	trackedSymbols map[string]struct{}
	preferences    map[string]string
	lastAccessed   time.Time
}

// Store holds every user's conversation context. The store-level mutex
// guards the map only; each user has their own lock, so concurrent requests
// for different users never contend.
type Store struct {
	mu    sync.Mutex
	users map[string]*userState
	cfg   StoreConfig
	now   func() time.Time
}

// NewStore creates an empty store.
func NewStore(cfg StoreConfig) *Store {
	if cfg.MaxHistory < 1 {
		cfg.MaxHistory = DefaultStoreConfig().MaxHistory
	}
	if cfg.HistoryWindow < 1 || cfg.HistoryWindow > cfg.MaxHistory {
		cfg.HistoryWindow = cfg.MaxHistory
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultStoreConfig().IdleTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultStoreConfig().SweepInterval
	}
	return &Store{
		users: make(map[string]*userState),
		cfg:   cfg,
		now:   time.Now,
	}
}

// user returns the state for userID, creating it lazily.
func (s *Store) user(userID string) *userState {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		u = &userState{
			trackedSymbols: make(map[string]struct{}),
			preferences:    make(map[string]string),
			lastAccessed:   s.now(),
		}
		s.users[userID] = u
	}
	return u
}

// LockUser serializes processing for one user and returns the unlock
// function. Requests for different users proceed in parallel.
func (s *Store) LockUser(userID string) func() {
	u := s.user(userID)
	u.turnMu.Lock()
	return u.turnMu.Unlock
}

// Append adds a message to the user's history, trimming the oldest messages
// beyond the configured cap.
func (s *Store) Append(userID string, msg Message) {
	u := s.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	u.messages = append(u.messages, msg)
	if len(u.messages) > s.cfg.MaxHistory {
		u.messages = u.messages[len(u.messages)-s.cfg.MaxHistory:]
	}
	u.lastAccessed = s.now()
}

// Window returns the most recent messages, up to the configured prompt
// window, oldest first.
func (s *Store) Window(userID string) []Message {
	u := s.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	u.lastAccessed = s.now()
	start := len(u.messages) - s.cfg.HistoryWindow
	if start < 0 {
		start = 0
	}
	window := make([]Message, len(u.messages)-start)
	copy(window, u.messages[start:])
	return window
}

// Get returns a snapshot of the user's full context.
func (s *Store) Get(userID string) Context {
	u := s.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	u.lastAccessed = s.now()

	messages := make([]Message, len(u.messages))
	copy(messages, u.messages)

	symbols := make([]string, 0, len(u.trackedSymbols))
	for sym := range u.trackedSymbols {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	prefs := make(map[string]string, len(u.preferences))
	for k, v := range u.preferences {
		prefs[k] = v
	}

	return Context{
		UserID:         userID,
		Messages:       messages,
		TrackedSymbols: symbols,
		Preferences:    prefs,
		LastAccessed:   u.lastAccessed,
	}
}

// TrackSymbol records that the user's conversation touched a symbol.
func (s *Store) TrackSymbol(userID, symbol string) {
	if symbol == "" {
		return
	}
	u := s.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	u.trackedSymbols[symbol] = struct{}{}
	u.lastAccessed = s.now()
}

// UntrackSymbol removes a symbol from the user's tracked set.
func (s *Store) UntrackSymbol(userID, symbol string) {
	u := s.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	delete(u.trackedSymbols, symbol)
	u.lastAccessed = s.now()
}

// SetPreference stores a user preference.
func (s *Store) SetPreference(userID, key, value string) {
	u := s.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	u.preferences[key] = value
	u.lastAccessed = s.now()
}

// Clear removes the user's context entirely. It reports whether a context
// existed.
func (s *Store) Clear(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.users[userID]
	delete(s.users, userID)
	return ok
}

// Len returns the number of live contexts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// StartJanitor sweeps idle contexts in the background until ctx is
// cancelled.
func (s *Store) StartJanitor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

// sweep evicts contexts idle longer than the TTL.
func (s *Store) sweep() {
	cutoff := s.now().Add(-s.cfg.IdleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for userID, u := range s.users {
		u.mu.Lock()
		idle := u.lastAccessed.Before(cutoff)
		u.mu.Unlock()
		if idle {
			delete(s.users, userID)
			evicted++
		}
	}
	if evicted > 0 {
		log.Debug().Int("evicted", evicted).Msg("Swept idle conversation contexts")
	}
}
