// Package memory keeps the bounded per-user conversation history that
// feeds generation context.
package memory

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const (
	// DefaultMaxTurns is the per-user history cap.
	DefaultMaxTurns = 5
	// DefaultMaxUsers bounds how many users are tracked at once; the
	// least-recently-active user is dropped beyond that.
	DefaultMaxUsers = 10000
)

// Turn is one completed exchange.
type Turn struct {
	Timestamp   time.Time `json:"timestamp"`
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
	Confidence  float64   `json:"confidence"`
}

// turnRing is a fixed-size circular buffer of turns.
type turnRing struct {
	turns    []Turn
	head     int
	size     int
	capacity int
}

func newTurnRing(capacity int) *turnRing {
	return &turnRing{
		turns:    make([]Turn, capacity),
		capacity: capacity,
	}
}

// push appends a turn, evicting the oldest when full.
func (r *turnRing) push(t Turn) {
	r.turns[r.head] = t
	r.head = (r.head + 1) % r.capacity
	if r.size < r.capacity {
		r.size++
	}
}

// all returns the stored turns oldest first.
func (r *turnRing) all() []Turn {
	out := make([]Turn, r.size)
	for i := 0; i < r.size; i++ {
		idx := (r.head - r.size + i + r.capacity) % r.capacity
		out[i] = r.turns[idx]
	}
	return out
}

// Store holds conversation history keyed by user. Histories are
// strictly isolated per user; an unknown user simply has an empty
// history. Writes for the same user are serialized by the store's
// lock, so concurrent messages cannot corrupt a ring.
type Store struct {
	maxTurns int
	users    *lru.Cache[string, *turnRing]
	logger   *zap.Logger

	mu         sync.RWMutex
	totalTurns int64
}

// Stats summarizes store usage.
type Stats struct {
	TotalTurns  int64 `json:"total_turns"`
	ActiveUsers int   `json:"active_users"`
}

// NewStore creates a conversation memory. Non-positive caps fall back
// to the defaults.
func NewStore(maxTurns, maxUsers int, logger *zap.Logger) *Store {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if maxUsers <= 0 {
		maxUsers = DefaultMaxUsers
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// Only errors on a non-positive size, which is guarded above.
	users, _ := lru.New[string, *turnRing](maxUsers)

	return &Store{
		maxTurns: maxTurns,
		users:    users,
		logger:   logger,
	}
}

// AddTurn records a completed exchange for user, evicting that user's
// oldest turn beyond the cap.
func (s *Store) AddTurn(userID string, turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ring, ok := s.users.Get(userID)
	if !ok {
		ring = newTurnRing(s.maxTurns)
		s.users.Add(userID, ring)
	}
	ring.push(turn)
	s.totalTurns++

	s.logger.Debug("Recorded conversation turn",
		zap.String("user_id", userID),
		zap.Int("history_len", ring.size))
}

// GetHistory returns the user's turns oldest first. Unknown users get
// an empty slice, never an error.
func (s *Store) GetHistory(userID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ring, ok := s.users.Peek(userID)
	if !ok {
		return []Turn{}
	}
	return ring.all()
}

// Clear drops all history for user.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users.Remove(userID)
}

// Stats returns usage counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		TotalTurns:  s.totalTurns,
		ActiveUsers: s.users.Len(),
	}
}
