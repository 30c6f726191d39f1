// Package cache provides a short-TTL in-process memo for final
// replies, so exact repeated questions skip matching and generation
// entirely. Built on Ristretto.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// Config holds cache sizing.
type Config struct {
	MaxCost     int64         // max cache size in bytes
	NumCounters int64         // counters for cost estimation
	BufferItems int64         // keys per Get buffer
	DefaultTTL  time.Duration // TTL for memoized replies
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxCost:     16 * 1024 * 1024, // 16MB of replies
		NumCounters: 1e6,
		BufferItems: 64,
		DefaultTTL:  5 * time.Minute,
	}
}

// Manager wraps Ristretto with an epoch counter. Bumping the epoch on
// catalog reload orphans every memoized reply at once without having
// to enumerate keys.
type Manager struct {
	cache  *ristretto.Cache
	config Config
	logger *zap.Logger

	mu     sync.RWMutex
	epoch  int64
	hits   int64
	misses int64
}

// NewManager creates a reply memo.
func NewManager(cfg Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}

	return &Manager{cache: cache, config: cfg, logger: logger}, nil
}

// Get retrieves a memoized value for key under the current epoch.
func (m *Manager) Get(key string) (interface{}, bool) {
	val, found := m.cache.Get(m.epochKey(key))
	m.mu.Lock()
	if found {
		m.hits++
	} else {
		m.misses++
	}
	m.mu.Unlock()
	return val, found
}

// Set memoizes a value under the current epoch with the default TTL.
// cost should approximate the value's size in bytes.
func (m *Manager) Set(key string, value interface{}, cost int64) {
	m.cache.SetWithTTL(m.epochKey(key), value, cost, m.config.DefaultTTL)
}

// Invalidate bumps the epoch, detaching all memoized replies. Called
// on catalog reload.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.epoch++
	epoch := m.epoch
	m.mu.Unlock()
	m.logger.Debug("Reply memo invalidated", zap.Int64("epoch", epoch))
}

// Stats returns hit/miss counters.
func (m *Manager) Stats() (hits, misses int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hits, m.misses
}

// Close releases the underlying cache.
func (m *Manager) Close() {
	m.cache.Close()
}

func (m *Manager) epochKey(key string) string {
	m.mu.RLock()
	epoch := m.epoch
	m.mu.RUnlock()
	return fmt.Sprintf("%d:%s", epoch, key)
}
