package embedding

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sync"

	"go.uber.org/zap"
)

// DefaultCacheSize is the maximum number of memoized query embeddings.
const DefaultCacheSize = 1000

// CachingEmbedder wraps an Embedder with a bounded FIFO memo of
// previously embedded texts. Eviction is oldest-inserted-first: the
// cache only affects performance, so recency tracking is not worth the
// bookkeeping.
type CachingEmbedder struct {
	inner  Embedder
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[string][]float32
	order   []string // insertion order, evict from the front
	maxSize int

	hits   int64
	misses int64
}

// CacheStats describes query-cache effectiveness.
type CacheStats struct {
	Size    int     `json:"size"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// NewCachingEmbedder wraps inner with a FIFO embedding cache of
// maxSize entries. A non-positive maxSize falls back to
// DefaultCacheSize.
func NewCachingEmbedder(inner Embedder, maxSize int, logger *zap.Logger) *CachingEmbedder {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingEmbedder{
		inner:   inner,
		logger:  logger,
		entries: make(map[string][]float32),
		maxSize: maxSize,
	}
}

// Embed returns the cached vector for text, embedding and memoizing it
// on a miss.
func (c *CachingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := hashText(text)

	c.mu.RLock()
	vec, found := c.entries[key]
	c.mu.RUnlock()

	if found {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.misses++
	if _, exists := c.entries[key]; !exists {
		if len(c.order) >= c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.entries[key] = vec
		c.order = append(c.order, key)
	}
	c.mu.Unlock()

	return vec, nil
}

// Dimension returns the wrapped embedder's dimension.
func (c *CachingEmbedder) Dimension() int {
	return c.inner.Dimension()
}

// Close closes the wrapped embedder.
func (c *CachingEmbedder) Close() error {
	return c.inner.Close()
}

// Stats returns a snapshot of cache effectiveness counters.
func (c *CachingEmbedder) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CacheStats{
		Size:   len(c.entries),
		Hits:   c.hits,
		Misses: c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// hashText derives the cache key for a text. MD5 is used as a cheap
// content hash, not for security.
func hashText(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}
