package embedding

import (
	"context"
	"hash/fnv"
	"strings"
)

// DefaultHashDimension is the vector size for the hash embedder.
const DefaultHashDimension = 256

// HashEmbedder produces deterministic pseudo-embeddings from token and
// character hashes. It has no notion of semantics, but identical text
// always maps to the identical vector and token overlap raises
// similarity, which is enough for offline operation and for tests.
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder creates a hash-based embedder. A non-positive
// dimension falls back to DefaultHashDimension.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = DefaultHashDimension
	}
	return &HashEmbedder{dimension: dimension}
}

// Embed converts text to a deterministic L2-normalized vector.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimension)

	text = strings.ToLower(strings.TrimSpace(text))
	tokens := strings.Fields(text)

	// Spread each token over a few dimensions so that shared tokens
	// dominate the dot product.
	for i, token := range tokens {
		h := int(hashToken(token))
		for j := 0; j < 3; j++ {
			idx := (h + j*17) % e.dimension
			if idx < 0 {
				idx = -idx
			}
			vec[idx] += float32(h%256) / 256.0
		}
		// Mild position feature for word-order sensitivity.
		idx := (h + i*31) % e.dimension
		if idx < 0 {
			idx = -idx
		}
		vec[idx] += 0.1
	}

	return l2Normalize(vec), nil
}

// Dimension returns the embedding dimension.
func (e *HashEmbedder) Dimension() int {
	return e.dimension
}

// Close is a no-op.
func (e *HashEmbedder) Close() error {
	return nil
}

func hashToken(token string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(token))
	return h.Sum32()
}
