// Package embedding provides text embedding generation for catalog
// retrieval, plus the vector math shared by the matcher.
package embedding

import (
	"context"
	"math"
)

// normEpsilon floors the cosine denominator so zero-norm vectors
// produce a zero similarity instead of NaN.
const normEpsilon = 1e-9

// Embedder generates a fixed-length vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimension returns the length of vectors produced by Embed.
	Dimension() int
	Close() error
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Mismatched lengths or degenerate norms yield 0, never an error.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom < normEpsilon {
		return 0
	}
	return dot / denom
}

// l2Normalize scales vec to unit length in place. Zero vectors are
// returned unchanged.
func l2Normalize(vec []float32) []float32 {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSq)
	if norm < normEpsilon {
		return vec
	}
	inv := float32(1 / norm)
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
