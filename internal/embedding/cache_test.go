package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// countingEmbedder records how often each text was embedded.
type countingEmbedder struct {
	inner Embedder
	calls map[string]int
	err   error
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{
		inner: NewHashEmbedder(16),
		calls: make(map[string]int),
	}
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls[text]++
	if e.err != nil {
		return nil, e.err
	}
	return e.inner.Embed(ctx, text)
}

func (e *countingEmbedder) Dimension() int { return e.inner.Dimension() }
func (e *countingEmbedder) Close() error   { return nil }

func TestCachingEmbedderMemoizesRepeatedText(t *testing.T) {
	inner := newCountingEmbedder()
	c := NewCachingEmbedder(inner, 10, zaptest.NewLogger(t))

	first, err := c.Embed(context.Background(), "comment payer ma facture")
	require.NoError(t, err)
	second, err := c.Embed(context.Background(), "comment payer ma facture")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls["comment payer ma facture"])

	stats := c.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestCachingEmbedderEvictsOldestFirst(t *testing.T) {
	inner := newCountingEmbedder()
	c := NewCachingEmbedder(inner, 2, zaptest.NewLogger(t))

	ctx := context.Background()
	_, err := c.Embed(ctx, "a a a a a")
	require.NoError(t, err)
	_, err = c.Embed(ctx, "b b b b b")
	require.NoError(t, err)
	_, err = c.Embed(ctx, "c c c c c") // evicts "a", the oldest insert
	require.NoError(t, err)

	_, err = c.Embed(ctx, "b b b b b") // still cached
	require.NoError(t, err)
	_, err = c.Embed(ctx, "a a a a a") // re-embedded
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls["a a a a a"])
	assert.Equal(t, 1, inner.calls["b b b b b"])
	assert.Equal(t, 2, c.Stats().Size)
}

func TestCachingEmbedderDoesNotCacheFailures(t *testing.T) {
	inner := newCountingEmbedder()
	c := NewCachingEmbedder(inner, 10, zaptest.NewLogger(t))

	inner.err = errors.New("backend down")
	_, err := c.Embed(context.Background(), "texte")
	require.Error(t, err)

	inner.err = nil
	vec, err := c.Embed(context.Background(), "texte")
	require.NoError(t, err)
	assert.NotEmpty(t, vec)
	assert.Equal(t, 2, inner.calls["texte"])
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// Degenerate inputs yield zero, never NaN.
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
}

func TestHashEmbedderIsDeterministic(t *testing.T) {
	e := NewHashEmbedder(0)
	assert.Equal(t, DefaultHashDimension, e.Dimension())

	a, err := e.Embed(context.Background(), "changer mon mot de passe")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "changer mon mot de passe")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// Unit length after normalization.
	var sumSq float64
	for _, v := range a {
		sumSq += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, sumSq, 1e-5)
}

func TestHashEmbedderTokenOverlapRaisesSimilarity(t *testing.T) {
	e := NewHashEmbedder(0)
	ctx := context.Background()

	base, err := e.Embed(ctx, "changer mon mot de passe")
	require.NoError(t, err)
	related, err := e.Embed(ctx, "changer le mot de passe oublié")
	require.NoError(t, err)
	unrelated, err := e.Embed(ctx, "facture impayée depuis janvier")
	require.NoError(t, err)

	assert.Greater(t, CosineSimilarity(base, related), CosineSimilarity(base, unrelated))
}
