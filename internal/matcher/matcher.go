// Package matcher implements hybrid semantic retrieval over the FAQ
// catalog: queries are scored against both question and answer
// embeddings, with reflex rules short-circuiting conversational filler
// before any vector math runs.
package matcher

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/faq-assistant-kernel/internal/catalog"
	"github.com/faq-assistant-kernel/internal/embedding"
)

// Config holds matcher tuning knobs.
type Config struct {
	// RetrievalThreshold is the minimum hybrid score for a catalog
	// answer to be returned at all.
	RetrievalThreshold float64
	// QuestionWeight and AnswerWeight blend the two similarities.
	// Closeness to the canonical question dominates; answer similarity
	// still rewards users echoing terminology from the expected reply.
	QuestionWeight float64
	AnswerWeight   float64
	// SuggestionCount is how many candidate questions to surface when
	// the best score stays below the retrieval threshold.
	SuggestionCount int
}

// DefaultConfig returns the canonical tuning values.
func DefaultConfig() Config {
	return Config{
		RetrievalThreshold: 0.45,
		QuestionWeight:     0.7,
		AnswerWeight:       0.3,
		SuggestionCount:    2,
	}
}

// Result is the outcome of matching one query against the catalog.
type Result struct {
	Answer          string   `json:"answer,omitempty"`
	HasAnswer       bool     `json:"has_answer"`
	Confidence      float64  `json:"confidence"`
	MatchedQuestion string   `json:"matched_question,omitempty"`
	SourceID        string   `json:"source_id,omitempty"`
	ProviderTag     string   `json:"provider_tag"`
	Suggestions     []string `json:"suggestions,omitempty"`
}

// Candidate is one scored catalog entry, used by TopK.
type Candidate struct {
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
	SourceID   string  `json:"source_id"`
}

// Stats counts queries by confidence bucket.
type Stats struct {
	TotalQueries     int64 `json:"total_queries"`
	HighConfidence   int64 `json:"high_confidence"`
	MediumConfidence int64 `json:"medium_confidence"`
	LowConfidence    int64 `json:"low_confidence"`
	IndexedEntries   int   `json:"indexed_entries"`
}

// Matcher scores queries against the catalog index. The index is
// replaced wholesale on Reload; Match reads it through an atomic
// pointer so in-flight queries keep working against the old snapshot.
type Matcher struct {
	store    catalog.Store
	embedder embedding.Embedder
	config   Config
	logger   *zap.Logger

	current atomic.Pointer[index]

	mu    sync.Mutex
	stats Stats
}

// New creates a matcher. The index starts empty; call Reload to build
// it from the catalog store.
func New(store catalog.Store, embedder embedding.Embedder, cfg Config, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{
		store:    store,
		embedder: embedder,
		config:   cfg,
		logger:   logger,
	}
}

// Reload rebuilds the embedding index from the current catalog
// snapshot and atomically swaps it in. On failure the previous index
// stays in place; readers never observe a partial index.
func (m *Matcher) Reload(ctx context.Context) error {
	entries, err := m.store.ListEntries()
	if err != nil {
		return err
	}

	ix, err := buildIndex(ctx, entries, m.embedder)
	if err != nil {
		return err
	}

	m.current.Store(ix)
	m.logger.Info("Catalog index rebuilt", zap.Int("entries", ix.size()))
	return nil
}

// IndexSize returns the number of currently indexed entries.
func (m *Matcher) IndexSize() int {
	return m.current.Load().size()
}

// Match finds the best catalog entry for query. It is total: reflex
// hits, degenerate input, an empty index and embedding failures all
// come back as results, never as errors.
func (m *Matcher) Match(ctx context.Context, query string) Result {
	m.mu.Lock()
	m.stats.TotalQueries++
	m.mu.Unlock()

	normalized := NormalizeQuery(query)

	// Reflex rules win over everything, including an empty catalog.
	if reply, ok := reflexReply(normalized); ok {
		return Result{
			Answer:      reply,
			HasAnswer:   true,
			Confidence:  1.0,
			ProviderTag: TagStaticRule,
		}
	}

	if isTooShort(normalized) {
		return Result{
			Answer:      ClarifyReply,
			HasAnswer:   true,
			Confidence:  0.0,
			ProviderTag: TagStaticRule,
		}
	}

	ix := m.current.Load()
	if ix.size() == 0 {
		return Result{Confidence: 0.0, ProviderTag: TagRetrieval}
	}

	queryVec, err := m.embedder.Embed(ctx, normalized)
	if err != nil {
		// Degrade to a no-answer result; the caller can still escalate.
		m.logger.Warn("Failed to embed query", zap.Error(err))
		return Result{Confidence: 0.0, ProviderTag: TagRetrieval}
	}

	bestIdx := -1
	bestScore := 0.0
	scores := make([]float64, ix.size())
	for i := range ix.entries {
		score := m.hybridScore(queryVec, ix.questionVecs[i], ix.answerVecs[i])
		scores[i] = score
		// Strict comparison keeps the tie-break stable: the first
		// maximum encountered wins.
		if bestIdx == -1 || score > bestScore {
			bestIdx = i
			bestScore = score
		}
	}

	m.recordBucket(bestScore)

	if bestScore >= m.config.RetrievalThreshold {
		entry := ix.entries[bestIdx]
		return Result{
			Answer:          entry.Answer,
			HasAnswer:       true,
			Confidence:      bestScore,
			MatchedQuestion: entry.Question,
			SourceID:        entry.ID,
			ProviderTag:     TagRetrieval,
		}
	}

	// Near miss: no answer, but report the best score so callers can
	// log it, and surface candidate questions as suggestions.
	return Result{
		Confidence:  bestScore,
		ProviderTag: TagRetrieval,
		Suggestions: m.topQuestions(ix, scores, m.config.SuggestionCount),
	}
}

// TopK returns the k best-scoring catalog entries for query, highest
// first. Degenerate input or an empty index yields an empty slice.
func (m *Matcher) TopK(ctx context.Context, query string, k int) []Candidate {
	normalized := NormalizeQuery(query)
	ix := m.current.Load()
	if ix.size() == 0 || k <= 0 {
		return nil
	}

	queryVec, err := m.embedder.Embed(ctx, normalized)
	if err != nil {
		m.logger.Warn("Failed to embed query for top-k", zap.Error(err))
		return nil
	}

	candidates := make([]Candidate, 0, ix.size())
	for i, entry := range ix.entries {
		candidates = append(candidates, Candidate{
			Question:   entry.Question,
			Answer:     entry.Answer,
			Confidence: m.hybridScore(queryVec, ix.questionVecs[i], ix.answerVecs[i]),
			SourceID:   entry.ID,
		})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].Confidence > candidates[b].Confidence
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// RecordCached folds a memoized result back into the query counters.
// Callers that serve a match from their own cache use this so repeated
// queries keep counting even though Match never runs.
func (m *Matcher) RecordCached(res Result) {
	m.mu.Lock()
	m.stats.TotalQueries++
	m.mu.Unlock()

	if res.ProviderTag == TagRetrieval {
		m.recordBucket(res.Confidence)
	}
}

// Stats returns a snapshot of query counters plus the current index
// size.
func (m *Matcher) Stats() Stats {
	m.mu.Lock()
	stats := m.stats
	m.mu.Unlock()
	stats.IndexedEntries = m.IndexSize()
	return stats
}

func (m *Matcher) hybridScore(queryVec, questionVec, answerVec []float32) float64 {
	qSim := embedding.CosineSimilarity(queryVec, questionVec)
	aSim := embedding.CosineSimilarity(queryVec, answerVec)
	return m.config.QuestionWeight*qSim + m.config.AnswerWeight*aSim
}

func (m *Matcher) recordBucket(score float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case score > 0.7:
		m.stats.HighConfidence++
	case score > m.config.RetrievalThreshold:
		m.stats.MediumConfidence++
	default:
		m.stats.LowConfidence++
	}
}

// topQuestions returns the questions of the n highest-scoring entries.
func (m *Matcher) topQuestions(ix *index, scores []float64, n int) []string {
	if n <= 0 || ix.size() == 0 {
		return nil
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if len(order) > n {
		order = order[:n]
	}
	questions := make([]string, len(order))
	for i, idx := range order {
		questions[i] = ix.entries[idx].Question
	}
	return questions
}
