package matcher

import (
	"context"
	"fmt"

	"github.com/faq-assistant-kernel/internal/catalog"
	"github.com/faq-assistant-kernel/internal/embedding"
)

// index holds the catalog snapshot and its two embedding matrices,
// aligned by position. An index is immutable once built: reloads build
// a fresh one and swap it in, so readers mid-query never observe a
// partially rebuilt structure.
type index struct {
	entries      []catalog.Entry
	questionVecs [][]float32
	answerVecs   [][]float32
}

// size returns the number of indexed entries.
func (ix *index) size() int {
	if ix == nil {
		return 0
	}
	return len(ix.entries)
}

// buildIndex embeds every catalog question and answer. The returned
// index always satisfies len(questionVecs) == len(answerVecs) ==
// len(entries); a failed embedding aborts the build rather than
// leaving the matrices misaligned.
func buildIndex(ctx context.Context, entries []catalog.Entry, embedder embedding.Embedder) (*index, error) {
	ix := &index{
		entries:      entries,
		questionVecs: make([][]float32, 0, len(entries)),
		answerVecs:   make([][]float32, 0, len(entries)),
	}

	for i, entry := range entries {
		qVec, err := embedder.Embed(ctx, entry.Question)
		if err != nil {
			return nil, fmt.Errorf("failed to embed question %d: %w", i, err)
		}
		aVec, err := embedder.Embed(ctx, entry.Answer)
		if err != nil {
			return nil, fmt.Errorf("failed to embed answer %d: %w", i, err)
		}
		ix.questionVecs = append(ix.questionVecs, qVec)
		ix.answerVecs = append(ix.answerVecs, aVec)
	}

	return ix, nil
}
