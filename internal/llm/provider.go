// Package llm provides the generation providers and the orchestrator
// that tries them in priority order when the catalog cannot answer.
package llm

import "context"

// DefaultMaxTokens caps generated replies when the caller gives no
// hint.
const DefaultMaxTokens = 500

// Provider is one generation backend. The orchestrator never
// special-cases a concrete implementation; identity strings are labels
// only.
type Provider interface {
	// Name returns the provider label ("groq", "openai", ...).
	Name() string
	// Generate produces text for an opaque prompt. maxTokens is a
	// size hint; providers may clamp it.
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	// Available reports whether the provider is configured well
	// enough to be worth trying.
	Available() bool
}
