// Package policy decides what to do with a match result: serve the
// canned reply, answer straight from the catalog, or escalate to the
// generation orchestrator.
package policy

import (
	"go.uber.org/zap"

	"github.com/faq-assistant-kernel/internal/matcher"
)

// Action selects the response path for one exchange.
type Action string

const (
	// UseStatic serves the matcher's canned reply as-is.
	UseStatic Action = "use_static"
	// UseCatalogDirect serves the catalog answer without generation.
	UseCatalogDirect Action = "use_catalog_direct"
	// Escalate hands the query to the generation orchestrator, with
	// the catalog answer (if any) as grounding context.
	Escalate Action = "escalate"
)

// NoAnswerReply is served when retrieval found nothing and generation
// is disabled.
const NoAnswerReply = "Je n'ai pas trouvé de réponse à votre question. Pouvez-vous la reformuler ?"

// Config holds the confidence thresholds.
type Config struct {
	// DirectAnswerThreshold is the score above which the catalog
	// answer is trusted as the final reply.
	DirectAnswerThreshold float64
	// EscalationFloor marks results worth flagging for catalog
	// expansion: anything below it is a question the catalog does not
	// really cover yet.
	EscalationFloor float64
}

// DefaultConfig returns the canonical thresholds.
func DefaultConfig() Config {
	return Config{
		DirectAnswerThreshold: 0.75,
		EscalationFloor:       0.45,
	}
}

// Decision is the policy outcome for one match result.
type Decision struct {
	Action Action
	// Answer is the final reply text for UseStatic and
	// UseCatalogDirect.
	Answer string
	// Context is the grounding text passed to generation on Escalate;
	// may be empty.
	Context string
	// IsNewQuestion flags low-confidence exchanges worth surfacing to
	// an admin for catalog expansion.
	IsNewQuestion bool
}

// Policy applies the threshold rules. Above the direct-answer
// threshold the catalog is treated as cheap and trustworthy; below it
// the catalog answer is demoted to grounding context that generation
// may paraphrase or override.
type Policy struct {
	config Config
	logger *zap.Logger
}

// New creates a policy with the given thresholds.
func New(cfg Config, logger *zap.Logger) *Policy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{config: cfg, logger: logger}
}

// Decide selects the response path for match. generationEnabled
// reflects whether this user opted into LLM answers.
func (p *Policy) Decide(match matcher.Result, generationEnabled bool) Decision {
	d := p.decide(match, generationEnabled)
	d.IsNewQuestion = match.Confidence < p.config.EscalationFloor && d.Action != UseStatic

	p.logger.Debug("Policy decision",
		zap.String("action", string(d.Action)),
		zap.Float64("confidence", match.Confidence),
		zap.Bool("is_new_question", d.IsNewQuestion))

	return d
}

func (p *Policy) decide(match matcher.Result, generationEnabled bool) Decision {
	// Canned replies never go through generation.
	if match.ProviderTag == matcher.TagStaticRule {
		return Decision{Action: UseStatic, Answer: match.Answer}
	}

	if match.HasAnswer && match.Confidence >= p.config.DirectAnswerThreshold {
		return Decision{Action: UseCatalogDirect, Answer: match.Answer}
	}

	if !generationEnabled {
		if match.HasAnswer {
			// Best effort: serve the below-threshold answer rather
			// than nothing.
			return Decision{Action: UseCatalogDirect, Answer: match.Answer}
		}
		return Decision{Action: UseCatalogDirect, Answer: NoAnswerReply}
	}

	return Decision{Action: Escalate, Context: match.Answer}
}
