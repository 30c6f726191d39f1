// Package assistant wires retrieval, policy, generation, memory and
// archiving into the response pipeline for one inbound message.
package assistant

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/faq-assistant-kernel/internal/archive"
	"github.com/faq-assistant-kernel/internal/cache"
	"github.com/faq-assistant-kernel/internal/embedding"
	"github.com/faq-assistant-kernel/internal/llm"
	"github.com/faq-assistant-kernel/internal/matcher"
	"github.com/faq-assistant-kernel/internal/memory"
	"github.com/faq-assistant-kernel/internal/policy"
)

// FallbackErrorProvider tags replies served after every generation
// provider failed.
const FallbackErrorProvider = "fallback_error"

// Reply is the outcome of one exchange.
type Reply struct {
	Response        string   `json:"response"`
	Confidence      float64  `json:"confidence"`
	Provider        string   `json:"provider"`
	MatchedQuestion string   `json:"matched_question,omitempty"`
	Suggestions     []string `json:"suggestions,omitempty"`
	RetrievalOnly   bool     `json:"retrieval_only"`
	IsNewQuestion   bool     `json:"is_new_question"`
}

// StatusReport aggregates component health for the status endpoint.
type StatusReport struct {
	LLM        llm.Status           `json:"llm"`
	Matcher    matcher.Stats        `json:"matcher"`
	Memory     memory.Stats         `json:"memory"`
	QueryCache embedding.CacheStats `json:"query_cache"`
}

// Service is the per-process engine. It is expensive to construct
// (index build) and cheap to query; one instance is shared by all
// request handlers.
type Service struct {
	matcher      *matcher.Matcher
	policy       *policy.Policy
	orchestrator *llm.Orchestrator
	memory       *memory.Store
	archiver     *archive.Archiver
	queryCache   *embedding.CachingEmbedder
	replyMemo    *cache.Manager
	logger       *zap.Logger
}

// New assembles the engine. archiver, queryCache and replyMemo may be
// nil; the corresponding features are then disabled.
func New(
	m *matcher.Matcher,
	p *policy.Policy,
	o *llm.Orchestrator,
	mem *memory.Store,
	arch *archive.Archiver,
	queryCache *embedding.CachingEmbedder,
	replyMemo *cache.Manager,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		matcher:      m,
		policy:       p,
		orchestrator: o,
		memory:       mem,
		archiver:     arch,
		queryCache:   queryCache,
		replyMemo:    replyMemo,
		logger:       logger,
	}
}

// Respond handles one inbound message end to end. It is total: every
// failure inside the pipeline degrades to a served reply.
func (s *Service) Respond(ctx context.Context, userID, message string, useLLM bool) Reply {
	match := s.match(ctx, message)
	decision := s.policy.Decide(match, useLLM)

	reply := Reply{
		Confidence:      match.Confidence,
		MatchedQuestion: match.MatchedQuestion,
		Suggestions:     match.Suggestions,
		IsNewQuestion:   decision.IsNewQuestion,
	}

	switch decision.Action {
	case policy.UseStatic, policy.UseCatalogDirect:
		reply.Response = decision.Answer
		reply.Provider = match.ProviderTag
		reply.RetrievalOnly = true

	case policy.Escalate:
		result := s.orchestrator.Generate(ctx, llm.BuildPrompt(llm.PromptInput{
			Question: message,
			Context:  decision.Context,
			History:  s.promptHistory(userID),
		}))

		if result.Status == llm.StatusSuccess {
			reply.Response = result.Text
			reply.Provider = result.Provider
		} else {
			// Last resort: a below-threshold catalog answer still
			// beats an apology.
			reply.Provider = FallbackErrorProvider
			if match.HasAnswer {
				reply.Response = match.Answer
			} else {
				reply.Response = result.Text
			}
		}
	}

	s.record(userID, message, reply)
	return reply
}

// Reload rebuilds the catalog index and invalidates memoized replies.
// Safe to call at any time; readers mid-query finish against the old
// index.
func (s *Service) Reload(ctx context.Context) error {
	if err := s.matcher.Reload(ctx); err != nil {
		return err
	}
	if s.replyMemo != nil {
		s.replyMemo.Invalidate()
	}
	return nil
}

// History returns the in-memory conversation history for a user,
// oldest first.
func (s *Service) History(userID string) []memory.Turn {
	return s.memory.GetHistory(userID)
}

// ClearHistory drops a user's in-memory history.
func (s *Service) ClearHistory(userID string) {
	s.memory.Clear(userID)
}

// TopK exposes the matcher's k best candidates, for admin tooling.
func (s *Service) TopK(ctx context.Context, query string, k int) []matcher.Candidate {
	return s.matcher.TopK(ctx, query, k)
}

// LLMStatus reports the provider chain.
func (s *Service) LLMStatus() llm.Status {
	return s.orchestrator.GetStatus()
}

// Status aggregates component statistics.
func (s *Service) Status() StatusReport {
	report := StatusReport{
		LLM:     s.orchestrator.GetStatus(),
		Matcher: s.matcher.Stats(),
		Memory:  s.memory.Stats(),
	}
	if s.queryCache != nil {
		report.QueryCache = s.queryCache.Stats()
	}
	return report
}

// match runs retrieval, memoizing results for exact repeated queries.
// The memo is keyed by normalized text and epoch-invalidated on
// reload, so it can never serve answers from a stale catalog.
func (s *Service) match(ctx context.Context, message string) matcher.Result {
	if s.replyMemo == nil {
		return s.matcher.Match(ctx, message)
	}

	key := "match:" + matcher.NormalizeQuery(message)
	if val, found := s.replyMemo.Get(key); found {
		if cached, ok := val.(matcher.Result); ok {
			// Memo hits still count as queries in the matcher stats.
			s.matcher.RecordCached(cached)
			return cached
		}
	}

	result := s.matcher.Match(ctx, message)
	s.replyMemo.Set(key, result, int64(len(result.Answer)+len(result.MatchedQuestion)+64))
	return result
}

// promptHistory returns the user's recent turns as generation context.
func (s *Service) promptHistory(userID string) []llm.Turn {
	turns := s.memory.GetHistory(userID)
	history := make([]llm.Turn, len(turns))
	for i, t := range turns {
		history[i] = llm.Turn{UserMessage: t.UserMessage, BotResponse: t.BotResponse}
	}
	return history
}

// record updates conversation memory and hands the exchange to the
// archiver. Neither can fail the response.
func (s *Service) record(userID, message string, reply Reply) {
	now := time.Now()

	s.memory.AddTurn(userID, memory.Turn{
		Timestamp:   now,
		UserMessage: message,
		BotResponse: reply.Response,
		Confidence:  reply.Confidence,
	})

	if s.archiver != nil {
		s.archiver.Enqueue(archive.Record{
			ID:            uuid.NewString(),
			UserID:        userID,
			Message:       message,
			Response:      reply.Response,
			Confidence:    reply.Confidence,
			Provider:      reply.Provider,
			IsNewQuestion: reply.IsNewQuestion,
			Timestamp:     now,
		})
	}
}
