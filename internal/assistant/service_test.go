package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/faq-assistant-kernel/internal/cache"
	"github.com/faq-assistant-kernel/internal/catalog"
	"github.com/faq-assistant-kernel/internal/llm"
	"github.com/faq-assistant-kernel/internal/matcher"
	"github.com/faq-assistant-kernel/internal/memory"
	"github.com/faq-assistant-kernel/internal/policy"
)

// vecEmbedder pins similarity scores with handcrafted vectors.
type vecEmbedder struct {
	vecs map[string][]float32
}

func (e *vecEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := e.vecs[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 0, 1}, nil
}

func (e *vecEmbedder) Dimension() int { return 4 }
func (e *vecEmbedder) Close() error   { return nil }

// promptProvider captures the prompt it was asked to complete.
type promptProvider struct {
	reply   string
	err     error
	prompts []string
}

func (p *promptProvider) Name() string    { return "scripted" }
func (p *promptProvider) Available() bool { return true }
func (p *promptProvider) Generate(_ context.Context, prompt string, _ int) (string, error) {
	p.prompts = append(p.prompts, prompt)
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

func newTestService(t *testing.T, vecs map[string][]float32, provider llm.Provider) *Service {
	t.Helper()
	logger := zaptest.NewLogger(t)

	store := catalog.NewStaticStore([]catalog.Entry{
		{ID: "faq-1", Question: "comment créer un compte", Answer: "Cliquez sur Inscription."},
	})
	m := matcher.New(store, &vecEmbedder{vecs: vecs}, matcher.DefaultConfig(), logger)
	require.NoError(t, m.Reload(context.Background()))

	orch := llm.NewOrchestrator(llm.DefaultConfig(), logger)
	if provider != nil {
		orch.Register(provider)
	}

	return New(
		m,
		policy.New(policy.DefaultConfig(), logger),
		orch,
		memory.NewStore(5, 100, logger),
		nil, nil, nil,
		logger,
	)
}

func TestRespondGreeting(t *testing.T) {
	svc := newTestService(t, nil, llm.NewMockProvider("mock", "ne doit pas être appelé"))

	reply := svc.Respond(context.Background(), "alice", "bonjour", true)

	assert.Equal(t, matcher.GreetingReply, reply.Response)
	assert.Equal(t, matcher.TagStaticRule, reply.Provider)
	assert.Equal(t, 1.0, reply.Confidence)
	assert.True(t, reply.RetrievalOnly)
	assert.False(t, reply.IsNewQuestion)
}

func TestRespondHighConfidenceServesCatalog(t *testing.T) {
	mock := llm.NewMockProvider("mock", "ne doit pas être appelé")
	svc := newTestService(t, map[string][]float32{
		"comment créer un compte":  {1, 0, 0, 0},
		"Cliquez sur Inscription.": {1, 0, 0, 0},
	}, mock)

	reply := svc.Respond(context.Background(), "alice", "comment créer un compte", true)

	assert.Equal(t, "Cliquez sur Inscription.", reply.Response)
	assert.Equal(t, matcher.TagRetrieval, reply.Provider)
	assert.True(t, reply.RetrievalOnly)
	assert.InDelta(t, 1.0, reply.Confidence, 1e-6)
	assert.Equal(t, "comment créer un compte", reply.MatchedQuestion)
	assert.Zero(t, mock.Calls, "high-confidence answers never reach generation")
}

func TestRespondMediumConfidenceEscalatesWithGrounding(t *testing.T) {
	provider := &promptProvider{reply: "Pour créer un compte, cliquez sur Inscription."}
	svc := newTestService(t, map[string][]float32{
		"créer compte utilisateur": {1, 0, 0, 0},
		"comment créer un compte":  {1, 0, 0, 0},
		"Cliquez sur Inscription.": {0, 1, 0, 0},
	}, provider)

	reply := svc.Respond(context.Background(), "alice", "créer compte utilisateur", true)

	assert.Equal(t, "Pour créer un compte, cliquez sur Inscription.", reply.Response)
	assert.Equal(t, "scripted", reply.Provider)
	assert.False(t, reply.RetrievalOnly)
	assert.False(t, reply.IsNewQuestion)
	require.Len(t, provider.prompts, 1)
	// The retrieved answer grounds the prompt.
	assert.Contains(t, provider.prompts[0], "Cliquez sur Inscription.")
}

func TestRespondIncludesHistoryInPrompt(t *testing.T) {
	provider := &promptProvider{reply: "réponse générée"}
	svc := newTestService(t, map[string][]float32{
		"créer compte utilisateur": {1, 0, 0, 0},
		"comment créer un compte":  {1, 0, 0, 0},
		"Cliquez sur Inscription.": {0, 1, 0, 0},
	}, provider)

	svc.Respond(context.Background(), "alice", "créer compte utilisateur", true)
	svc.Respond(context.Background(), "alice", "créer compte utilisateur", true)

	require.Len(t, provider.prompts, 2)
	assert.NotContains(t, provider.prompts[0], "Historique")
	assert.Contains(t, provider.prompts[1], "Utilisateur : créer compte utilisateur")
	assert.Contains(t, provider.prompts[1], "Assistant : réponse générée")
}

func TestRespondAllProvidersFailedServesCatalogFallback(t *testing.T) {
	provider := &promptProvider{err: errors.New("rate limited")}
	svc := newTestService(t, map[string][]float32{
		"créer compte utilisateur": {1, 0, 0, 0},
		"comment créer un compte":  {1, 0, 0, 0},
		"Cliquez sur Inscription.": {0, 1, 0, 0},
	}, provider)

	reply := svc.Respond(context.Background(), "alice", "créer compte utilisateur", true)

	// The below-threshold catalog answer still beats an apology.
	assert.Equal(t, "Cliquez sur Inscription.", reply.Response)
	assert.Equal(t, FallbackErrorProvider, reply.Provider)
}

func TestRespondAllProvidersFailedNoMatchApologizes(t *testing.T) {
	provider := &promptProvider{err: errors.New("rate limited")}
	svc := newTestService(t, map[string][]float32{
		"question totalement hors catalogue": {0, 0, 1, 0},
		"comment créer un compte":            {1, 0, 0, 0},
		"Cliquez sur Inscription.":           {1, 0, 0, 0},
	}, provider)

	reply := svc.Respond(context.Background(), "alice", "question totalement hors catalogue", true)

	assert.Equal(t, llm.ApologyReply, reply.Response)
	assert.Equal(t, FallbackErrorProvider, reply.Provider)
	assert.True(t, reply.IsNewQuestion)
}

func TestRespondGenerationDisabledSkipsProviders(t *testing.T) {
	provider := &promptProvider{reply: "ne doit pas être appelé"}
	svc := newTestService(t, map[string][]float32{
		"créer compte utilisateur": {1, 0, 0, 0},
		"comment créer un compte":  {1, 0, 0, 0},
		"Cliquez sur Inscription.": {0, 1, 0, 0},
	}, provider)

	reply := svc.Respond(context.Background(), "alice", "créer compte utilisateur", false)

	assert.Equal(t, "Cliquez sur Inscription.", reply.Response)
	assert.True(t, reply.RetrievalOnly)
	assert.Empty(t, provider.prompts)
}

func TestRespondRecordsHistory(t *testing.T) {
	svc := newTestService(t, nil, llm.NewMockProvider("mock", "réponse"))

	svc.Respond(context.Background(), "alice", "bonjour", true)
	svc.Respond(context.Background(), "alice", "merci", true)

	history := svc.History("alice")
	require.Len(t, history, 2)
	assert.Equal(t, "bonjour", history[0].UserMessage)
	assert.Equal(t, matcher.GreetingReply, history[0].BotResponse)
	assert.Equal(t, "merci", history[1].UserMessage)

	svc.ClearHistory("alice")
	assert.Empty(t, svc.History("alice"))
}

func TestRespondMemoHitsStillCountInStats(t *testing.T) {
	logger := zaptest.NewLogger(t)

	store := catalog.NewStaticStore([]catalog.Entry{
		{ID: "faq-1", Question: "comment créer un compte", Answer: "Cliquez sur Inscription."},
	})
	m := matcher.New(store, &vecEmbedder{}, matcher.DefaultConfig(), logger)
	require.NoError(t, m.Reload(context.Background()))

	memo, err := cache.NewManager(cache.DefaultConfig(), logger)
	require.NoError(t, err)
	t.Cleanup(memo.Close)

	orch := llm.NewOrchestrator(llm.DefaultConfig(), logger)
	orch.Register(llm.NewMockProvider("mock", "réponse"))

	svc := New(
		m,
		policy.New(policy.DefaultConfig(), logger),
		orch,
		memory.NewStore(5, 100, logger),
		nil, nil, memo,
		logger,
	)

	responds := 0
	svc.Respond(context.Background(), "alice", "bonjour", true)
	responds++

	// Keep responding until the memo actually serves a hit (ristretto
	// admits writes asynchronously), then check nothing went uncounted.
	require.Eventually(t, func() bool {
		svc.Respond(context.Background(), "alice", "bonjour", true)
		responds++
		hits, _ := memo.Stats()
		return hits > 0
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, int64(responds), svc.Status().Matcher.TotalQueries)
}

func TestStatusAggregatesComponents(t *testing.T) {
	svc := newTestService(t, nil, llm.NewMockProvider("mock", "réponse"))

	svc.Respond(context.Background(), "alice", "bonjour", true)

	report := svc.Status()
	assert.Equal(t, "mock", report.LLM.Current)
	assert.Equal(t, int64(1), report.Matcher.TotalQueries)
	assert.Equal(t, 1, report.Memory.ActiveUsers)
}
