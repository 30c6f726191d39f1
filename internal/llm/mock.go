package llm

import "context"

// MockProvider is a scriptable provider for tests and for running the
// assistant without any real backend.
type MockProvider struct {
	ProviderName string
	Reply        string
	Err          error
	// Calls counts Generate invocations.
	Calls int
}

// NewMockProvider creates a mock that always returns reply.
func NewMockProvider(name, reply string) *MockProvider {
	return &MockProvider{ProviderName: name, Reply: reply}
}

// Name returns the configured label, defaulting to "mock".
func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// Available always reports true.
func (m *MockProvider) Available() bool {
	return true
}

// Generate returns the scripted reply or error, honoring context
// cancellation.
func (m *MockProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	m.Calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}
