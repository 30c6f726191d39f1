package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// groqBaseURL is Groq's OpenAI-compatible endpoint; the same client
// library serves both providers.
const groqBaseURL = "https://api.groq.com/openai/v1"

// Default models, matching the priority order: Groq first (cheap and
// fast), OpenAI as the paid fallback.
const (
	defaultGroqModel   = "llama-3.1-8b-instant"
	defaultOpenAIModel = "gpt-3.5-turbo"
)

// ChatProvider generates text through any OpenAI-compatible chat
// completion API.
type ChatProvider struct {
	name   string
	model  string
	client *openai.Client
}

// NewGroqProvider creates a Groq-backed provider. An empty model
// selects the default.
func NewGroqProvider(apiKey, model string) *ChatProvider {
	if model == "" {
		model = defaultGroqModel
	}
	var client *openai.Client
	if apiKey != "" {
		cfg := openai.DefaultConfig(apiKey)
		cfg.BaseURL = groqBaseURL
		client = openai.NewClientWithConfig(cfg)
	}
	return &ChatProvider{name: "groq", model: model, client: client}
}

// NewOpenAIProvider creates an OpenAI-backed provider. An empty model
// selects the default.
func NewOpenAIProvider(apiKey, model string) *ChatProvider {
	if model == "" {
		model = defaultOpenAIModel
	}
	var client *openai.Client
	if apiKey != "" {
		client = openai.NewClient(apiKey)
	}
	return &ChatProvider{name: "openai", model: model, client: client}
}

// Name returns the provider label.
func (p *ChatProvider) Name() string {
	return p.name
}

// Available reports whether an API key was configured.
func (p *ChatProvider) Available() bool {
	return p.client != nil
}

// Generate runs one chat completion for the prompt.
func (p *ChatProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if p.client == nil {
		return "", fmt.Errorf("%s: no API key configured", p.name)
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("%s chat completion failed: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", p.name)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
