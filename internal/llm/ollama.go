package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/faq-assistant-kernel/internal/jsonx"
)

// OllamaProvider generates text through a local Ollama instance. It is
// the no-key fallback at the end of the provider chain.
type OllamaProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
}

// NewOllamaProvider creates an Ollama chat provider. Empty arguments
// fall back to a local default URL and llama3.2.
func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Name returns the provider label.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Available always reports true; reachability is discovered on the
// first call and handled by the orchestrator's fallback.
func (p *OllamaProvider) Available() bool {
	return true
}

// Generate runs one non-streaming chat completion.
func (p *OllamaProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	body, err := jsonx.Marshal(ollamaChatRequest{
		Model: p.model,
		Messages: []ollamaChatMessage{
			{Role: "user", Content: prompt},
		},
		Stream:  false,
		Options: map[string]any{"num_predict": maxTokens},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result ollamaChatResponse
	if err := jsonx.Decode(resp.Body, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Message.Content == "" {
		return "", fmt.Errorf("ollama returned empty content")
	}

	return strings.TrimSpace(result.Message.Content), nil
}
