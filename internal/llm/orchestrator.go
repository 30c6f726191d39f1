package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Generation outcome statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ApologyReply is served when every provider failed.
const ApologyReply = "Désolé, nos services IA sont momentanément indisponibles. Veuillez réessayer plus tard."

// NoneProvider is the status sentinel when no provider is configured.
const NoneProvider = "none"

// Config holds orchestrator settings.
type Config struct {
	// ProviderTimeout bounds each individual provider call. A timeout
	// counts as a provider failure and advances the fallback chain.
	ProviderTimeout time.Duration
	// MaxTokens is the output size hint passed to providers.
	MaxTokens int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ProviderTimeout: 30 * time.Second,
		MaxTokens:       DefaultMaxTokens,
	}
}

// Result is the outcome of one generation attempt across the chain.
type Result struct {
	Text     string   `json:"text"`
	Provider string   `json:"provider"`
	Status   string   `json:"status"`
	Errors   []string `json:"errors,omitempty"`
}

// Status reports the provider chain for health/UI display.
type Status struct {
	Current   string   `json:"current"`
	Available []string `json:"available"`
}

// Orchestrator tries providers in registration order and returns the
// first success. It is total: every failure mode comes back as a
// degraded Result, never as an error or panic.
type Orchestrator struct {
	providers []Provider
	config    Config
	logger    *zap.Logger
}

// NewOrchestrator creates an orchestrator with no providers. Register
// providers cheapest-first; registration order is the fallback order.
func NewOrchestrator(cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = DefaultConfig().ProviderTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{config: cfg, logger: logger}
}

// Register appends a provider to the fallback chain. Unconfigured
// providers are skipped so the chain only contains candidates worth
// trying.
func (o *Orchestrator) Register(p Provider) {
	if !p.Available() {
		o.logger.Info("Skipping unavailable provider", zap.String("provider", p.Name()))
		return
	}
	o.providers = append(o.providers, p)
	o.logger.Info("Registered generation provider",
		zap.String("provider", p.Name()),
		zap.Int("priority", len(o.providers)))
}

// Generate tries each provider in order and returns the first
// successful text. On total failure it returns the apology reply with
// one recorded error per attempted provider.
func (o *Orchestrator) Generate(ctx context.Context, prompt string) Result {
	var errs []string

	for _, p := range o.providers {
		callCtx, cancel := context.WithTimeout(ctx, o.config.ProviderTimeout)
		text, err := p.Generate(callCtx, prompt, o.config.MaxTokens)
		cancel()

		if err != nil {
			o.logger.Warn("Generation provider failed, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s: %v", p.Name(), err))
			continue
		}

		o.logger.Debug("Generation succeeded",
			zap.String("provider", p.Name()),
			zap.Int("response_len", len(text)))
		return Result{
			Text:     text,
			Provider: p.Name(),
			Status:   StatusSuccess,
			Errors:   errs,
		}
	}

	o.logger.Error("All generation providers failed",
		zap.Int("attempted", len(errs)))
	return Result{
		Text:     ApologyReply,
		Provider: NoneProvider,
		Status:   StatusError,
		Errors:   errs,
	}
}

// GetStatus reports the current (highest-priority) provider and the
// full ordered list. Safe with zero providers.
func (o *Orchestrator) GetStatus() Status {
	if len(o.providers) == 0 {
		return Status{Current: NoneProvider, Available: []string{}}
	}

	names := make([]string, len(o.providers))
	for i, p := range o.providers {
		names[i] = p.Name()
	}
	return Status{Current: names[0], Available: names}
}
