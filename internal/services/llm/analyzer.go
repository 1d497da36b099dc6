// Package llm is the boundary to the language model providers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	applogger "PerpDesk/pkg/logger"
)

var (
	ErrMissingAPIKey = errors.New("llm: api key not configured")
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Analyzer sends a prompt with a system instruction and returns the raw reply.
type Analyzer interface {
	Analyze(ctx context.Context, prompt, system string) (string, error)
}

// Config selects and parameterises a provider.
type Config struct {
	Provider    string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	APIKey      string
	// URL overrides the provider's endpoint.
	URL string
}

// New returns the Analyzer for cfg.Provider.
func New(cfg Config, logger *applogger.Logger) (Analyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", cfg.Provider, ErrMissingAPIKey)
	}
	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(cfg, logger), nil
	case ProviderAnthropic:
		return NewAnthropicClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
