// Package llm wraps the chat-completion providers used by the advisor.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/agrilink/agrilink-backend/internal/apperrors"
	"github.com/agrilink/agrilink-backend/internal/config"
)

// Request is a single system + user prompt exchange.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Client completes a prompt. Quota and rate-limit failures wrap
// apperrors.ErrUpstreamQuota.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Provider() string
}

// New builds the client selected by cfg.Provider. It returns
// apperrors.ErrNotConfigured when the provider has no API key.
func New(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	switch cfg.Provider {
	case "", "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai: %w", apperrors.ErrNotConfigured)
		}
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, timeout), nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini: %w", apperrors.ErrNotConfigured)
		}
		client, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, "")
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}
