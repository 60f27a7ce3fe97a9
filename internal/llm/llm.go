package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/BerylCAtieno/document-chat-api/internal/config"
)

// Generator turns a prompt into a completion with a single provider call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

var (
	ErrNotConfigured    = errors.New("llm provider is not configured")
	ErrRetriesExhausted = errors.New("llm retries exhausted")
	ErrEmptyResponse    = errors.New("llm returned an empty response")
)

// ProviderError is an error status reported by the provider's API.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Transient reports whether the same request may succeed later.
func (e *ProviderError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// IsTransient classifies err for the retry loop. Provider statuses other
// than 429 and 5xx, a missing API key and caller cancellation are final;
// timeouts and transport failures are retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotConfigured) || errors.Is(err, context.Canceled) {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Transient()
	}

	return true
}

// NewGenerator builds the provider selected by LLM_PROVIDER.
func NewGenerator(ctx context.Context, cfg *config.Config) (Generator, error) {
	switch strings.ToLower(cfg.LLMProvider) {
	case "openrouter":
		return NewOpenRouterGenerator(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
	case "gemini", "":
		return NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.AIModelName)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}
