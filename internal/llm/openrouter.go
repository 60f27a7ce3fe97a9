package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOpenRouterURL = "https://openrouter.ai/api/v1"

type openRouterGenerator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type openRouterRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterResponse struct {
	Choices []choice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

type choice struct {
	Message message `json:"message"`
}

func NewOpenRouterGenerator(apiKey, model string) (Generator, error) {
	return NewOpenRouterGeneratorWithBaseURL(apiKey, model, defaultOpenRouterURL)
}

// NewOpenRouterGeneratorWithBaseURL points the generator at any
// OpenAI-compatible chat completions endpoint.
func NewOpenRouterGeneratorWithBaseURL(apiKey, model, baseURL string) (Generator, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}

	return &openRouterGenerator{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

func (g *openRouterGenerator) Model() string {
	return g.model
}

func (g *openRouterGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := openRouterRequest{
		Model: g.model,
		Messages: []message{
			{Role: "user", Content: prompt},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{Provider: "openrouter", StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	var parsed openRouterResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if parsed.Error != nil {
		return "", &ProviderError{Provider: "openrouter", StatusCode: http.StatusBadGateway, Message: parsed.Error.Message}
	}

	if len(parsed.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}

	return content, nil
}

// errorMessage pulls error.message out of an error body, falling back to
// the raw body.
func errorMessage(body []byte) string {
	var parsed openRouterResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
