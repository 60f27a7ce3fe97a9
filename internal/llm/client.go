package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BerylCAtieno/document-chat-api/internal/utils"
)

// Client wraps a Generator with bounded retries. Each attempt gets its own
// timeout; the wait between attempts starts at backoff and doubles.
type Client struct {
	gen      Generator
	attempts int
	timeout  time.Duration
	backoff  time.Duration
	logger   *utils.Logger
}

func NewClient(gen Generator, attempts int, timeout, backoff time.Duration, logger *utils.Logger) *Client {
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		gen:      gen,
		attempts: attempts,
		timeout:  timeout,
		backoff:  backoff,
		logger:   logger,
	}
}

func (c *Client) Model() string {
	return c.gen.Model()
}

// Generate returns the first successful completion. Once every attempt has
// failed transiently the error wraps ErrRetriesExhausted together with the
// last failure; a non-transient failure is returned straight away.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	delay := c.backoff

	for attempt := 1; attempt <= c.attempts; attempt++ {
		answer, err := c.try(ctx, prompt)
		if err == nil {
			return answer, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !IsTransient(err) {
			c.logger.Error("LLM request failed", "attempt", attempt, "error", err)
			return "", err
		}

		c.logger.Warn("LLM attempt failed", "attempt", attempt, "max_attempts", c.attempts, "error", err)
		if attempt == c.attempts {
			break
		}

		if err := sleep(ctx, delay); err != nil {
			return "", err
		}
		delay *= 2
	}

	return "", fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, c.attempts, lastErr)
}

func (c *Client) try(ctx context.Context, prompt string) (string, error) {
	attemptCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	answer, err := c.gen.Generate(attemptCtx, prompt)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("attempt timed out after %s: %w", c.timeout, context.DeadlineExceeded)
	}
	return answer, err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
