package llm

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BerylCAtieno/document-chat-api/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedGenerator struct {
	calls   atomic.Int32
	results []error
	answer  string
	block   bool
}

func (g *scriptedGenerator) Model() string { return "scripted" }

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	n := int(g.calls.Add(1))
	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if n <= len(g.results) && g.results[n-1] != nil {
		return "", g.results[n-1]
	}
	return g.answer, nil
}

func newTestClient(gen Generator, attempts int) *Client {
	return NewClient(gen, attempts, time.Second, time.Millisecond, utils.NewNopLogger())
}

func TestClientRetriesTransientFailures(t *testing.T) {
	gen := &scriptedGenerator{
		results: []error{
			&ProviderError{Provider: "test", StatusCode: http.StatusTooManyRequests},
			&ProviderError{Provider: "test", StatusCode: http.StatusServiceUnavailable},
		},
		answer: "42",
	}

	answer, err := newTestClient(gen, 3).Generate(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "42", answer)
	assert.Equal(t, int32(3), gen.calls.Load())
}

func TestClientStopsOnNonTransientFailure(t *testing.T) {
	gen := &scriptedGenerator{
		results: []error{&ProviderError{Provider: "test", StatusCode: http.StatusUnauthorized}},
		answer:  "never",
	}

	_, err := newTestClient(gen, 3).Generate(context.Background(), "q")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestClientExhaustsAttempts(t *testing.T) {
	boom := errors.New("connection reset")
	gen := &scriptedGenerator{results: []error{boom, boom, boom}}

	_, err := newTestClient(gen, 3).Generate(context.Background(), "q")
	require.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(3), gen.calls.Load())
}

func TestClientPerAttemptTimeout(t *testing.T) {
	gen := &scriptedGenerator{block: true}
	client := NewClient(gen, 2, 20*time.Millisecond, time.Millisecond, utils.NewNopLogger())

	start := time.Now()
	_, err := client.Generate(context.Background(), "q")
	require.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(2), gen.calls.Load())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClientHonoursCallerCancellation(t *testing.T) {
	gen := &scriptedGenerator{block: true}
	client := NewClient(gen, 5, time.Second, time.Millisecond, utils.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Generate(ctx, "q")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&ProviderError{StatusCode: 429}))
	assert.True(t, IsTransient(&ProviderError{StatusCode: 500}))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(errors.New("dial tcp: connection refused")))
	assert.False(t, IsTransient(&ProviderError{StatusCode: 400}))
	assert.False(t, IsTransient(&ProviderError{StatusCode: 404}))
	assert.False(t, IsTransient(ErrNotConfigured))
	assert.False(t, IsTransient(nil))
}
