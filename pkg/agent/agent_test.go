package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maestro/pkg/agent/llm"
	"maestro/pkg/agent/llmerrors"
	"maestro/pkg/config"
)

func TestMockClientReturnsResponsesInOrder(t *testing.T) {
	client := NewMockClientWithContent("first", "second")

	resp, err := client.Complete(context.Background(), llm.NewCompletionRequest(llm.NewUserMessage("hi")))
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Content)

	resp, err = client.Complete(context.Background(), llm.NewCompletionRequest(llm.NewUserMessage("hi")))
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Content)

	_, err = client.Complete(context.Background(), llm.NewCompletionRequest(llm.NewUserMessage("hi")))
	assert.Error(t, err)
	assert.Equal(t, 3, client.Calls())
}

func TestRetryingClientRetriesTransientErrors(t *testing.T) {
	inner := NewMockClient(
		[]llm.CompletionResponse{{Content: "ok"}},
		[]error{llmerrors.New(llmerrors.ErrorTypeTransient, "blip")},
	)
	client := NewRetryingClient(inner)

	resp, err := client.Complete(context.Background(), llm.NewCompletionRequest(llm.NewUserMessage("hi")))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 2, inner.Calls())
}

func TestRetryingClientDoesNotRetryAuthErrors(t *testing.T) {
	inner := NewMockClient(
		[]llm.CompletionResponse{{Content: "never reached"}},
		[]error{llmerrors.New(llmerrors.ErrorTypeAuth, "bad key")},
	)
	client := NewRetryingClient(inner)

	_, err := client.Complete(context.Background(), llm.NewCompletionRequest(llm.NewUserMessage("hi")))
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeAuth))
	assert.Equal(t, 1, inner.Calls())
}

func TestRetryingClientHonorsContextCancellation(t *testing.T) {
	inner := NewMockClient(nil, []error{
		llmerrors.New(llmerrors.ErrorTypeRateLimit, "slow down"),
		llmerrors.New(llmerrors.ErrorTypeRateLimit, "slow down"),
	})
	client := NewRetryingClient(inner)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, llm.NewCompletionRequest(llm.NewUserMessage("hi")))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want llmerrors.ErrorType
	}{
		{"deadline", context.DeadlineExceeded, llmerrors.ErrorTypeTransient},
		{"status 429", errString("request failed, status code: 429"), llmerrors.ErrorTypeRateLimit},
		{"status 401", errString("request failed, status code: 401"), llmerrors.ErrorTypeAuth},
		{"status 400", errString("request failed, status code: 400"), llmerrors.ErrorTypeBadPrompt},
		{"status 503", errString("request failed, status code: 503"), llmerrors.ErrorTypeTransient},
		{"connection reset", errString("read tcp: connection reset by peer"), llmerrors.ErrorTypeTransient},
		{"quota text", errString("monthly quota exhausted"), llmerrors.ErrorTypeRateLimit},
		{"mystery", errString("something odd"), llmerrors.ErrorTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := classifyError(tt.err)
			require.NotNil(t, classified)
			assert.Equal(t, tt.want, classified.Type)
		})
	}
}

func TestBackoffDelayIsCapped(t *testing.T) {
	cfg := llmerrors.RetryConfig{
		InitialDelay:  time.Second,
		MaxDelay:      4 * time.Second,
		BackoffFactor: 2.0,
	}
	assert.Equal(t, time.Second, backoffDelay(cfg, 0))
	assert.Equal(t, 2*time.Second, backoffDelay(cfg, 1))
	assert.Equal(t, 4*time.Second, backoffDelay(cfg, 2))
	assert.Equal(t, 4*time.Second, backoffDelay(cfg, 5))
}

func TestNewClientFactory(t *testing.T) {
	_, err := NewClient(config.LLMConfig{Provider: "anthropic"})
	assert.Error(t, err, "missing API key must be rejected")

	client, err := NewClient(config.LLMConfig{Provider: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock", client.ModelName())

	_, err = NewClient(config.LLMConfig{Provider: "something-else"})
	assert.Error(t, err)

	client, err = NewClient(config.LLMConfig{Provider: "ollama", Model: "llama3.1"})
	require.NoError(t, err)
	assert.Equal(t, "llama3.1", client.ModelName())
}

type errString string

func (e errString) Error() string { return string(e) }
