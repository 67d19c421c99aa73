package agent

import (
	"context"
	"errors"
	"time"

	"maestro/pkg/agent/llm"
	"maestro/pkg/agent/llmerrors"
	"maestro/pkg/logx"
)

// RetryingClient wraps an llm.Client with classified-error retry. Backoff
// policy comes from the error classification; non-retryable errors are
// returned immediately.
type RetryingClient struct {
	inner  llm.Client
	logger *logx.Logger
}

// NewRetryingClient wraps a client with retry handling.
func NewRetryingClient(inner llm.Client) *RetryingClient {
	return &RetryingClient{
		inner:  inner,
		logger: logx.NewLogger("llm-retry"),
	}
}

// Complete retries the inner completion per the error's retry policy.
func (r *RetryingClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	var lastErr error

	attempt := 0
	for {
		resp, err := r.inner.Complete(ctx, in)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var llmErr *llmerrors.Error
		if !errors.As(err, &llmErr) || !llmErr.IsRetryable() {
			return llm.CompletionResponse{}, err
		}

		cfg := llmErr.RetryConfig()
		if attempt >= cfg.MaxRetries {
			break
		}

		delay := backoffDelay(cfg, attempt)
		r.logger.Warn("completion failed (%s), retry %d/%d in %s",
			llmErr.Type, attempt+1, cfg.MaxRetries, delay)

		select {
		case <-ctx.Done():
			return llm.CompletionResponse{}, ctx.Err()
		case <-time.After(delay):
		}
		attempt++
	}

	return llm.CompletionResponse{}, lastErr
}

// Stream delegates to the inner client without retry; chunk errors are
// surfaced to the consumer.
func (r *RetryingClient) Stream(ctx context.Context, in llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	return r.inner.Stream(ctx, in)
}

// ModelName implements llm.Client.
func (r *RetryingClient) ModelName() string {
	return r.inner.ModelName()
}

func backoffDelay(cfg llmerrors.RetryConfig, attempt int) time.Duration {
	delay := cfg.InitialDelay
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if delay >= cfg.MaxDelay {
			return cfg.MaxDelay
		}
	}
	if delay > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return delay
}
