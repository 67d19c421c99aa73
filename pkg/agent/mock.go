package agent

import (
	"context"
	"fmt"
	"sync"

	"maestro/pkg/agent/llm"
)

// MockClient is a controllable llm.Client for tests and offline runs.
// Responses and errors are consumed in order; errors take precedence.
type MockClient struct {
	mu            sync.Mutex
	responses     []llm.CompletionResponse
	responseIndex int
	errs          []error
	errIndex      int
	calls         int
}

// NewMockClient creates a mock client with predefined responses and errors.
func NewMockClient(responses []llm.CompletionResponse, errs []error) *MockClient {
	return &MockClient{responses: responses, errs: errs}
}

// NewMockClientWithContent creates a mock client that returns the given
// content strings in order.
func NewMockClientWithContent(contents ...string) *MockClient {
	responses := make([]llm.CompletionResponse, len(contents))
	for i, content := range contents {
		responses[i] = llm.CompletionResponse{Content: content, StopReason: "end_turn"}
	}
	return NewMockClient(responses, nil)
}

// Complete returns the next predefined response or error.
func (m *MockClient) Complete(ctx context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return llm.CompletionResponse{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.errIndex < len(m.errs) && m.errs[m.errIndex] != nil {
		err := m.errs[m.errIndex]
		m.errIndex++
		return llm.CompletionResponse{}, err
	}
	if m.responseIndex >= len(m.responses) {
		return llm.CompletionResponse{}, fmt.Errorf("mock client: no more responses")
	}
	resp := m.responses[m.responseIndex]
	m.responseIndex++
	return resp, nil
}

// Stream returns the next predefined response as a two-chunk stream.
func (m *MockClient) Stream(ctx context.Context, in llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	return completeAsStream(ctx, m, in)
}

// ModelName implements llm.Client.
func (m *MockClient) ModelName() string {
	return "mock"
}

// Calls returns how many completions were requested.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
