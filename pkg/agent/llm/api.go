// Package llm defines the interface and message types for language model
// clients used by the soul extraction boundary.
package llm

import "context"

// CompletionRole is the role of a message in a conversation.
type CompletionRole string

const (
	RoleSystem    CompletionRole = "system"
	RoleUser      CompletionRole = "user"
	RoleAssistant CompletionRole = "assistant"
)

const (
	// DefaultMaxTokens bounds extraction responses; soul profiles are small.
	DefaultMaxTokens = 2048

	// TemperatureExtraction keeps entity extraction near-deterministic.
	TemperatureExtraction = 0.1
)

// CompletionMessage is one message of a completion request.
type CompletionMessage struct {
	Role    CompletionRole
	Content string
}

// CompletionRequest asks the model for a single completion.
type CompletionRequest struct {
	Messages    []CompletionMessage
	MaxTokens   int
	Temperature float32
}

// CompletionResponse is the model's reply.
type CompletionResponse struct {
	Content    string
	StopReason string
}

// StreamChunk is one piece of a streamed completion.
type StreamChunk struct {
	Error   error
	Content string
	Done    bool
}

// Client is the interface every language model provider implements.
type Client interface {
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// Stream generates a completion as a stream of chunks.
	Stream(ctx context.Context, in CompletionRequest) (<-chan StreamChunk, error)

	// ModelName returns the model identifier this client talks to.
	ModelName() string
}

// NewCompletionRequest builds a request with extraction defaults.
func NewCompletionRequest(messages ...CompletionMessage) CompletionRequest {
	return CompletionRequest{
		Messages:    messages,
		MaxTokens:   DefaultMaxTokens,
		Temperature: TemperatureExtraction,
	}
}

// NewSystemMessage builds a system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleSystem, Content: content}
}

// NewUserMessage builds a user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleUser, Content: content}
}

// SplitSystem separates the system prompt from the conversational messages,
// for providers that take the system prompt as a top-level parameter.
func SplitSystem(messages []CompletionMessage) (system string, rest []CompletionMessage) {
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
			continue
		}
		rest = append(rest, msg)
	}
	return system, rest
}
