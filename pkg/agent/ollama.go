package agent

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"maestro/pkg/agent/llm"
	"maestro/pkg/agent/llmerrors"
)

const defaultOllamaModel = "llama3.1"

// OllamaClient implements llm.Client against a local Ollama server.
type OllamaClient struct {
	client *api.Client
	model  string
}

// NewOllamaClient creates an Ollama client for the given host URL. Invalid
// URLs fall back to the local default.
func NewOllamaClient(hostURL, model string) *OllamaClient {
	if model == "" {
		model = defaultOllamaModel
	}
	parsedURL, err := url.Parse(hostURL)
	if err != nil || parsedURL.Host == "" {
		parsedURL, _ = url.Parse("http://localhost:11434")
	}
	return &OllamaClient{
		client: api.NewClient(parsedURL, http.DefaultClient),
		model:  model,
	}
}

// Complete implements llm.Client.
func (o *OllamaClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	if len(in.Messages) == 0 {
		return llm.CompletionResponse{}, llmerrors.New(llmerrors.ErrorTypeBadPrompt, "message list cannot be empty")
	}

	messages := make([]api.Message, 0, len(in.Messages))
	for _, msg := range in.Messages {
		messages = append(messages, api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": in.Temperature,
			"num_predict": in.MaxTokens,
		},
	}

	var response api.ChatResponse
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if response.Message.Content == "" {
		return llm.CompletionResponse{}, llmerrors.New(llmerrors.ErrorTypeEmptyResponse, "empty response from Ollama")
	}

	stopReason := "end_turn"
	if response.DoneReason != "" {
		stopReason = response.DoneReason
	}
	return llm.CompletionResponse{
		Content:    response.Message.Content,
		StopReason: stopReason,
	}, nil
}

// Stream implements llm.Client.
func (o *OllamaClient) Stream(ctx context.Context, in llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	return completeAsStream(ctx, o, in)
}

// ModelName implements llm.Client.
func (o *OllamaClient) ModelName() string {
	return o.model
}
