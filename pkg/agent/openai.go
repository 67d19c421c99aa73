package agent

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"maestro/pkg/agent/llm"
	"maestro/pkg/agent/llmerrors"
)

const defaultOpenAIModel = openai.ChatModelGPT4oMini

// OpenAIClient implements llm.Client against the OpenAI chat completions API.
type OpenAIClient struct {
	client openai.Client
	model  openai.ChatModel
}

// NewOpenAIClient creates an OpenAI client. An empty model selects the
// default.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	chatModel := defaultOpenAIModel
	if model != "" {
		chatModel = openai.ChatModel(model)
	}
	return &OpenAIClient{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  chatModel,
	}
}

// Complete implements llm.Client.
func (c *OpenAIClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(in.Messages))
	for _, msg := range in.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   openai.Int(int64(in.MaxTokens)),
		Temperature: openai.Float(float64(in.Temperature)),
	})
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return llm.CompletionResponse{}, llmerrors.New(llmerrors.ErrorTypeEmptyResponse, "empty response from OpenAI API")
	}

	choice := resp.Choices[0]
	return llm.CompletionResponse{
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
	}, nil
}

// Stream implements llm.Client.
func (c *OpenAIClient) Stream(ctx context.Context, in llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	return completeAsStream(ctx, c, in)
}

// ModelName implements llm.Client.
func (c *OpenAIClient) ModelName() string {
	return string(c.model)
}
