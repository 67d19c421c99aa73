package agent

import (
	"fmt"

	"maestro/pkg/agent/llm"
	"maestro/pkg/config"
)

// NewClient builds the llm.Client for the configured provider, wrapped with
// retry handling. The mock provider needs no credentials and is intended for
// tests and offline development.
func NewClient(cfg config.LLMConfig) (llm.Client, error) {
	var client llm.Client

	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires %s", config.EnvAnthropicAPIKey)
		}
		client = NewAnthropicClient(cfg.AnthropicAPIKey, cfg.Model)
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider requires %s", config.EnvOpenAIAPIKey)
		}
		client = NewOpenAIClient(cfg.OpenAIAPIKey, cfg.Model)
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini provider requires %s", config.EnvGeminiAPIKey)
		}
		client = NewGeminiClient(cfg.GeminiAPIKey, cfg.Model)
	case "ollama":
		client = NewOllamaClient(cfg.OllamaHost, cfg.Model)
	case "mock":
		return NewMockClientWithContent("{}"), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}

	return NewRetryingClient(client), nil
}
