package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agenthands/equivalence/internal/config"
)

func NewClient(ctx context.Context, cfg config.LLMConfig) (LLMClient, error) {
	provider := strings.ToLower(cfg.Provider)
	opts := Options{MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature}

	switch provider {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL, opts), nil

	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model, opts)

	case "claude", "anthropic":
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL, opts), nil

	case "ollama":
		// Ollama is reached through its OpenAI-compatible endpoint.
		baseURL := cfg.BaseURL
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}

		slog.Debug("initializing ollama via OpenAI-compatible API", "base_url", baseURL, "model", cfg.Model)

		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama" // ignored by Ollama, required by the client
		}
		return NewOpenAIClient(apiKey, cfg.Model, baseURL, opts), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
