package llm

import (
	"context"
)

// LLMClient produces one raw completion for a prompt. Implementations do not
// retry.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options tunes a single provider client.
type Options struct {
	MaxTokens   int
	Temperature float32
}
