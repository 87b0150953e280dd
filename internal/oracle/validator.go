package oracle

import (
	"context"
	"fmt"

	"github.com/agenthands/equivalence/internal/config"
	"github.com/agenthands/equivalence/internal/llm"
	"github.com/agenthands/equivalence/internal/web"
)

// Validator is one independent execution agent with its own oracle.
type Validator struct {
	ID     string
	Oracle Oracle
}

// NewValidators builds one live oracle per configured validator. All
// validators share the page fetcher; each gets its own model client.
func NewValidators(ctx context.Context, cfg *config.Config, fetcher web.Fetcher) ([]Validator, error) {
	set := cfg.ValidatorSet()
	out := make([]Validator, 0, len(set))
	for _, v := range set {
		client, err := llm.NewClient(ctx, v.LLM)
		if err != nil {
			return nil, fmt.Errorf("validator %s: %w", v.ID, err)
		}
		out = append(out, Validator{ID: v.ID, Oracle: NewLive(client, fetcher)})
	}
	return out, nil
}
