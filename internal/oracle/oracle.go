// Package oracle issues the two non-deterministic calls a contract may make:
// an LLM completion and a web page fetch. Calls are not retried here.
package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/agenthands/equivalence/internal/core/model"
	"github.com/agenthands/equivalence/internal/llm"
	"github.com/agenthands/equivalence/internal/web"
)

type Oracle interface {
	CallLLM(ctx context.Context, prompt string) (string, error)
	GetWebpage(ctx context.Context, url string) (string, error)
}

// UnavailableError is returned for any transport, provider, timeout or
// cancellation failure of an oracle call.
type UnavailableError struct {
	Kind  model.CallKind
	Input string
	Err   error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("oracle unavailable (%s %s): %v", e.Kind, truncate(e.Input, 80), e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Live is an Oracle backed by a real model client and page fetcher.
type Live struct {
	LLM     llm.LLMClient
	Web     web.Fetcher
	Timeout time.Duration // per call; zero means the caller's deadline only
}

func NewLive(llmClient llm.LLMClient, fetcher web.Fetcher) *Live {
	return &Live{LLM: llmClient, Web: fetcher}
}

func (o *Live) CallLLM(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	out, err := o.LLM.Generate(ctx, prompt)
	observeCall(model.KindLLM, start, err)
	if err != nil {
		return "", &UnavailableError{Kind: model.KindLLM, Input: prompt, Err: err}
	}
	return out, nil
}

func (o *Live) GetWebpage(ctx context.Context, url string) (string, error) {
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	out, err := o.Web.Fetch(ctx, url)
	observeCall(model.KindWebFetch, start, err)
	if err != nil {
		return "", &UnavailableError{Kind: model.KindWebFetch, Input: url, Err: err}
	}
	return out, nil
}

func (o *Live) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.Timeout > 0 {
		return context.WithTimeout(ctx, o.Timeout)
	}
	return context.WithCancel(ctx)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
