package oracle

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/agenthands/equivalence/internal/core/model"
)

// MockOracle answers from queues. When Block is set every call waits for
// the context to end.
type MockOracle struct {
	mu sync.Mutex

	Response      string
	ResponseQueue []string
	Pages         []string
	LLMErr        error
	WebErr        error
	Block         bool

	Prompts []string
	URLs    []string
}

func (m *MockOracle) CallLLM(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	block := m.Block
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", &UnavailableError{Kind: model.KindLLM, Input: prompt, Err: ctx.Err()}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LLMErr != nil {
		return "", &UnavailableError{Kind: model.KindLLM, Input: prompt, Err: m.LLMErr}
	}
	if len(m.ResponseQueue) > 0 {
		resp := m.ResponseQueue[0]
		m.ResponseQueue = m.ResponseQueue[1:]
		return resp, nil
	}
	return m.Response, nil
}

func (m *MockOracle) GetWebpage(ctx context.Context, url string) (string, error) {
	m.mu.Lock()
	m.URLs = append(m.URLs, url)
	block := m.Block
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", &UnavailableError{Kind: model.KindWebFetch, Input: url, Err: ctx.Err()}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WebErr != nil {
		return "", &UnavailableError{Kind: model.KindWebFetch, Input: url, Err: m.WebErr}
	}
	if len(m.Pages) == 0 {
		return "", &UnavailableError{Kind: model.KindWebFetch, Input: url, Err: errors.New("no page queued")}
	}
	page := m.Pages[0]
	m.Pages = m.Pages[1:]
	return page, nil
}

// Validators wraps mocks as validators named validator-1..validator-N.
func Validators(mocks ...*MockOracle) []Validator {
	out := make([]Validator, len(mocks))
	for i, m := range mocks {
		out[i] = Validator{ID: validatorID(i), Oracle: m}
	}
	return out
}

func validatorID(i int) string {
	return "validator-" + strconv.Itoa(i+1)
}
