package equivalence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/equivalence/internal/core/model"
	"github.com/agenthands/equivalence/internal/oracle"
)

// Session is the context object a contract block receives for one
// validator. Its candidate is the value given to Set, or else the output of
// its last oracle call.
type Session struct {
	validator oracle.Validator
	scopeID   string

	calls    []model.OracleCall
	last     string
	value    string
	hasValue bool
	done     bool
}

func newSession(scopeID string, v oracle.Validator) *Session {
	return &Session{validator: v, scopeID: scopeID}
}

func (s *Session) ValidatorID() string { return s.validator.ID }

func (s *Session) ScopeID() string { return s.scopeID }

func (s *Session) CallLLM(ctx context.Context, prompt string) (string, error) {
	return s.call(ctx, model.KindLLM, prompt, s.validator.Oracle.CallLLM)
}

func (s *Session) GetWebpage(ctx context.Context, url string) (string, error) {
	return s.call(ctx, model.KindWebFetch, url, s.validator.Oracle.GetWebpage)
}

func (s *Session) call(ctx context.Context, kind model.CallKind, input string, fn func(context.Context, string) (string, error)) (string, error) {
	if s.done {
		return "", ErrScopeClosed
	}

	s.calls = append(s.calls, model.OracleCall{
		ID:       uuid.New().String(),
		Kind:     kind,
		Input:    input,
		IssuedBy: s.validator.ID,
		IssuedAt: time.Now().UTC(),
	})

	out, err := fn(ctx, input)
	if err != nil {
		return "", err
	}
	s.last = out
	return out, nil
}

// Set records the candidate explicitly. Strings are taken verbatim; any other
// value is JSON-encoded.
func (s *Session) Set(value any) error {
	if s.done {
		return ErrScopeClosed
	}

	switch v := value.(type) {
	case string:
		s.value = v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return &MalformedOutputError{Output: fmt.Sprintf("%v", v), Err: err}
		}
		s.value = string(raw)
	}
	s.hasValue = true
	return nil
}

func (s *Session) result() (model.OracleResult, bool) {
	if len(s.calls) == 0 && !s.hasValue {
		return model.OracleResult{}, false
	}

	res := model.OracleResult{
		ValidatorID: s.validator.ID,
		RawOutput:   s.last,
		Timestamp:   time.Now().UTC(),
	}
	if len(s.calls) > 0 {
		res.Call = s.calls[len(s.calls)-1]
		res.Kind = res.Call.Kind
	}
	if s.hasValue {
		res.RawOutput = s.value
		res.Kind = model.KindValue
	}
	return res, true
}
