package equivalence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agenthands/equivalence/internal/core/extract"
	"github.com/agenthands/equivalence/internal/oracle"
)

// ErrorKind classifies why a scope, and with it the contract call, failed.
type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindMalformedOutput     ErrorKind = "malformed_output"
	KindOracleUnavailable   ErrorKind = "oracle_unavailable"
	KindConsensusDivergence ErrorKind = "consensus_divergence"
	KindPrincipleViolation  ErrorKind = "principle_violation"
	KindScope               ErrorKind = "scope"
	KindUnknown             ErrorKind = "unknown"
)

// Scope lifecycle errors.
var (
	ErrNoResults       = errors.New("scope has no oracle results")
	ErrNoOracleCall    = errors.New("result submitted before any oracle call was issued")
	ErrDuplicateResult = errors.New("validator already submitted a result")
	ErrScopeClosed     = errors.New("scope is closed")
	ErrOutputConsumed  = errors.New("final output already consumed")
	ErrScopeAbandoned  = errors.New("scope closed before reaching agreement")
	ErrNoValidators    = errors.New("no validators configured")
)

// OracleUnavailableError is raised by the oracle primitives.
type OracleUnavailableError = oracle.UnavailableError

// MalformedOutputError reports output that does not contain the JSON object a
// prompt asked for.
type MalformedOutputError struct {
	Output string
	Err    error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed output: %v", e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

// ConsensusDivergenceError reports validators whose results fall outside the
// principle's tolerance. Leader is the first validator's candidate.
type ConsensusDivergenceError struct {
	Principle string
	Leader    Candidate
	Divergent []Candidate
	Reason    string
}

func (e *ConsensusDivergenceError) Error() string {
	ids := make([]string, len(e.Divergent))
	for i, c := range e.Divergent {
		ids[i] = c.ValidatorID
	}
	return fmt.Sprintf("consensus divergence: %s disagree with %s: %s",
		strings.Join(ids, ", "), e.Leader.ValidatorID, e.Reason)
}

// PrincipleViolationError is raised when the judge rejects a candidate.
type PrincipleViolationError struct {
	Principle   string
	ValidatorID string
	Field       string
	Reason      string
}

func (e *PrincipleViolationError) Error() string {
	where := e.ValidatorID
	if e.Field != "" {
		where += " at " + e.Field
	}
	return fmt.Sprintf("principle violation (%s): %s", where, e.Reason)
}

// KindOf maps err to its kind. Lifecycle errors are KindScope.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var (
		malformed *MalformedOutputError
		oracleErr *OracleUnavailableError
		diverge   *ConsensusDivergenceError
		violation *PrincipleViolationError
	)
	switch {
	case errors.As(err, &oracleErr):
		return KindOracleUnavailable
	case errors.As(err, &diverge):
		return KindConsensusDivergence
	case errors.As(err, &violation):
		return KindPrincipleViolation
	case errors.As(err, &malformed), errors.Is(err, extract.ErrMalformed):
		return KindMalformedOutput
	case errors.Is(err, ErrNoResults), errors.Is(err, ErrNoOracleCall), errors.Is(err, ErrDuplicateResult),
		errors.Is(err, ErrScopeClosed), errors.Is(err, ErrOutputConsumed), errors.Is(err, ErrScopeAbandoned),
		errors.Is(err, ErrNoValidators):
		return KindScope
	}
	return KindUnknown
}

// Decode parses a finalized output into the result variant T, requiring the
// given keys. Extraction failures become MalformedOutputError.
func Decode[T any](output string, required ...string) (T, error) {
	v, err := extract.Into[T](output, required...)
	if err != nil {
		return v, &MalformedOutputError{Output: output, Err: err}
	}
	return v, nil
}
