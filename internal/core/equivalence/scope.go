package equivalence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/equivalence/internal/core/model"
)

type State int

const (
	StateOpen State = iota
	StateAwaitingResults
	StateFinalized
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateAwaitingResults:
		return "AWAITING_RESULTS"
	case StateFinalized:
		return "FINALIZED"
	case StateFailed:
		return "FAILED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) Terminal() bool {
	return s == StateFinalized || s == StateFailed
}

// Scope gathers the oracle calls and per-validator results of one guarded
// block and reduces them to a single agreed output. A scope belongs to one
// contract invocation and is not safe for concurrent use.
type Scope struct {
	ID          string
	Principle   string
	Comparative bool

	comparator *Comparator
	state      State
	calls      []model.OracleCall
	results    map[string]model.OracleResult
	order      []string
	decision   Decision
	consumed   bool
	closed     bool
	err        error
	openedAt   time.Time
	closedAt   time.Time
	now        func() time.Time
}

func NewScope(principle string, comparative bool, cmp *Comparator) *Scope {
	if cmp == nil {
		cmp = NewComparator(DefaultSimilarityThreshold, nil)
	}
	s := &Scope{
		ID:          uuid.New().String(),
		Principle:   principle,
		Comparative: comparative,
		comparator:  cmp,
		results:     make(map[string]model.OracleResult),
		now:         func() time.Time { return time.Now().UTC() },
	}
	s.openedAt = s.now()
	return s
}

func (s *Scope) State() State { return s.state }

// Err is the failure cause once the scope is FAILED.
func (s *Scope) Err() error { return s.err }

func (s *Scope) Calls() []model.OracleCall {
	return append([]model.OracleCall(nil), s.calls...)
}

// AddCall registers an issued oracle call. The first call moves the scope to
// AWAITING_RESULTS.
func (s *Scope) AddCall(call model.OracleCall) error {
	if s.state.Terminal() || s.closed {
		return ErrScopeClosed
	}
	s.calls = append(s.calls, call)
	if s.state == StateOpen {
		s.state = StateAwaitingResults
	}
	return nil
}

// Submit records one validator's candidate.
func (s *Scope) Submit(res model.OracleResult) error {
	switch {
	case s.state.Terminal() || s.closed:
		return ErrScopeClosed
	case s.state == StateOpen:
		return ErrNoOracleCall
	}
	if _, dup := s.results[res.ValidatorID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateResult, res.ValidatorID)
	}
	s.results[res.ValidatorID] = res
	s.order = append(s.order, res.ValidatorID)
	return nil
}

// Fail moves a non-terminal scope to FAILED. Results already submitted stay
// visible to Record but can never become the output.
func (s *Scope) Fail(err error) {
	if s.state.Terminal() {
		return
	}
	s.state = StateFailed
	s.err = err
}

// Finalize runs the comparator over the submitted results in submission
// order. Without results it returns ErrNoResults and changes nothing.
func (s *Scope) Finalize(ctx context.Context) error {
	if s.state.Terminal() || s.closed {
		return ErrScopeClosed
	}
	if len(s.order) == 0 {
		return ErrNoResults
	}
	if err := ctx.Err(); err != nil {
		s.Fail(s.abandoned(err))
		return s.err
	}

	candidates := make([]Candidate, len(s.order))
	for i, id := range s.order {
		res := s.results[id]
		kind := res.Kind
		if kind == "" {
			kind = res.Call.Kind
		}
		candidates[i] = Candidate{ValidatorID: id, Output: res.RawOutput, Kind: kind}
	}

	decision, err := s.comparator.Compare(ctx, s.Principle, s.Comparative, candidates)
	if err != nil {
		s.Fail(err)
		return err
	}
	s.decision = decision
	s.state = StateFinalized
	return nil
}

// abandoned reports a cancellation as the oracle becoming unavailable for the
// last issued call.
func (s *Scope) abandoned(err error) error {
	e := &OracleUnavailableError{Err: err}
	if n := len(s.calls); n > 0 {
		e.Kind = s.calls[n-1].Kind
		e.Input = s.calls[n-1].Input
	}
	return e
}

// Output returns the agreed value. It can be read once.
func (s *Scope) Output() (string, error) {
	switch {
	case s.state == StateFailed:
		return "", s.err
	case s.state != StateFinalized:
		return "", ErrNoResults
	case s.consumed:
		return "", ErrOutputConsumed
	}
	s.consumed = true
	return s.decision.Output, nil
}

// Decision is the comparator's certificate for a finalized scope.
func (s *Scope) Decision() (Decision, bool) {
	return s.decision, s.state == StateFinalized
}

// Close ends the scope. A scope that has not reached a terminal state is
// failed with ErrScopeAbandoned. Close returns the failure cause, if any.
func (s *Scope) Close() error {
	if s.closed {
		return s.err
	}
	if !s.state.Terminal() {
		s.Fail(ErrScopeAbandoned)
	}
	s.closed = true
	s.closedAt = s.now()
	return s.err
}

// Record is the audit view of the scope.
func (s *Scope) Record() model.ScopeRecord {
	rec := model.ScopeRecord{
		ID:          s.ID,
		Principle:   s.Principle,
		Comparative: s.Comparative,
		State:       s.state.String(),
		OpenedAt:    s.openedAt,
		ClosedAt:    s.closedAt,
		Calls:       s.Calls(),
	}
	if s.err != nil {
		rec.Error = s.err.Error()
		rec.ErrorKind = string(KindOf(s.err))
	}
	if s.state == StateFinalized {
		rec.FinalOutput = s.decision.Output
	}
	for _, id := range s.order {
		rec.Results = append(rec.Results, s.results[id])
	}
	return rec
}
