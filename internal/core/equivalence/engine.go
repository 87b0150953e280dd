package equivalence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agenthands/equivalence/internal/core/model"
	"github.com/agenthands/equivalence/internal/oracle"
)

// Block is the guarded region of a contract method. It runs once per
// validator against that validator's session.
type Block func(ctx context.Context, eq *Session) error

// Recorder persists closed scopes for audit.
type Recorder interface {
	RecordScope(ctx context.Context, rec model.ScopeRecord) error
}

type Engine struct {
	Validators []oracle.Validator
	Comparator *Comparator
	Recorder   Recorder
	Log        *slog.Logger
}

func NewEngine(validators []oracle.Validator, cmp *Comparator) *Engine {
	return &Engine{
		Validators: validators,
		Comparator: cmp,
		Log:        slog.Default(),
	}
}

// Run opens a scope, executes block for every validator, and returns the
// agreed output. Any failure leaves nothing to commit: the caller gets an
// error and no output.
func (e *Engine) Run(ctx context.Context, principle string, comparative bool, block Block) (out string, err error) {
	if len(e.Validators) == 0 {
		return "", ErrNoValidators
	}

	scope := NewScope(principle, comparative, e.Comparator)
	log := e.logger().With("scope", scope.ID, "comparative", comparative)
	start := time.Now()

	defer func() {
		if cerr := scope.Close(); err == nil && cerr != nil {
			out, err = "", cerr
		}
		observeScope(scope, comparative, time.Since(start))
		e.record(ctx, scope, log)
	}()

	sessions := make([]*Session, len(e.Validators))
	g, gctx := errgroup.WithContext(ctx)
	for i, v := range e.Validators {
		v := v
		sess := newSession(scope.ID, v)
		sessions[i] = sess
		g.Go(func() error {
			defer func() { sess.done = true }()
			if err := block(gctx, sess); err != nil {
				return fmt.Errorf("validator %s: %w", v.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		scope.Fail(err)
		log.Warn("scope failed during execution", "error", err, "kind", KindOf(err))
		return "", err
	}

	for _, sess := range sessions {
		for _, call := range sess.calls {
			if err := scope.AddCall(call); err != nil {
				return "", err
			}
		}
	}
	var silent []Candidate
	var first Candidate
	for _, sess := range sessions {
		res, ok := sess.result()
		if !ok {
			silent = append(silent, Candidate{ValidatorID: sess.ValidatorID()})
			continue
		}
		if first.ValidatorID == "" {
			first = Candidate{ValidatorID: res.ValidatorID, Output: res.RawOutput, Kind: res.Kind}
		}
		if err := scope.Submit(res); err != nil {
			scope.Fail(err)
			return "", err
		}
	}
	if len(silent) > 0 && len(silent) < len(sessions) {
		err := &ConsensusDivergenceError{
			Principle: principle,
			Leader:    first,
			Divergent: silent,
			Reason:    "validator produced no result",
		}
		scope.Fail(err)
		return "", err
	}

	if err := scope.Finalize(ctx); err != nil {
		log.Warn("scope did not finalize", "error", err, "kind", KindOf(err), "state", scope.State())
		return "", err
	}

	out, err = scope.Output()
	if err != nil {
		return "", err
	}
	log.Debug("scope finalized", "validators", len(sessions), "calls", len(scope.Calls()))
	return out, nil
}

// CallLLMWithPrinciple runs a scope around exactly one LLM call and returns
// the agreed completion text.
func (e *Engine) CallLLMWithPrinciple(ctx context.Context, prompt, principle string, comparative bool) (string, error) {
	return e.Run(ctx, principle, comparative, func(ctx context.Context, eq *Session) error {
		_, err := eq.CallLLM(ctx, prompt)
		return err
	})
}

type WebpageOutput struct {
	Output string `json:"output"`
}

// GetWebpageWithPrinciple fetches url once per validator and reconciles the
// page texts under principle in comparative mode.
func (e *Engine) GetWebpageWithPrinciple(ctx context.Context, url, principle string) (WebpageOutput, error) {
	out, err := e.Run(ctx, principle, true, func(ctx context.Context, eq *Session) error {
		_, err := eq.GetWebpage(ctx, url)
		return err
	})
	if err != nil {
		return WebpageOutput{}, err
	}
	return WebpageOutput{Output: out}, nil
}

func (e *Engine) record(ctx context.Context, scope *Scope, log *slog.Logger) {
	if e.Recorder == nil {
		return
	}
	if err := e.Recorder.RecordScope(context.WithoutCancel(ctx), scope.Record()); err != nil {
		log.Error("failed to record scope", "error", err)
	}
}

func (e *Engine) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}
