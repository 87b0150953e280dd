package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/equivalence/internal/core/model"
	"github.com/agenthands/equivalence/internal/driver"
)

// GraphRecorder stores each scope as a :Scope node linked to its
// :OracleCall and :OracleResult nodes.
type GraphRecorder struct {
	Driver driver.GraphDriver
	Log    *slog.Logger
}

func NewGraphRecorder(d driver.GraphDriver) *GraphRecorder {
	return &GraphRecorder{Driver: d, Log: slog.Default().With("component", "audit")}
}

func (g *GraphRecorder) RecordScope(ctx context.Context, rec model.ScopeRecord) error {
	_, err := g.Driver.ExecuteQuery(ctx, driver.SaveScopeQuery, map[string]interface{}{
		"id":           rec.ID,
		"principle":    rec.Principle,
		"comparative":  rec.Comparative,
		"state":        rec.State,
		"error_kind":   rec.ErrorKind,
		"error":        rec.Error,
		"final_output": rec.FinalOutput,
		"opened_at":    formatTime(rec.OpenedAt),
		"closed_at":    formatTime(rec.ClosedAt),
	})
	if err != nil {
		return fmt.Errorf("failed to save scope %s: %w", rec.ID, err)
	}

	for i, c := range rec.Calls {
		_, err := g.Driver.ExecuteQuery(ctx, driver.SaveOracleCallQuery, map[string]interface{}{
			"scope_id":  rec.ID,
			"id":        c.ID,
			"kind":      string(c.Kind),
			"input":     c.Input,
			"issued_by": c.IssuedBy,
			"issued_at": formatTime(c.IssuedAt),
			"seq":       i,
		})
		if err != nil {
			return fmt.Errorf("failed to save oracle call %s: %w", c.ID, err)
		}
	}

	for i, r := range rec.Results {
		_, err := g.Driver.ExecuteQuery(ctx, driver.SaveOracleResultQuery, map[string]interface{}{
			"scope_id":     rec.ID,
			"call_id":      r.Call.ID,
			"validator_id": r.ValidatorID,
			"raw_output":   r.RawOutput,
			"kind":         string(r.Kind),
			"timestamp":    formatTime(r.Timestamp),
			"seq":          i,
		})
		if err != nil {
			return fmt.Errorf("failed to save result of %s: %w", r.ValidatorID, err)
		}
	}

	g.Log.Debug("recorded scope", "scope", rec.ID, "state", rec.State, "calls", len(rec.Calls), "results", len(rec.Results))
	return nil
}

func (g *GraphRecorder) Get(ctx context.Context, id string) (model.ScopeRecord, error) {
	params := map[string]interface{}{"id": id}

	res, err := g.Driver.ExecuteQuery(ctx, driver.GetScopeQuery, params)
	if err != nil {
		return model.ScopeRecord{}, fmt.Errorf("failed to load scope %s: %w", id, err)
	}
	if len(res.Records) == 0 {
		return model.ScopeRecord{}, ErrNotFound
	}
	rec := scopeFromRecord(res.Records[0])

	res, err = g.Driver.ExecuteQuery(ctx, driver.GetScopeCallsQuery, params)
	if err != nil {
		return model.ScopeRecord{}, fmt.Errorf("failed to load calls of scope %s: %w", id, err)
	}
	calls := make(map[string]model.OracleCall, len(res.Records))
	for _, r := range res.Records {
		c := callFromRecord(r)
		calls[c.ID] = c
		rec.Calls = append(rec.Calls, c)
	}

	res, err = g.Driver.ExecuteQuery(ctx, driver.GetScopeResultsQuery, params)
	if err != nil {
		return model.ScopeRecord{}, fmt.Errorf("failed to load results of scope %s: %w", id, err)
	}
	for _, r := range res.Records {
		rec.Results = append(rec.Results, model.OracleResult{
			Call:        calls[getString(r, "call_id")],
			ValidatorID: getString(r, "validator_id"),
			RawOutput:   getString(r, "raw_output"),
			Kind:        model.CallKind(getString(r, "kind")),
			Timestamp:   getTime(r, "timestamp"),
		})
	}

	return rec, nil
}

func (g *GraphRecorder) List(ctx context.Context, state string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	res, err := g.Driver.ExecuteQuery(ctx, driver.ListScopesQuery, map[string]interface{}{
		"state": state,
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list scopes: %w", err)
	}
	ids := make([]string, 0, len(res.Records))
	for _, r := range res.Records {
		ids = append(ids, getString(r, "id"))
	}
	return ids, nil
}

func scopeFromRecord(r *neo4j.Record) model.ScopeRecord {
	comparative, _ := get(r, "comparative").(bool)
	return model.ScopeRecord{
		ID:          getString(r, "id"),
		Principle:   getString(r, "principle"),
		Comparative: comparative,
		State:       getString(r, "state"),
		ErrorKind:   getString(r, "error_kind"),
		Error:       getString(r, "error"),
		FinalOutput: getString(r, "final_output"),
		OpenedAt:    getTime(r, "opened_at"),
		ClosedAt:    getTime(r, "closed_at"),
	}
}

func callFromRecord(r *neo4j.Record) model.OracleCall {
	return model.OracleCall{
		ID:       getString(r, "id"),
		Kind:     model.CallKind(getString(r, "kind")),
		Input:    getString(r, "input"),
		IssuedBy: getString(r, "issued_by"),
		IssuedAt: getTime(r, "issued_at"),
	}
}

func get(r *neo4j.Record, key string) any {
	v, _ := r.Get(key)
	return v
}

func getString(r *neo4j.Record, key string) string {
	s, _ := get(r, key).(string)
	return s
}

// Times are stored as RFC 3339 strings so they survive Memgraph's temporal
// types unchanged.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func getTime(r *neo4j.Record, key string) time.Time {
	switch v := get(r, key).(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err == nil {
			return t
		}
	}
	return time.Time{}
}
