// Package audit keeps the record of closed equivalence scopes: what was asked,
// what every validator answered, and how the scope ended.
package audit

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/agenthands/equivalence/internal/core/model"
)

var ErrNotFound = errors.New("scope not found")

// Store records closed scopes and looks them up again.
type Store interface {
	RecordScope(ctx context.Context, rec model.ScopeRecord) error
	Get(ctx context.Context, id string) (model.ScopeRecord, error)
	// List returns the most recently closed scope ids, optionally filtered by
	// state. limit <= 0 means the default of 50.
	List(ctx context.Context, state string, limit int) ([]string, error)
}

const defaultListLimit = 50

// NopRecorder drops every record.
type NopRecorder struct{}

func (NopRecorder) RecordScope(context.Context, model.ScopeRecord) error { return nil }

func (NopRecorder) Get(context.Context, string) (model.ScopeRecord, error) {
	return model.ScopeRecord{}, ErrNotFound
}

func (NopRecorder) List(context.Context, string, int) ([]string, error) { return nil, nil }

// MemoryRecorder keeps records in process memory.
type MemoryRecorder struct {
	mu      sync.RWMutex
	records map[string]model.ScopeRecord
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{records: make(map[string]model.ScopeRecord)}
}

func (m *MemoryRecorder) RecordScope(ctx context.Context, rec model.ScopeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	return nil
}

func (m *MemoryRecorder) Get(ctx context.Context, id string) (model.ScopeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return model.ScopeRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryRecorder) List(ctx context.Context, state string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	m.mu.RLock()
	recs := make([]model.ScopeRecord, 0, len(m.records))
	for _, r := range m.records {
		if state == "" || r.State == state {
			recs = append(recs, r)
		}
	}
	m.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].ClosedAt.Equal(recs[j].ClosedAt) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].ClosedAt.After(recs[j].ClosedAt)
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}

	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids, nil
}
