package driver

import (
	"context"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ExecutedQuery is one call observed by MockDriver.
type ExecutedQuery struct {
	Query  string
	Params map[string]interface{}
}

// MockDriver records queries. Results are served from ResultsByQuery, then
// MockResult.
type MockDriver struct {
	mu             sync.Mutex
	Queries        []ExecutedQuery
	ResultsByQuery map[string]neo4j.EagerResult
	MockResult     neo4j.EagerResult
	Err            error
	Indexed        bool
	Closed         bool
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, ExecutedQuery{Query: query, Params: params})
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	if r, ok := m.ResultsByQuery[query]; ok {
		return r, nil
	}
	return m.MockResult, nil
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	m.Indexed = true
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	m.Closed = true
	return nil
}

// Executed returns the recorded calls for query.
func (m *MockDriver) Executed(query string) []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ExecutedQuery
	for _, q := range m.Queries {
		if q.Query == query {
			out = append(out, q)
		}
	}
	return out
}
