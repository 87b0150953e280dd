package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/equivalence/internal/audit"
	"github.com/agenthands/equivalence/internal/core/equivalence"
	"github.com/agenthands/equivalence/internal/core/model"
	"github.com/agenthands/equivalence/internal/oracle"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(mocks ...*oracle.MockOracle) (*Server, *audit.MemoryRecorder, http.Handler) {
	store := audit.NewMemoryRecorder()
	e := equivalence.NewEngine(oracle.Validators(mocks...), equivalence.NewComparator(0.6, nil))
	e.Recorder = store
	s := NewServer(e, store)
	return s, store, s.SetupRouter()
}

func do(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestCallLLM(t *testing.T) {
	_, store, h := newTestServer(
		&oracle.MockOracle{Response: `{"reward": 5}`},
		&oracle.MockOracle{Response: `{"reward": 6}`},
	)

	w, body := do(t, h, http.MethodPost, "/llm", LLMRequest{Prompt: "rate it", Principle: "reward must be ±1", Comparative: true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"reward": 5}`, body["output"])

	ids, err := store.List(context.Background(), "FINALIZED", 0)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestCallLLM_Divergence(t *testing.T) {
	_, _, h := newTestServer(
		&oracle.MockOracle{Response: `{"reward": 3}`},
		&oracle.MockOracle{Response: `{"reward": 9}`},
	)

	w, body := do(t, h, http.MethodPost, "/llm", LLMRequest{Prompt: "rate it", Principle: "reward must be ±1", Comparative: true})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, string(equivalence.KindConsensusDivergence), body["kind"])
}

func TestCallLLM_OracleUnavailable(t *testing.T) {
	_, _, h := newTestServer(&oracle.MockOracle{LLMErr: assert.AnError})

	w, body := do(t, h, http.MethodPost, "/llm", LLMRequest{Prompt: "rate it"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, string(equivalence.KindOracleUnavailable), body["kind"])
}

func TestCallLLM_BadRequest(t *testing.T) {
	_, _, h := newTestServer(&oracle.MockOracle{})

	w, _ := do(t, h, http.MethodPost, "/llm", map[string]any{"principle": "no prompt"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetWebpage(t *testing.T) {
	_, _, h := newTestServer(
		&oracle.MockOracle{Pages: []string{"alice\nbio: 0xabc"}},
		&oracle.MockOracle{Pages: []string{"alice bio: 0xabc"}},
	)

	w, body := do(t, h, http.MethodPost, "/webpage", WebpageRequest{URL: "https://github.com/alice", Principle: "The result should be exactly the same"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice\nbio: 0xabc", body["output"])
}

func TestGetScope(t *testing.T) {
	s, store, h := newTestServer(&oracle.MockOracle{})
	require.NoError(t, store.RecordScope(context.Background(), model.ScopeRecord{
		ID: "s1", State: "FAILED", ErrorKind: "consensus_divergence", ClosedAt: time.Now(),
	}))

	w, body := do(t, h, http.MethodGet, "/scopes/s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "FAILED", body["state"])
	assert.Equal(t, "consensus_divergence", body["error_kind"])

	w, _ = do(t, h, http.MethodGet, "/scopes/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = do(t, h, http.MethodGet, "/scopes?state=FAILED", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"s1"}, body["scopes"])

	s.Store = audit.NopRecorder{}
	w, body = do(t, h, http.MethodGet, "/scopes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, body["scopes"])
}

func TestHealthAndMetrics(t *testing.T) {
	_, _, h := newTestServer(&oracle.MockOracle{}, &oracle.MockOracle{})

	w, body := do(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["validators"])

	w, _ = do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(equivalence.KindPrincipleViolation))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(equivalence.KindMalformedOutput))
	assert.Equal(t, http.StatusBadGateway, StatusFor(equivalence.KindOracleUnavailable))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(equivalence.KindScope))
}
