package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agenthands/equivalence/internal/audit"
	"github.com/agenthands/equivalence/internal/core/equivalence"
)

type Server struct {
	Engine *equivalence.Engine
	Store  audit.Store
	Log    *slog.Logger
}

func NewServer(engine *equivalence.Engine, store audit.Store) *Server {
	if store == nil {
		store = audit.NopRecorder{}
	}
	return &Server{
		Engine: engine,
		Store:  store,
		Log:    slog.Default().With("component", "server"),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", s.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/llm", s.CallLLM)
	r.POST("/webpage", s.GetWebpage)
	r.GET("/scopes", s.ListScopes)
	r.GET("/scopes/:id", s.GetScope)

	return r
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "validators": len(s.Engine.Validators)})
}

type LLMRequest struct {
	Prompt      string `json:"prompt" binding:"required"`
	Principle   string `json:"principle"`
	Comparative bool   `json:"comparative"`
}

func (s *Server) CallLLM(c *gin.Context) {
	var req LLMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	out, err := s.Engine.CallLLMWithPrinciple(c.Request.Context(), req.Prompt, req.Principle, req.Comparative)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"output": out})
}

type WebpageRequest struct {
	URL       string `json:"url" binding:"required"`
	Principle string `json:"principle"`
}

func (s *Server) GetWebpage(c *gin.Context) {
	var req WebpageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	page, err := s.Engine.GetWebpageWithPrinciple(c.Request.Context(), req.URL, req.Principle)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (s *Server) ListScopes(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	ids, err := s.Store.List(c.Request.Context(), c.Query("state"), limit)
	if err != nil {
		s.Log.Error("failed to list scopes", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list scopes"})
		return
	}
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"scopes": ids})
}

func (s *Server) GetScope(c *gin.Context) {
	rec, err := s.Store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, audit.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Scope not found"})
		return
	}
	if err != nil {
		s.Log.Error("failed to load scope", "scope", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load scope"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// fail writes err with the status its kind maps to.
func (s *Server) fail(c *gin.Context, err error) {
	kind := equivalence.KindOf(err)
	status := StatusFor(kind)
	if status >= http.StatusInternalServerError {
		s.Log.Error("request failed", "path", c.FullPath(), "kind", kind, "error", err)
	} else {
		s.Log.Warn("request rejected", "path", c.FullPath(), "kind", kind, "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": kind})
}

func StatusFor(kind equivalence.ErrorKind) int {
	switch kind {
	case equivalence.KindMalformedOutput, equivalence.KindConsensusDivergence, equivalence.KindPrincipleViolation:
		return http.StatusUnprocessableEntity
	case equivalence.KindOracleUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
