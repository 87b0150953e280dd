package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/agenthands/equivalence/internal/audit"
	"github.com/agenthands/equivalence/internal/config"
	"github.com/agenthands/equivalence/internal/core/equivalence"
	"github.com/agenthands/equivalence/internal/driver"
	"github.com/agenthands/equivalence/internal/llm"
	"github.com/agenthands/equivalence/internal/oracle"
	"github.com/agenthands/equivalence/internal/web"
)

type app struct {
	Config *config.Config
	Engine *equivalence.Engine
	Store  audit.Store
	closer func(context.Context) error
}

func (a *app) Close(ctx context.Context) error {
	if a.closer == nil {
		return nil
	}
	return a.closer(ctx)
}

// loadConfig reads path, falling back to defaults when the file is absent.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("config file not found, using defaults", "path", path)
		cfg = config.Default()
	} else if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	fetcher := web.NewHTTPFetcher(cfg.Web)

	validators, err := oracle.NewValidators(ctx, cfg, fetcher)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize validators: %w", err)
	}

	var judge equivalence.Judge
	if cfg.Consensus.UseJudge {
		client, err := llm.NewClient(ctx, cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize judge: %w", err)
		}
		judge = equivalence.NewLLMJudge(client, cfg.Prompts.Judge)
	}

	a := &app{Config: cfg}
	if cfg.Memgraph.URI != "" {
		d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password)
		if err != nil {
			return nil, err
		}
		if err := d.BuildIndices(ctx); err != nil {
			return nil, err
		}
		a.Store = audit.NewGraphRecorder(d)
		a.closer = d.Close
	} else {
		slog.Info("memgraph not configured, keeping audit records in memory")
		a.Store = audit.NewMemoryRecorder()
	}

	a.Engine = equivalence.NewEngine(validators, equivalence.NewComparator(cfg.Consensus.SimilarityThreshold, judge))
	a.Engine.Recorder = a.Store

	slog.Info("engine ready", "validators", len(validators), "judge", judge != nil, "provider", cfg.LLM.Provider)
	return a, nil
}
