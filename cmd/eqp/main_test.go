package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/equivalence/internal/audit"
	"github.com/agenthands/equivalence/internal/config"
	"github.com/agenthands/equivalence/internal/core/equivalence"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "ask", "fetch"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestRootCmd_BadLogLevel(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--log-level", "loud", "fetch", "https://example.com"})
	assert.ErrorContains(t, root.Execute(), "invalid log level")
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default().Consensus, cfg.Consensus)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[llm\n"), 0o644))
	_, err := loadConfig(path)
	assert.Error(t, err)
}

func TestNewApp_InMemory(t *testing.T) {
	cfg := config.Default()
	cfg.Consensus.UseJudge = true

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close(context.Background())

	assert.Len(t, a.Engine.Validators, 3)
	assert.NotNil(t, a.Engine.Comparator.Judge)
	_, ok := a.Store.(*audit.MemoryRecorder)
	assert.True(t, ok)
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, "true", nil))
	assert.Equal(t, "true\n", buf.String())

	err := printResult(&buf, "", &equivalence.ConsensusDivergenceError{Reason: "x"})
	assert.ErrorContains(t, err, "consensus_divergence")
	var div *equivalence.ConsensusDivergenceError
	assert.True(t, errors.As(err, &div))
}
