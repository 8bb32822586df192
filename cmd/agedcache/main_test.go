package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aegis-sign/agedcache/internal/config"
)

func TestRunScenario(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ScenarioPath = scenarioPath("expiry.yaml")
	require.NoError(t, run(context.Background(), cfg, discardLogger()))
}

func TestRunFailsOnUnmetExpectations(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ScenarioPath = scenarioPath("failing.yaml")
	err := run(context.Background(), cfg, discardLogger())
	require.EqualError(t, err, "2 of 5 expectations failed")
}

func TestRunHonoursZeroDefaultRetention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zero.yaml")
	doc := "steps:\n  - {op: put, key: a, value: x}\n  - {op: advance, by: 1ms}\n  - {op: get, key: a, absent: true}\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	t.Setenv("AGEDCACHE_DEFAULT_RETENTION", "0")
	cfg := config.LoadConfigFromEnv()
	require.Zero(t, cfg.DefaultRetention)
	cfg.ScenarioPath = path
	require.NoError(t, run(context.Background(), cfg, discardLogger()))
}

func TestRunRequiresScenarioPath(t *testing.T) {
	require.Error(t, run(context.Background(), config.DefaultConfig(), discardLogger()))
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CacheName = ""
	cfg.ScenarioPath = scenarioPath("expiry.yaml")
	require.Error(t, run(context.Background(), cfg, discardLogger()))
}

func scenarioPath(name string) string {
	return filepath.Join("..", "..", "internal", "scenario", "testdata", name)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
