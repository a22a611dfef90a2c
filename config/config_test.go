package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pflow-xyz/hybridnet/scheduler"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAppliesDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadRunConfig("")
	require.NoError(t, err)
	require.Equal(t, scheduler.DefaultRunConfig().TimeStep, cfg.TimeStep)
	require.Equal(t, scheduler.WeightedRandom, cfg.ConflictPolicy)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	path := writeConfig(t, `
time_step: 0.25
max_steps: 500
max_time: 120
conflict_policy: priority
seed: 42
quiescence_steps: 5
tick_budget_ms: 100
`)
	cfg, err := LoadRunConfig(path)
	require.NoError(t, err)
	require.Equal(t, 0.25, cfg.TimeStep)
	require.Equal(t, 500, cfg.MaxSteps)
	require.Equal(t, 120.0, cfg.MaxTime)
	require.Equal(t, scheduler.Priority, cfg.ConflictPolicy)
	require.Equal(t, int64(42), cfg.Seed)
	require.Equal(t, 5, cfg.QuiescenceSteps)
	require.Equal(t, 100_000_000, int(cfg.TickBudget))
}

func TestLoadRejectsUnknownConflictPolicy(t *testing.T) {
	path := writeConfig(t, "conflict_policy: round_robin\n")
	_, err := LoadRunConfig(path)
	require.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := LoadRunConfig("/nonexistent/run.yaml")
	require.Error(t, err)
}

func TestLoadEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("PNSIM_TIME_STEP", "0.5")
	cfg, err := LoadRunConfig("")
	require.NoError(t, err)
	require.Equal(t, 0.5, cfg.TimeStep)
}
