package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
strategy:
  name: breakout
  direction: long
  params:
    - name: entry_window
      min: 10
      max: 30
      step: 10
    - name: exit_window
      values: [5, 8]
costs:
  model: percent
  rate: 0.001
swarm:
  members_count: 3
  warmup_bars: 0
  rebalance:
    mode: cron
    cron: "0 0 * * 1"
data:
  file: data/btc.csv
  format: close
  start: "2023-01-01"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestManager_LoadMergesDefaults checks file values override defaults and unset keys keep them
func TestManager_LoadMergesDefaults(t *testing.T) {
	cfg, err := NewManager().Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "breakout", cfg.Strategy.Name)
	assert.Equal(t, 3, cfg.Swarm.MembersCount)
	// An explicit zero is kept
	assert.Equal(t, 0, cfg.Swarm.WarmupBars)
	// Unset keys keep their defaults
	assert.Equal(t, "trailing_return", cfg.Swarm.Ranking.Name)
	assert.Equal(t, DefaultRankingWindow, cfg.Swarm.Ranking.Window)
	assert.Equal(t, DefaultOutputDir, cfg.Output.Dir)
	assert.True(t, cfg.Output.Console)

	require.NoError(t, NewManager().Validate(cfg))
}

func TestManager_EnvOverrides(t *testing.T) {
	t.Setenv(EnvDataFile, "env.csv")
	t.Setenv(EnvMembersCount, "7")
	t.Setenv(EnvWorkers, "2")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvDBPath, "runs.db")

	cfg, err := NewManager().Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "env.csv", cfg.Data.File)
	assert.Equal(t, 7, cfg.Swarm.MembersCount)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "runs.db", cfg.Output.DB)
}

func TestManager_EnvOverrideInvalidNumber(t *testing.T) {
	t.Setenv(EnvMembersCount, "many")
	_, err := NewManager().Load("")
	assert.Error(t, err)
}

func TestManager_LoadErrors(t *testing.T) {
	_, err := NewManager().Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = NewManager().Load(writeConfig(t, "swarm: [unterminated"))
	assert.Error(t, err)
}

func TestManager_SaveRoundTrip(t *testing.T) {
	m := NewManager()
	cfg, err := m.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "saved.yaml")
	require.NoError(t, m.Save(cfg, path))

	again, err := m.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadEnv(t *testing.T) {
	assert.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "absent.env")))

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SWARM_TEST_ONLY_KEY=loaded\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("SWARM_TEST_ONLY_KEY") })

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "loaded", os.Getenv("SWARM_TEST_ONLY_KEY"))
}

// TestRunConfig_Grid checks the direction dimension leads the configured params
func TestRunConfig_Grid(t *testing.T) {
	cfg, err := NewManager().Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	grid, err := cfg.Grid()
	require.NoError(t, err)
	assert.Equal(t, []string{"direction", "entry_window", "exit_window"}, grid.Names())

	combos, err := grid.Combinations()
	require.NoError(t, err)
	require.Len(t, combos, 6)
	assert.Equal(t, "(1, 10, 5)", combos[0].Name())
	assert.Equal(t, "(1, 30, 8)", combos[5].Name())

	empty := NewDefaultRunConfig()
	g, err := empty.Grid()
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestRunValidator_CollectsProblems(t *testing.T) {
	cfg := NewDefaultRunConfig()
	cfg.Strategy.Name = "martingale"
	cfg.Swarm.MembersCount = 0
	cfg.Swarm.Rebalance = RebalanceConfig{Mode: "cron", Cron: "not a schedule"}
	cfg.Costs = CostsConfig{Model: "percent", Rate: 2}
	cfg.Data.Start = "2024-02-01"
	cfg.Data.End = "2024-01-01"

	err := NewRunValidator().Validate(cfg)
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "strategy.name")
	assert.Contains(t, msg, "members_count")
	assert.Contains(t, msg, "rebalance.cron")
	assert.Contains(t, msg, "costs.rate")
	assert.Contains(t, msg, "data.file is required")
	assert.Contains(t, msg, "data.end is before data.start")
}

func TestRunValidator_ParamSpecs(t *testing.T) {
	cfg := NewDefaultRunConfig()
	cfg.Data.File = "prices.csv"
	cfg.Strategy.Params = []ParamSpec{
		{Name: "direction", Values: []float64{1}},
		{Name: "fast", Min: 10, Max: 5, Step: 0},
	}

	err := NewRunValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "direction is set by strategy.direction")
	assert.Contains(t, err.Error(), "step must be positive")
	assert.Contains(t, err.Error(), "max (5) is below min (10)")
}
