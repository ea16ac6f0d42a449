package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoFileOrEnv(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1000.0, cfg.Trading.MinVolumeUSD)
	assert.Equal(t, 0.05, cfg.Trading.MinEdge)
	assert.Equal(t, 10000.0, cfg.Trading.VirtualBankroll)
	assert.Equal(t, 3, cfg.Trading.LLMConcurrency)
	assert.Equal(t, 10, cfg.Learning.BatchSize)
	assert.Equal(t, 6, cfg.Orchestrator.SelfImprovementHour)
	assert.Equal(t, 7, cfg.Orchestrator.PromptTournamentHour)
	assert.Equal(t, "forecastbot.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 4.0, cfg.Learning.EntropyThresholdDefault)
	assert.True(t, cfg.IsPaperMode(), "paper mode must default to true")
}

func TestPaperModeCanBeExplicitlyDisabled(t *testing.T) {
	t.Setenv("PAPER_MODE", "false")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.False(t, cfg.IsPaperMode())
}

func TestPaperModeYAMLFalseIsNotOverriddenByDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trading:\n  paper_mode: false\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.IsPaperMode())
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
trading:
  min_volume_usd: 500
  virtual_bankroll: 2500
storage:
  dsn: ":memory:"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500.0, cfg.Trading.MinVolumeUSD)
	assert.Equal(t, 2500.0, cfg.Trading.VirtualBankroll)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
	// Untouched fields still pick up their defaults.
	assert.Equal(t, 0.05, cfg.Trading.MinEdge)
}

func TestLoadReturnsErrorForMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvOverridesWinOverYAMLAndDefaults(t *testing.T) {
	t.Setenv("MIN_VOLUME_USD", "250")
	t.Setenv("LLM_CONCURRENCY", "9")
	t.Setenv("PAPER_MODE", "true")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 250.0, cfg.Trading.MinVolumeUSD)
	assert.Equal(t, 9, cfg.Trading.LLMConcurrency)
	assert.True(t, cfg.IsPaperMode())
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestEnvOverridesIgnoreUnparseableValues(t *testing.T) {
	t.Setenv("MIN_VOLUME_USD", "not-a-number")
	t.Setenv("MAX_OPEN_POSITIONS", "also-not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1000.0, cfg.Trading.MinVolumeUSD)
	assert.Equal(t, 20, cfg.Trading.MaxOpenPositions)
}

func TestVirtualBankrollDecimal(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.VirtualBankrollDecimal().Equal(cfg.VirtualBankrollDecimal()))
	assert.Equal(t, "10000", cfg.VirtualBankrollDecimal().String())
}

func TestIntervalHelpersConvertConfiguredUnits(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 4*time.Hour, cfg.ScanInterval())
	assert.Equal(t, 30*time.Minute, cfg.PriceUpdateInterval())
	assert.Equal(t, 1*time.Hour, cfg.ResolutionCheckInterval())
	assert.Equal(t, 4*time.Hour, cfg.ForecastInterval())
}
