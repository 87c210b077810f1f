package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "~/.config/tagpivot", cfg.Storage.Path)
	assert.Equal(t, "tagpivot.db", cfg.Storage.SQLiteFile)
	assert.Equal(t, "wal", cfg.Storage.SQLiteJournalMode)
	assert.Equal(t, 60, cfg.Retention.Days)
	assert.Equal(t, 20000, cfg.Retention.MaxEvents)
	assert.Equal(t, 24, cfg.Retention.PruneIntervalHours)
	assert.Equal(t, int64(30000), cfg.Capture.DedupeWindowMs)
	assert.Equal(t, []int{8, 13, 21, 30, 60}, cfg.Analysis.WindowCandidates)
	assert.Equal(t, 20, cfg.Analysis.WindowMinTotal)
	assert.Equal(t, 15, cfg.Analysis.WindowMinUnique)
	assert.Equal(t, 60, cfg.Analysis.BridgeDays)
	assert.Equal(t, 10, cfg.Analysis.BridgeTopK)
	assert.Equal(t, 2, cfg.Analysis.BridgeMinCo)
	assert.Equal(t, 6, cfg.Analysis.BridgeTopM)
	assert.Equal(t, 8, cfg.Analysis.PoleSize)
	assert.Equal(t, 80, cfg.Analysis.PolarizationMinEvts)
	assert.Equal(t, 2500, cfg.Analysis.DownsampleCap)
	assert.Equal(t, "127.0.0.1", cfg.Daemon.Host)
	assert.Equal(t, 8742, cfg.Daemon.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadValidYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yamlContent := `
retention:
  days: 90
  max_events: 5000
analysis:
  bridge_top_k: 5
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(yamlContent), 0644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, 90, cfg.Retention.Days)
	assert.Equal(t, 5000, cfg.Retention.MaxEvents)
	assert.Equal(t, 5, cfg.Analysis.BridgeTopK)

	// Untouched sections keep defaults.
	assert.Equal(t, int64(30000), cfg.Capture.DedupeWindowMs)
	assert.Equal(t, 8, cfg.Analysis.PoleSize)
}

func TestLoadInvalidYAMLFails(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("retention: [not: a: map"), 0644))

	_, err := Load(cfgPath)
	assert.Error(t, err)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestLoadOrCreateAtWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "nested", "config.yaml")

	cfg, err := LoadOrCreateAt(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Retention.Days)

	// File now exists and round-trips.
	_, err = os.Stat(cfgPath)
	require.NoError(t, err)

	again, err := LoadOrCreateAt(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Retention.Days, again.Retention.Days)
}

func TestDatabasePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Path = "/tmp/tagpivot-test"

	path, err := cfg.DatabasePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/tagpivot-test/tagpivot.db", path)
}
