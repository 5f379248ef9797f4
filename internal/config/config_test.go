package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "cohort_creator.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "datalad", cfg.Datalad.Binary)
	assert.Equal(t, "", cfg.Catalog.Listing)
	assert.Equal(t, "MNI152NLin2009cAsym", cfg.Cohort.Space)
	assert.Equal(t, "", cfg.Cohort.Task)
	assert.Equal(t, 6, cfg.Cohort.Jobs)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/cohorts
datalad:
  binary: /opt/datalad/bin/datalad
cohort:
  space: T1w
  jobs: 12
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/cohorts", cfg.Store.DatabaseURL)
	assert.Equal(t, "/opt/datalad/bin/datalad", cfg.Datalad.Binary)
	assert.Equal(t, "T1w", cfg.Cohort.Space)
	assert.Equal(t, 12, cfg.Cohort.Jobs)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("COHORT_COHORT_JOBS", "3")
	t.Setenv("COHORT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Cohort.Jobs)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "not-a-level"})
	require.Error(t, err)
}
