package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "posture-guard.db", cfg.Storage.DbPath)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, ScoringConfig{
		Trees:         100,
		MaxSamples:    256,
		Contamination: 0.2,
		Seed:          42,
		ClampScore:    true,
	}, cfg.Scoring)
	assert.Empty(t, cfg.Inventory.SeedFile)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "posture.yaml")
	err := os.WriteFile(path, []byte(`
server:
  port: 9090
storage:
  db_path: /tmp/inventory.db
scoring:
  contamination: 0.1
  interval: 5m
inventory:
  seed_file: cloud_resources.json
`), 0o600)
	require.NoError(t, err)

	t.Setenv("POSTURE_SERVER_HOST", "127.0.0.1")
	t.Setenv("POSTURE_SCORING_CLAMP_SCORE", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr())
	assert.Equal(t, "/tmp/inventory.db", cfg.Storage.DbPath)
	assert.Equal(t, 0.1, cfg.Scoring.Contamination)
	assert.Equal(t, 5*time.Minute, cfg.Scoring.Interval)
	assert.False(t, cfg.Scoring.ClampScore)
	assert.Equal(t, 100, cfg.Scoring.Trees)
	assert.Equal(t, "cloud_resources.json", cfg.Inventory.SeedFile)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("contamination out of range", func(t *testing.T) {
		t.Setenv("POSTURE_SCORING_CONTAMINATION", "0.75")
		_, err := Load("")
		assert.ErrorContains(t, err, "invalid config")
	})
}
