package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 8, cfg.Worker.Count)
	assert.Equal(t, 30*time.Second, cfg.Worker.InvokeTimeout)
	assert.Equal(t, 10*time.Second, cfg.Transport.Timeout())
	assert.Equal(t, 15*time.Second, cfg.Transport.Breaker.OpenFor())
	assert.Equal(t, "https://profiles.segment.com", cfg.Endpoints.Profile["production/us-west-1"])
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  addr: \":9090\"\nworker:\n  count: 2\n"), 0o600))
	t.Setenv("MSGD_WORKER_COUNT", "4")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 4, cfg.Worker.Count)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}
