package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/budget-dashboard/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := config.FromValues(nil)

	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, 30*time.Second, c.GetRequestTimeout())
	require.Equal(t, 120*time.Second, c.GetRefreshCheckInterval())
	require.Equal(t, 300*time.Second, c.GetRefreshThreshold())
	require.Equal(t, config.BackendFile, c.GetSessionBackend())
	require.Equal(t, "dashboard.session", c.GetStorageKey())
	require.Equal(t, ":8080", c.GetPort())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("DASHBOARD_API_BASE_URL", "https://api.example.com/")
	t.Setenv("DASHBOARD_API_REQUEST_TIMEOUT", "5s")
	t.Setenv("DASHBOARD_SESSION_BACKEND", "redis")
	t.Setenv("DASHBOARD_ENV", "prod")

	c := config.New()

	require.Equal(t, "https://api.example.com", c.GetBaseURL())
	require.Equal(t, 5*time.Second, c.GetRequestTimeout())
	require.Equal(t, config.BackendRedis, c.GetSessionBackend())
	require.Equal(t, "PROD", c.GetEnv())
}

func TestUnknownBackendFallsBackToFile(t *testing.T) {
	c := config.FromValues(map[string]any{"session.backend": "floppy"})
	require.Equal(t, config.BackendFile, c.GetSessionBackend())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	err := os.WriteFile(path, []byte("monitor:\n  interval: 10s\n  threshold: 1m\ndevapi:\n  port: \"9090\"\n"), 0o600)
	require.NoError(t, err)

	c, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, c.GetRefreshCheckInterval())
	require.Equal(t, time.Minute, c.GetRefreshThreshold())
	require.Equal(t, ":9090", c.GetPort())

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
