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
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "tools", cfg.ToolsDir)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.Debug)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FLOWGRID_HOST", "0.0.0.0")
	t.Setenv("FLOWGRID_PORT", "9000")
	t.Setenv("FLOWGRID_REQUEST_TIMEOUT", "45s")
	t.Setenv("FLOWGRID_DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.Debug)
}

func TestLoad_ExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
host: 10.0.0.1
port: 8443
log_format: json
tool_configs:
  weather:
    auth_token: secret
  orders:
    auth_token: tok
    auth_username: bob
`), 0600))

	cfg, err := Load(WithConfigFile(path))
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", cfg.Host)
	assert.Equal(t, 8443, cfg.Port)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "secret", cfg.ToolConfigs["weather"]["auth_token"])
	assert.Equal(t, "bob", cfg.ToolConfigs["orders"]["auth_username"])
	// untouched keys keep their defaults
	assert.Equal(t, "data", cfg.DataDir)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := Load(WithConfigFile(filepath.Join(t.TempDir(), "absent.yaml")))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 8443\n"), 0600))
	t.Setenv("FLOWGRID_PORT", "9999")

	cfg, err := Load(WithConfigFile(path))
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Port)
}

func TestLoad_NonPositiveTimeoutFallsBack(t *testing.T) {
	t.Setenv("FLOWGRID_REQUEST_TIMEOUT", "0s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}
