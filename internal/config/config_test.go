package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "./data", c.DataDir)
	assert.Equal(t, ":7080", c.HTTPAddr)
	assert.Equal(t, "", c.AdminToken)
	assert.Equal(t, "dev-secret", c.JWTSecret)
	assert.Equal(t, 24, c.SessionTTLHours)
	assert.Equal(t, 365, c.AuditRetentionDays)
	assert.False(t, c.EnableTLS)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("WEALTHOS_DATA_DIR", "/var/lib/wealthos")
	t.Setenv("WEALTHOS_SESSION_TTL_HOURS", "8")
	t.Setenv("WEALTHOS_ENABLE_TLS", "true")
	t.Setenv("WEALTHOS_ADMIN_TOKEN", "s3cret")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/wealthos", c.DataDir)
	assert.Equal(t, 8, c.SessionTTLHours)
	assert.True(t, c.EnableTLS)
	assert.Equal(t, "s3cret", c.AdminToken)
	// Untouched settings keep their defaults.
	assert.Equal(t, ":7080", c.HTTPAddr)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wealthos.yaml")
	content := "httpAddr: \":9999\"\nsessionTtlHours: 4\nlogLevel: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("WEALTHOS_CONFIG", path)
	t.Setenv("WEALTHOS_SESSION_TTL_HOURS", "2")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", c.HTTPAddr)
	assert.Equal(t, "debug", c.LogLevel)
	// Env wins over the file.
	assert.Equal(t, 2, c.SessionTTLHours)
}

func TestLoad_BadValues(t *testing.T) {
	t.Setenv("WEALTHOS_SESSION_TTL_HOURS", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("WEALTHOS_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load()
	assert.Error(t, err)
}
