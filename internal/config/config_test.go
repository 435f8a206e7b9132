package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	content := "JWT_SECRET=file-secret\nPORT=9090\nREMINDER_INTERVAL=30s\nDB_DRIVER=mysql\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "file-secret", cfg.JWTSecret)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, 30*time.Second, cfg.ReminderInterval)
	assert.Equal(t, "http://localhost:3000", cfg.FrontendURL)
}

func TestLoadEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("REDIS_ADDR", "localhost:6380")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.JWTSecret)
	assert.Equal(t, 5, cfg.RateLimitBurst)
	assert.Equal(t, "localhost:6380", cfg.RedisAddr)
	assert.Equal(t, time.Minute, cfg.ReminderInterval)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load(t.TempDir())
	require.Error(t, err)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DB_DRIVER", "oracle")
	_, err := Load(t.TempDir())
	require.Error(t, err)
}
