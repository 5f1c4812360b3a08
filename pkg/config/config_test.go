package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 4848, cfg.Server.Port)
	assert.Equal(t, "yuna_session", cfg.Security.CookieName)
	assert.Equal(t, 24*time.Hour, cfg.Security.SessionExpiry)
	assert.Equal(t, "db", cfg.Storage.DataDir)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestConfig_Validate_RequiresSecretKey(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate())

	cfg.Security.SecretKey = "short"
	assert.Error(t, cfg.Validate())

	cfg.Security.SecretKey = "a-sufficiently-long-secret-key"
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_BcryptCostBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Security.SecretKey = "a-sufficiently-long-secret-key"

	cfg.Security.BcryptCost = 3
	assert.Error(t, cfg.Validate())

	cfg.Security.BcryptCost = 12
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
security:
  secret_key: a-sufficiently-long-secret-key
storage:
  data_dir: /var/lib/yuna
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/var/lib/yuna", cfg.Storage.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)

	// Unset fields keep their defaults
	assert.Equal(t, "yuna_session", cfg.Security.CookieName)
	assert.Equal(t, 10, cfg.Security.BcryptCost)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("YUNA_SECURITY_SECRET_KEY", "env-provided-secret-key-123456")
	t.Setenv("YUNA_SERVER_PORT", "9191")
	t.Setenv("YUNA_SERVICES_CHAT_MODEL", "yuna-ai-v4")
	t.Setenv("YUNA_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-provided-secret-key-123456", cfg.Security.SecretKey)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "yuna-ai-v4", cfg.Services.Chat.Model)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_EnvOverridesFileValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
security:
  secret_key: a-sufficiently-long-secret-key
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("YUNA_SERVER_PORT", "9292")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9292, cfg.Server.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
security:
  secret_key: a-sufficiently-long-secret-key
log_level: noisy
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestConfig_Paths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.DataDir = "/data"

	assert.Equal(t, filepath.Join("/data", "admin", "users.json"), cfg.UsersFilePath())
	assert.Equal(t, filepath.Join("/data", "history"), cfg.HistoryRoot())
	assert.Equal(t, filepath.Join("/data", "admin", "sessions.db"), cfg.SessionsDBPath())
	assert.Equal(t, "0.0.0.0:4848", cfg.Addr())
}

func TestConfig_SaveYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "config.yaml")

	cfg := DefaultConfig()
	cfg.Security.SecretKey = "a-sufficiently-long-secret-key"
	cfg.Server.Port = 7070
	require.NoError(t, cfg.SaveYAML(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, loaded.Server.Port)
	assert.Equal(t, cfg.Security.SecretKey, loaded.Security.SecretKey)
}
