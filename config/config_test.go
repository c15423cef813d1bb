package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Endy02/microservice/config"
)

func TestLoadRequiresSigningKey(t *testing.T) {
	t.Setenv("MICROSERVICE_AUTH_SIGNING_KEY", "")

	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signing_key")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MICROSERVICE_AUTH_SIGNING_KEY", "env-signing-key")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-signing-key", cfg.Auth.SigningKey)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Auth.AccessTokenExpiration)
	assert.Equal(t, 72, cfg.Auth.RefreshTokenExpiration)
	assert.Equal(t, "Bearer", cfg.Auth.AuthScheme)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.True(t, cfg.Mail.LogOnly)
	assert.Equal(t, "no-reply@localhost", cfg.Mail.From)
	assert.Equal(t, "localhost:25", cfg.Mail.Addr())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	body := []byte(`
server:
  port: 9090
auth:
  signing_key: file-signing-key
  access_token_expiration: 5
  domain: api.example.com
logging:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "file-signing-key", cfg.Auth.SigningKey)
	assert.Equal(t, 5, cfg.Auth.AccessTokenExpiration)
	assert.Equal(t, "api.example.com", cfg.Auth.Domain)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Values the file leaves out fall back to defaults.
	assert.Equal(t, 72, cfg.Auth.RefreshTokenExpiration)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("MICROSERVICE_AUTH_SIGNING_KEY", "env-signing-key")
	t.Setenv("MICROSERVICE_LOGGING_LEVEL", "chatty")

	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestDatabaseDSN(t *testing.T) {
	mem := config.DatabaseConfig{Path: ":memory:"}
	assert.Equal(t, "file::memory:?cache=shared", mem.DSN())

	file := config.DatabaseConfig{Path: "./data/app.db", JournalMode: "WAL", BusyTimeout: 5000}
	assert.Contains(t, file.DSN(), "journal_mode(WAL)")
	assert.Contains(t, file.DSN(), "busy_timeout(5000)")
}
