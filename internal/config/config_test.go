package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalYAML = `
storage:
  dsn: postgres://localhost/taskcal
auth:
  jwt_secret: test-secret
google:
  client_id: cid
  client_secret: csecret
  redirect_url: http://localhost:8080/integrations/google/callback
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "http://localhost:3000", cfg.Server.FrontendURL)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, "taskcal", cfg.Cache.Redis.Prefix)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "Prod")
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("SERVER_CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("DATABASE_MAX_CONNS", "15")
	t.Setenv("GOOGLE_CLIENT_ID", "env-cid")

	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.App.Env)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, int32(15), cfg.Storage.MaxConns)
	assert.Equal(t, "env-cid", cfg.Google.ClientID)
}

func TestLoadWithoutFileUsesEnv(t *testing.T) {
	t.Setenv("DATABASE_DSN", "postgres://localhost/taskcal")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("GOOGLE_CLIENT_ID", "cid")
	t.Setenv("GOOGLE_CLIENT_SECRET", "cs")
	t.Setenv("GOOGLE_REDIRECT_URL", "http://localhost/cb")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/taskcal", cfg.Storage.DSN)
}

func TestValidateMissingRequired(t *testing.T) {
	_, err := Load(writeConfig(t, "server:\n  addr: ':8080'\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.dsn")
}

func TestValidateRedisNeedsAddr(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+"cache:\n  driver: redis\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.addr")
}

func TestConnMaxLifetimeDuration(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML+"storage_lifetime_ignored: x\n"))
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.ConnMaxLifetimeDuration())

	cfg.Storage.ConnMaxLifetime = "30m"
	assert.Equal(t, 30*time.Minute, cfg.ConnMaxLifetimeDuration())

	cfg.Storage.ConnMaxLifetime = "not-a-duration"
	assert.Equal(t, time.Duration(0), cfg.ConnMaxLifetimeDuration())
}
