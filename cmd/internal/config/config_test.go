package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(values map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := values[name]

		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load("", envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, BackendRedis, cfg.Queue.Backend)
	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Equal(t, "3306", cfg.DB.Port)
	assert.Equal(t, 10*time.Second, cfg.ERP.Timeout)
	assert.Equal(t, "@every 1m", cfg.Relay.ReclaimSchedule)
	assert.Equal(t, "@hourly", cfg.Audit.Schedule)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, "stockrelay.yaml", `
port: "8080"
redis:
  url: redis://file:6379/0
relay:
  max_retry: 3
  read_block: 2s
erp:
  webhook_url: http://erp.local/hook
`)

	cfg, err := load(path, envOf(map[string]string{
		"REDIS_URL":         "redis://env:6379/1",
		"WORKERS":           "4",
		"DEAD_ON_REJECTION": "true",
		"AUDIT_RETENTION":   "720h",
		"PORT":              "  ",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "redis://env:6379/1", cfg.Redis.URL)
	assert.Equal(t, 3, cfg.Relay.MaxRetry)
	assert.Equal(t, 2*time.Second, cfg.Relay.ReadBlock)
	assert.Equal(t, 4, cfg.Relay.Workers)
	assert.True(t, cfg.Relay.DeadOnRejection)
	assert.Equal(t, 720*time.Hour, cfg.Audit.Retention)
	assert.Equal(t, "http://erp.local/hook", cfg.ERP.WebhookURL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := load("", envOf(map[string]string{"MAX_RETRY": "many"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_RETRY")

	_, err = load("", envOf(map[string]string{"ERP_TIMEOUT": "10"}))
	require.Error(t, err)

	path := writeFile(t, "bad.yaml", "unknown_key: 1\n")
	_, err = load(path, envOf(nil))
	require.Error(t, err)

	_, err = load(filepath.Join(t.TempDir(), "missing.yaml"), envOf(nil))
	require.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	found, err := LoadEnvFile(filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	assert.False(t, found)

	path := writeFile(t, ".env", "STOCKRELAY_TEST_ONLY=loaded\n")
	t.Cleanup(func() { _ = os.Unsetenv("STOCKRELAY_TEST_ONLY") })

	found, err = LoadEnvFile(path)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "loaded", os.Getenv("STOCKRELAY_TEST_ONLY"))
}

func TestDataSourceName(t *testing.T) {
	cfg := Config{DB: DBConfig{
		Driver:   "mysql",
		Host:     "db",
		Port:     "3306",
		User:     "relay",
		Password: "secret",
		Database: "stock",
	}}
	assert.Equal(t, "relay:secret@tcp(db:3306)/stock?parseTime=true", cfg.DataSourceName())

	cfg.DB.Driver = "postgres"
	cfg.DB.Port = "5432"
	assert.Equal(t, "postgres://relay:secret@db:5432/stock?sslmode=disable", cfg.DataSourceName())

	cfg.DB.DSN = "explicit"
	assert.Equal(t, "explicit", cfg.DataSourceName())
}

func TestValidate(t *testing.T) {
	cfg, err := load("", envOf(nil))
	require.NoError(t, err)

	assert.Error(t, cfg.ValidateWorker())
	assert.Error(t, cfg.ValidateAPI())
	assert.Error(t, cfg.ValidateCleanup())

	cfg.Redis.URL = "redis://localhost:6379/0"
	cfg.DB.Host = "db"
	cfg.Audit.Retention = time.Hour
	assert.NoError(t, cfg.ValidateWorker())
	assert.NoError(t, cfg.ValidateAPI())
	assert.NoError(t, cfg.ValidateCleanup())

	cfg.Queue.Backend = BackendNATS
	assert.Error(t, cfg.ValidateQueue())
	cfg.Queue.NATSURL = "nats://localhost:4222"
	assert.NoError(t, cfg.ValidateQueue())

	cfg.Queue.Backend = "kafka"
	assert.Error(t, cfg.ValidateQueue())

	cfg.Queue.Backend = BackendRedis
	cfg.Relay.MaxRetry = -1
	assert.Error(t, cfg.ValidateWorker())
}
