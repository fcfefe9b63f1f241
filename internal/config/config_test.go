package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.IsLocal())
	assert.Equal(t, "memory", cfg.Sessions.Backend)
	assert.Equal(t, "memory", cfg.Records.Backend)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servicedesk.yaml")
	yaml := `
servicenow:
  instance: dev123
  user: admin
  timeout: 5s
sessions:
  backend: redis
  ttl: 1h
priorities:
  critical: "1"
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	t.Setenv("SERVICEDESK_SERVICENOW_PASSWORD", "secret")
	t.Setenv("SERVICEDESK_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SERVICEDESK_REDIS_DB", "2")
	t.Setenv("SERVICEDESK_SESSIONS_KEY", "a2V5")
	t.Setenv("SERVICEDESK_RECORDS_DIR", "/var/lib/servicedesk")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.IsLocal())
	assert.Equal(t, "dev123", cfg.ServiceNow.Instance)
	assert.Equal(t, "admin", cfg.ServiceNow.User)
	assert.Equal(t, "secret", cfg.ServiceNow.Password)
	assert.Equal(t, 5*time.Second, cfg.ServiceNow.Timeout)
	assert.Equal(t, "redis", cfg.Sessions.Backend)
	assert.Equal(t, time.Hour, cfg.Sessions.TTL)
	assert.Equal(t, map[string]string{"critical": "1"}, cfg.Priorities)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, "a2V5", cfg.Sessions.EncryptionKey)
	assert.Equal(t, "/var/lib/servicedesk", cfg.Records.Dir)
	// Untouched defaults survive the file.
	assert.Equal(t, "memory", cfg.Records.Backend)
}

func TestLoad_LocalModeOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVICEDESK_SERVICENOW_INSTANCE", "dev123")
	t.Setenv("SERVICEDESK_LOCALMODE", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.IsLocal())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "explicit missing file is an error")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sessions: ["), 0o644))
	_, err = Load(path)
	assert.Error(t, err)

	t.Chdir(t.TempDir())
	t.Setenv("SERVICEDESK_LOCALMODE", "sometimes")
	_, err = Load("")
	assert.Error(t, err)
}
