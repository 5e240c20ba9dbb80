package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
  mode: debug
  read_timeout: 15s
storage:
  path: /tmp/scratch
upload:
  max_size_mb: 10
ingest:
  page_prefix: sheet
  page_policy: rollback
cache:
  type: redis
  address: redis:6379
  password: ${TEST_INGEST_REDIS_PASSWORD}
  ttl: 60
log:
  level: debug
  file: /var/log/ingest.log
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("TEST_INGEST_REDIS_PASSWORD", "s3cret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 120*time.Second, cfg.Server.WriteTimeout) // 默认值
	assert.Equal(t, "/tmp/scratch", cfg.Storage.Path)
	assert.Equal(t, int64(10), cfg.Upload.MaxSizeMB)
	assert.Equal(t, int64(8), cfg.Upload.MemoryMB)
	assert.Equal(t, "sheet", cfg.Ingest.PagePrefix)
	assert.Equal(t, "rollback", cfg.Ingest.PagePolicy)
	assert.Equal(t, "redis", cfg.Cache.Type)
	assert.Equal(t, "s3cret", cfg.Cache.Password)
	assert.Equal(t, 60, cfg.Cache.TTL)
	assert.Equal(t, "/var/log/ingest.log", cfg.Log.File)
}

func TestLoad_MissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "./uploads", cfg.Storage.Path)
	assert.Equal(t, "leave", cfg.Ingest.PagePolicy)
	assert.Equal(t, "memory", cfg.Cache.Type)

	_, err = os.Stat(path)
	assert.NoError(t, err, "default config should be written")
}

func TestLoad_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7000\n"), 0644))
	t.Setenv("SERVER_PORT", "7100")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7100, cfg.Server.Port)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ingest:\n  page_policy: shred\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "page", cfg.Ingest.PagePrefix)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Log.Compress)
}
