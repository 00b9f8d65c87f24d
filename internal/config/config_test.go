package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":3500", cfg.Listen)
	require.Len(t, cfg.StateStores, 1)
	assert.Equal(t, DriverMemory, cfg.StateStores[0].Driver)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
listen: ":4500"
log_level: debug
state_stores:
  - name: orders
    driver: badger
    path: /tmp/orders
lock_stores:
  - name: default
    driver: memory
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewLoader(path, "test").Load()
	require.NoError(t, err)
	assert.Equal(t, ":4500", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	require.Len(t, cfg.StateStores, 1)
	assert.Equal(t, "orders", cfg.StateStores[0].Name)
	assert.Equal(t, DriverBadger, cfg.StateStores[0].Driver)
	// untouched sections keep defaults
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":4500\"\n"), 0o600))
	t.Setenv("CLOUDRT_LISTEN", ":9000")
	t.Setenv("CLOUDRT_RATELIMIT_RPS", "5")

	cfg, err := NewLoader(path, "test").Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, 5, cfg.RateLimit.RPS)
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := Default()
	cfg.StateStores = append(cfg.StateStores, StateStoreConfig{Name: "bad", Driver: "etcd"})
	assert.ErrorContains(t, cfg.Validate(), "unknown driver")
}

func TestValidateRejectsDuplicateStoreNames(t *testing.T) {
	cfg := Default()
	cfg.StateStores = append(cfg.StateStores, StateStoreConfig{Name: "default", Driver: DriverMemory})
	assert.ErrorContains(t, cfg.Validate(), "duplicate")
}

func TestValidateRejectsRedisWithoutAddr(t *testing.T) {
	cfg := Default()
	cfg.LockStores = []LockStoreConfig{{Name: "locks", Driver: DriverRedis}}
	assert.ErrorContains(t, cfg.Validate(), "redis.addr")
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := NewLoader("/nonexistent/config.yaml", "test").Load()
	require.Error(t, err)
}
