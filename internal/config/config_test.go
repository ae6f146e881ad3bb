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
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "warehouse.db", cfg.DBPath)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "", cfg.RedisAddr)
	assert.Equal(t, 10, cfg.PoolSize)
	assert.Equal(t, 8, cfg.MaxConcurrentOrders)
	assert.Equal(t, 30*time.Second, cfg.AcquireTimeout())
	assert.Equal(t, 30*time.Second, cfg.BusyTimeout())
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout())
	assert.True(t, cfg.SeedOnStartup)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
db_path: /data/orders.db
http_addr: ":9090"
redis_addr: "localhost:6379"
pool_size: 4
max_concurrent_orders: 2
seed_on_startup: false
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/orders.db", cfg.DBPath)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 4, cfg.PoolSize)
	assert.Equal(t, 2, cfg.MaxConcurrentOrders)
	assert.False(t, cfg.SeedOnStartup)

	// Untouched keys keep their defaults.
	assert.Equal(t, 30000, cfg.BusyTimeoutMillis)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pool_size: 4\n"), 0o644))

	t.Setenv("POOL_SIZE", "6")
	t.Setenv("DB_PATH", "/tmp/env.db")
	t.Setenv("ACQUIRE_TIMEOUT_SECS", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.PoolSize)
	assert.Equal(t, "/tmp/env.db", cfg.DBPath)
	assert.Equal(t, 7*time.Second, cfg.AcquireTimeout())
}

func TestLoad_MalformedEnvIgnored(t *testing.T) {
	t.Setenv("POOL_SIZE", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.PoolSize)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pool_size: [broken\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"zero pool", map[string]string{"POOL_SIZE": "0"}},
		{"negative concurrency", map[string]string{"MAX_CONCURRENT_ORDERS": "-1"}},
		{"zero acquire timeout", map[string]string{"ACQUIRE_TIMEOUT_SECS": "0"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
