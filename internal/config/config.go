// Package config provides runtime configuration for the fulfillment server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every externally tunable knob. Pool and processor
// capacities are configurable to support load testing.
type Config struct {
	DBPath    string `yaml:"db_path"`
	HTTPAddr  string `yaml:"http_addr"`
	RedisAddr string `yaml:"redis_addr"`

	PoolSize            int `yaml:"pool_size"`
	AcquireTimeoutSecs  int `yaml:"acquire_timeout_secs"`
	BusyTimeoutMillis   int `yaml:"busy_timeout_millis"`
	MaxConcurrentOrders int `yaml:"max_concurrent_orders"`
	ShutdownTimeoutSecs int `yaml:"shutdown_timeout_secs"`

	SeedOnStartup bool `yaml:"seed_on_startup"`
}

// Default returns the built-in configuration used when no file or
// environment overrides are present.
func Default() Config {
	return Config{
		DBPath:              "warehouse.db",
		HTTPAddr:            ":8080",
		PoolSize:            10,
		AcquireTimeoutSecs:  30,
		BusyTimeoutMillis:   30000,
		MaxConcurrentOrders: 8,
		ShutdownTimeoutSecs: 5,
		SeedOnStartup:       true,
	}
}

// Load reads an optional YAML file and applies environment overrides on
// top of the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.DBPath = getenv("DB_PATH", cfg.DBPath)
	cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.RedisAddr = getenv("REDIS_ADDR", cfg.RedisAddr)
	cfg.PoolSize = atoienv("POOL_SIZE", cfg.PoolSize)
	cfg.AcquireTimeoutSecs = atoienv("ACQUIRE_TIMEOUT_SECS", cfg.AcquireTimeoutSecs)
	cfg.BusyTimeoutMillis = atoienv("BUSY_TIMEOUT_MILLIS", cfg.BusyTimeoutMillis)
	cfg.MaxConcurrentOrders = atoienv("MAX_CONCURRENT_ORDERS", cfg.MaxConcurrentOrders)
	cfg.ShutdownTimeoutSecs = atoienv("SHUTDOWN_TIMEOUT_SECS", cfg.ShutdownTimeoutSecs)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.PoolSize < 1 {
		return fmt.Errorf("pool_size must be positive, got %d", c.PoolSize)
	}
	if c.MaxConcurrentOrders < 1 {
		return fmt.Errorf("max_concurrent_orders must be positive, got %d", c.MaxConcurrentOrders)
	}
	if c.AcquireTimeoutSecs < 1 {
		return fmt.Errorf("acquire_timeout_secs must be positive, got %d", c.AcquireTimeoutSecs)
	}
	return nil
}

func (c Config) AcquireTimeout() time.Duration {
	return time.Duration(c.AcquireTimeoutSecs) * time.Second
}

func (c Config) BusyTimeout() time.Duration {
	return time.Duration(c.BusyTimeoutMillis) * time.Millisecond
}

func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSecs) * time.Second
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
