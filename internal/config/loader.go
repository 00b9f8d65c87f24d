package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader resolves the effective configuration with precedence
// defaults < file < environment.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a configuration loader. An empty configPath skips the
// file layer.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Load produces a validated configuration.
func (l *Loader) Load() (Config, error) {
	cfg := Default()
	cfg.Version = l.version

	if l.configPath != "" {
		if err := mergeFile(&cfg, l.configPath); err != nil {
			return Config{}, err
		}
	}
	mergeEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: file %s does not exist: %w", path, err)
		}
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	// Unmarshal over the defaults; absent keys keep their default value.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

func mergeEnv(cfg *Config) {
	cfg.Listen = envString("CLOUDRT_LISTEN", cfg.Listen)
	cfg.DataDir = envString("CLOUDRT_DATA", cfg.DataDir)
	cfg.LogLevel = envString("CLOUDRT_LOG_LEVEL", cfg.LogLevel)
	cfg.ShutdownTimeout = envDuration("CLOUDRT_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	cfg.RateLimit.Enabled = envBool("CLOUDRT_RATELIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.RPS = envInt("CLOUDRT_RATELIMIT_RPS", cfg.RateLimit.RPS)
	cfg.RateLimit.Burst = envInt("CLOUDRT_RATELIMIT_BURST", cfg.RateLimit.Burst)

	cfg.Telemetry.Enabled = envBool("CLOUDRT_OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.ExporterType = envString("CLOUDRT_OTEL_EXPORTER", cfg.Telemetry.ExporterType)
	cfg.Telemetry.Endpoint = envString("CLOUDRT_OTEL_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.Environment = envString("CLOUDRT_OTEL_ENVIRONMENT", cfg.Telemetry.Environment)

	cfg.SQL.Enabled = envBool("CLOUDRT_SQL_ENABLED", cfg.SQL.Enabled)
	cfg.SQL.Path = envString("CLOUDRT_SQL_PATH", cfg.SQL.Path)
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
