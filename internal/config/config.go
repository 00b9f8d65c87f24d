// Package config loads and validates the cloudrtd daemon configuration with
// precedence: defaults < YAML file < environment.
package config

import (
	"fmt"
	"time"
)

// Driver names accepted for component stores.
const (
	DriverMemory = "memory"
	DriverBadger = "badger"
	DriverRedis  = "redis"
	DriverEnv    = "env"
	DriverFile   = "file"
)

// RedisConfig holds connection settings for redis-backed components.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// StateStoreConfig declares one named state store.
type StateStoreConfig struct {
	Name   string      `yaml:"name"`
	Driver string      `yaml:"driver"`
	Path   string      `yaml:"path,omitempty"`  // badger only
	Redis  RedisConfig `yaml:"redis,omitempty"` // redis only
}

// PubSubConfig declares one named pub/sub broker.
type PubSubConfig struct {
	Name       string `yaml:"name"`
	BufferSize int    `yaml:"buffer_size"`
}

// ConfigStoreConfig declares one file-backed configuration store.
type ConfigStoreConfig struct {
	Name  string `yaml:"name"`
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// SecretStoreConfig declares one secret store.
type SecretStoreConfig struct {
	Name   string `yaml:"name"`
	Driver string `yaml:"driver"`           // env or file
	Path   string `yaml:"path,omitempty"`   // file only
	Prefix string `yaml:"prefix,omitempty"` // env only
}

// LockStoreConfig declares one lock store.
type LockStoreConfig struct {
	Name   string      `yaml:"name"`
	Driver string      `yaml:"driver"` // memory or redis
	Redis  RedisConfig `yaml:"redis,omitempty"`
}

// FileStoreConfig declares one filesystem file/object store.
type FileStoreConfig struct {
	Name string `yaml:"name"`
	Root string `yaml:"root"`
}

// AppConfig registers an application for service invocation.
type AppConfig struct {
	ID      string `yaml:"id"`
	BaseURL string `yaml:"base_url"`
}

// BindingConfig declares one output binding.
type BindingConfig struct {
	Name      string            `yaml:"name"`
	Type      string            `yaml:"type"` // http
	Direction string            `yaml:"direction,omitempty"`
	URL       string            `yaml:"url,omitempty"`
	Metadata  map[string]string `yaml:"metadata,omitempty"`
}

// SQLConfig declares the native SQL service.
type SQLConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// RateLimitConfig controls the HTTP ingress limiter.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"`
	RPS     int  `yaml:"rps"`
	Burst   int  `yaml:"burst"`
}

// TelemetryConfig controls OTLP tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ExporterType string  `yaml:"exporter_type"` // grpc, http or noop
	Endpoint     string  `yaml:"endpoint"`
	Environment  string  `yaml:"environment"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// SaaSConfig controls the dev-mode email/SMS providers.
type SaaSConfig struct {
	EmailEnabled bool   `yaml:"email_enabled"`
	SMSEnabled   bool   `yaml:"sms_enabled"`
	OutboxStore  string `yaml:"outbox_store"` // state store the outbox persists to
	TemplateDir  string `yaml:"template_dir,omitempty"`
}

// Config is the complete daemon configuration.
type Config struct {
	Listen          string        `yaml:"listen"`
	DataDir         string        `yaml:"data_dir"`
	LogLevel        string        `yaml:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	StateStores  []StateStoreConfig  `yaml:"state_stores"`
	PubSubs      []PubSubConfig      `yaml:"pubsubs"`
	ConfigStores []ConfigStoreConfig `yaml:"config_stores"`
	SecretStores []SecretStoreConfig `yaml:"secret_stores"`
	LockStores   []LockStoreConfig   `yaml:"lock_stores"`
	FileStores   []FileStoreConfig   `yaml:"file_stores"`
	SQL          SQLConfig           `yaml:"sql"`
	Apps         []AppConfig         `yaml:"apps"`
	Bindings     []BindingConfig     `yaml:"bindings"`
	SaaS         SaaSConfig          `yaml:"saas"`

	Version string `yaml:"-"`
}

// Default returns the development-mode configuration: one in-memory
// component of each kind so a freshly started daemon is usable without a
// config file.
func Default() Config {
	return Config{
		Listen:          ":3500",
		DataDir:         "./data",
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
		RateLimit:       RateLimitConfig{Enabled: true, RPS: 100, Burst: 200},
		Telemetry:       TelemetryConfig{ExporterType: "noop", SamplingRate: 1.0},
		StateStores:     []StateStoreConfig{{Name: "default", Driver: DriverMemory}},
		PubSubs:         []PubSubConfig{{Name: "default", BufferSize: 64}},
		SecretStores:    []SecretStoreConfig{{Name: "env", Driver: DriverEnv}},
		LockStores:      []LockStoreConfig{{Name: "default", Driver: DriverMemory}},
		SaaS:            SaaSConfig{EmailEnabled: true, SMSEnabled: true, OutboxStore: "default"},
	}
}

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("config: listen address must not be empty")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("config: shutdown_timeout must be positive")
	}

	seen := map[string]string{}
	checkName := func(kind, name string) error {
		if name == "" {
			return fmt.Errorf("config: %s store with empty name", kind)
		}
		key := kind + "/" + name
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("config: duplicate %s store %q (%s)", kind, name, prev)
		}
		seen[key] = kind
		return nil
	}

	for _, s := range c.StateStores {
		if err := checkName("state", s.Name); err != nil {
			return err
		}
		switch s.Driver {
		case DriverMemory:
		case DriverBadger:
			// empty path falls back to DataDir at wiring time
		case DriverRedis:
			if s.Redis.Addr == "" {
				return fmt.Errorf("config: state store %q: redis driver needs redis.addr", s.Name)
			}
		default:
			return fmt.Errorf("config: state store %q: unknown driver %q", s.Name, s.Driver)
		}
	}
	for _, p := range c.PubSubs {
		if err := checkName("pubsub", p.Name); err != nil {
			return err
		}
		if p.BufferSize < 0 {
			return fmt.Errorf("config: pubsub %q: buffer_size must not be negative", p.Name)
		}
	}
	for _, s := range c.ConfigStores {
		if err := checkName("configuration", s.Name); err != nil {
			return err
		}
		if s.Path == "" {
			return fmt.Errorf("config: configuration store %q needs a path", s.Name)
		}
	}
	for _, s := range c.SecretStores {
		if err := checkName("secret", s.Name); err != nil {
			return err
		}
		switch s.Driver {
		case DriverEnv:
		case DriverFile:
			if s.Path == "" {
				return fmt.Errorf("config: secret store %q: file driver needs a path", s.Name)
			}
		default:
			return fmt.Errorf("config: secret store %q: unknown driver %q", s.Name, s.Driver)
		}
	}
	for _, s := range c.LockStores {
		if err := checkName("lock", s.Name); err != nil {
			return err
		}
		switch s.Driver {
		case DriverMemory:
		case DriverRedis:
			if s.Redis.Addr == "" {
				return fmt.Errorf("config: lock store %q: redis driver needs redis.addr", s.Name)
			}
		default:
			return fmt.Errorf("config: lock store %q: unknown driver %q", s.Name, s.Driver)
		}
	}
	for _, s := range c.FileStores {
		if err := checkName("file", s.Name); err != nil {
			return err
		}
		if s.Root == "" {
			return fmt.Errorf("config: file store %q needs a root directory", s.Name)
		}
	}
	for _, a := range c.Apps {
		if a.ID == "" || a.BaseURL == "" {
			return fmt.Errorf("config: app entries need both id and base_url")
		}
	}
	for _, b := range c.Bindings {
		if b.Name == "" {
			return fmt.Errorf("config: binding with empty name")
		}
		if b.Type != "http" {
			return fmt.Errorf("config: binding %q: unknown type %q", b.Name, b.Type)
		}
		if b.URL == "" {
			return fmt.Errorf("config: binding %q needs a url", b.Name)
		}
	}
	if c.SQL.Enabled && c.SQL.Path == "" {
		return fmt.Errorf("config: sql.path required when sql is enabled")
	}
	return nil
}
