// Package config loads adapter settings from the environment and an optional
// .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds process configuration.
type Config struct {
	// HTTPAddr is where the directive endpoint listens.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DBPath is the SQLite file. "memory" keeps the directory in process
	// and loses it on exit.
	DBPath string `mapstructure:"DB_PATH"`
	// SeedFile is an optional YAML fixture loaded at startup.
	SeedFile string `mapstructure:"SEED_FILE"`

	// NATSURL is the broker address; empty disables command publishing and
	// telemetry.
	NATSURL string `mapstructure:"NATS_URL"`
	// SubjectPrefix is prepended to every device subject.
	SubjectPrefix string `mapstructure:"SUBJECT_PREFIX"`

	// JWTSecret verifies account-linking tokens (HS256).
	JWTSecret string `mapstructure:"JWT_SECRET"`

	// EventEndpoint is the platform event gateway.
	EventEndpoint string `mapstructure:"EVENT_ENDPOINT"`
	// DirectiveTimeout bounds one directive (e.g. "5s").
	DirectiveTimeout string `mapstructure:"DIRECTIVE_TIMEOUT"`
	// ForwardTimeout bounds one change report POST (e.g. "10s").
	ForwardTimeout string `mapstructure:"FORWARD_TIMEOUT"`

	// TelemetryWorkers is the number of telemetry shards.
	TelemetryWorkers int `mapstructure:"TELEMETRY_WORKERS"`

	// LogLevel is a zerolog level name.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is "console" or "json".
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

// Load reads .env (if present), then builds Config from the environment.
// Environment variables override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DB_PATH", "")
	v.SetDefault("SEED_FILE", "")
	v.SetDefault("NATS_URL", "nats://127.0.0.1:4222")
	v.SetDefault("SUBJECT_PREFIX", "devices")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("EVENT_ENDPOINT", "https://api.amazonalexa.com/v3/events")
	v.SetDefault("DIRECTIVE_TIMEOUT", "5s")
	v.SetDefault("FORWARD_TIMEOUT", "10s")
	v.SetDefault("TELEMETRY_WORKERS", 8)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.SubjectPrefix == "" {
		return nil, errors.New("config: SUBJECT_PREFIX must not be empty")
	}
	if cfg.TelemetryWorkers < 1 {
		return nil, errors.New("config: TELEMETRY_WORKERS must be at least 1")
	}
	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		return nil, errors.New("config: LOG_FORMAT must be console or json")
	}

	return &cfg, nil
}

// InMemory reports whether the directory should live in process only.
func (c *Config) InMemory() bool {
	return c.DBPath == "memory"
}

// DirectiveTimeoutDuration parses DirectiveTimeout. Returns 5s if unset or invalid.
func (c *Config) DirectiveTimeoutDuration() time.Duration {
	return parseDuration(c.DirectiveTimeout, 5*time.Second)
}

// ForwardTimeoutDuration parses ForwardTimeout. Returns 10s if unset or invalid.
func (c *Config) ForwardTimeoutDuration() time.Duration {
	return parseDuration(c.ForwardTimeout, 10*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
