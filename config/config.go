package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"terranet/pricing"
)

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	raw := value.Value
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config captures runtime configuration for onboardd.
type Config struct {
	ListenAddress string           `yaml:"listen"`
	Environment   string           `yaml:"env"`
	DatabaseDSN   string           `yaml:"database"`
	DataDir       string           `yaml:"data_dir"`
	CORS          CORSConfig       `yaml:"cors"`
	RateLimits    RateLimitConfig  `yaml:"rate_limits"`
	Telemetry     TelemetryConfig  `yaml:"telemetry"`
	Pricing       pricing.Schedule `yaml:"pricing"`
}

// CORSConfig restricts browser access to the drawing UI origins.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
}

// RouteLimit throttles a single route group per client IP.
type RouteLimit struct {
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
	Burst             int     `yaml:"burst"`
}

// RateLimitConfig holds per-route throttles; zero values disable them.
type RateLimitConfig struct {
	Quotes   RouteLimit `yaml:"quotes"`
	Checkout RouteLimit `yaml:"checkout"`
}

// TelemetryConfig wires the OTLP exporters.
type TelemetryConfig struct {
	Enabled  bool              `yaml:"enabled"`
	Endpoint string            `yaml:"endpoint"`
	Insecure bool              `yaml:"insecure"`
	Headers  map[string]string `yaml:"headers"`
	Metrics  bool              `yaml:"metrics"`
	Traces   bool              `yaml:"traces"`
}

// Load reads the YAML config file, applies environment overrides, and
// validates the result including the pricing schedule. Schedule faults are
// fatal here, before the service accepts a single request.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8080"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "orders"
	}
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		c.DatabaseDSN = "onboardd.db"
	}
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("ONBOARD_LISTEN")); v != "" {
		c.ListenAddress = v
	}
	if v := strings.TrimSpace(os.Getenv("ONBOARD_DB_DSN")); v != "" {
		c.DatabaseDSN = v
	}
	if v := strings.TrimSpace(os.Getenv("ONBOARD_DATA_DIR")); v != "" {
		c.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv("ONBOARD_ENV")); v != "" {
		c.Environment = v
	}
}

// Validate rejects configurations the service must not start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("listen address is required")
	}
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		return fmt.Errorf("database DSN is required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.RateLimits.Quotes.RequestsPerMinute < 0 || c.RateLimits.Checkout.RequestsPerMinute < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	if c.Telemetry.Enabled && strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		return fmt.Errorf("telemetry endpoint is required when telemetry is enabled")
	}
	if err := c.Pricing.Validate(); err != nil {
		return err
	}
	return nil
}

// PostgresDSN reports whether the configured DSN targets postgres rather
// than the embedded sqlite store.
func (c *Config) PostgresDSN() bool {
	dsn := strings.ToLower(strings.TrimSpace(c.DatabaseDSN))
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.HasPrefix(dsn, "host=")
}
