package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "beacon.json"

	// DefaultAddr is the default listen address.
	DefaultAddr = ":8080"
)

// Config represents the complete beacon.json configuration.
type Config struct {
	// Name is the instance name, used in logs.
	Name string `json:"name,omitempty"`

	// Addr is the listen address (host:port).
	Addr string `json:"addr,omitempty"`

	// Origins is the allowed WebSocket origins. Empty allows all; use
	// that only in development.
	Origins []string `json:"origins,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty"`

	// Limits contains connection limit configuration.
	Limits LimitsConfig `json:"limits,omitempty"`

	// Timeouts contains connection timing configuration.
	Timeouts TimeoutsConfig `json:"timeouts,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `json:"level,omitempty"`

	// Format is the log output format: "text" or "json".
	Format string `json:"format,omitempty"`
}

// LimitsConfig contains connection limit settings.
type LimitsConfig struct {
	// MaxConns is the maximum number of concurrent connections.
	// Zero means unlimited.
	MaxConns int `json:"maxConns,omitempty"`

	// MaxConnsPerIP is the maximum concurrent connections per client IP.
	// Zero means unlimited.
	MaxConnsPerIP int `json:"maxConnsPerIP,omitempty"`
}

// TimeoutsConfig contains connection timing settings.
// Durations use Go syntax (e.g. "10s", "1m30s").
type TimeoutsConfig struct {
	// Write is the time allowed for a single outbound write.
	Write string `json:"write,omitempty"`

	// Pong is how long to wait for a pong before the connection is
	// considered dead.
	Pong string `json:"pong,omitempty"`

	// Idle is how long a connection may go without any inbound traffic
	// before the cleanup loop closes it. Zero disables idle cleanup.
	Idle string `json:"idle,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Name: "beacon",
		Addr: DefaultAddr,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Limits: LimitsConfig{
			MaxConns:      0,
			MaxConnsPerIP: 0,
		},
		Timeouts: TimeoutsConfig{
			Write: "10s",
			Pong:  "60s",
			Idle:  "0s",
		},
	}
}

// Load reads configuration from the given path. A missing file yields
// the defaults; a present but invalid file is an error.
func Load(path string) (*Config, error) {
	cfg := New()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr must not be empty")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	if c.Limits.MaxConns < 0 || c.Limits.MaxConnsPerIP < 0 {
		return fmt.Errorf("config: limits must not be negative")
	}
	for _, d := range []struct {
		name, value string
	}{
		{"timeouts.write", c.Timeouts.Write},
		{"timeouts.pong", c.Timeouts.Pong},
		{"timeouts.idle", c.Timeouts.Idle},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("config: %s: %w", d.name, err)
		}
	}
	return nil
}

// WriteTimeout returns the parsed write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return parseDuration(c.Timeouts.Write, 10*time.Second)
}

// PongTimeout returns the parsed pong timeout.
func (c *Config) PongTimeout() time.Duration {
	return parseDuration(c.Timeouts.Pong, 60*time.Second)
}

// IdleTimeout returns the parsed idle timeout. Zero disables idle cleanup.
func (c *Config) IdleTimeout() time.Duration {
	return parseDuration(c.Timeouts.Idle, 0)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
