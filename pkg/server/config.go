package server

import (
	"log/slog"
	"time"

	"github.com/beacon-dev/beacon/pkg/protocol"
)

// ConnConfig contains per-connection timing and buffering settings.
type ConnConfig struct {
	// WriteTimeout is the time allowed for a single outbound write.
	WriteTimeout time.Duration

	// PongTimeout is how long to wait for a pong before the connection
	// is considered dead.
	PongTimeout time.Duration

	// PingInterval is how often pings are sent. Must be shorter than
	// PongTimeout; derived from it when zero.
	PingInterval time.Duration

	// MaxMessageSize is the read limit in bytes.
	MaxMessageSize int64

	// SendBuffer is the size of the outbound message queue. A client
	// that cannot drain it gets disconnected.
	SendBuffer int
}

// DefaultConnConfig returns the default connection configuration.
func DefaultConnConfig() ConnConfig {
	return ConnConfig{
		WriteTimeout:   10 * time.Second,
		PongTimeout:    60 * time.Second,
		MaxMessageSize: protocol.MaxMessageSize,
		SendBuffer:     256,
	}
}

// pingInterval resolves the effective ping period.
func (c ConnConfig) pingInterval() time.Duration {
	if c.PingInterval > 0 {
		return c.PingInterval
	}
	return c.PongTimeout * 9 / 10
}

// Limits contains connection count limits.
type Limits struct {
	// MaxConns is the maximum concurrent connections. Zero is unlimited.
	MaxConns int

	// MaxConnsPerIP is the maximum concurrent connections per client
	// IP. Zero is unlimited.
	MaxConnsPerIP int

	// IdleTimeout closes connections without inbound traffic for this
	// long. Zero disables idle cleanup.
	IdleTimeout time.Duration
}

// DefaultLimits returns the default limits (everything unlimited).
func DefaultLimits() Limits {
	return Limits{}
}

// Config contains the full server configuration.
type Config struct {
	// Addr is the listen address.
	Addr string

	// AllowedOrigins restricts WebSocket origins. Empty allows all.
	AllowedOrigins []string

	// Conn is the per-connection configuration.
	Conn ConnConfig

	// Limits are the connection count limits.
	Limits Limits

	// Logger is the base logger. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a configuration suitable for local development.
func DefaultConfig() *Config {
	return &Config{
		Addr:   ":8080",
		Conn:   DefaultConnConfig(),
		Limits: DefaultLimits(),
	}
}
