// Package config provides centralized configuration management for the
// repository service. It loads settings from environment variables with
// sensible defaults and validates everything on startup to fail fast on
// misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Search    SearchConfig
	Export    ExportConfig
	Retention RetentionConfig
	Rate      RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response.
	// Zero disables it; CSV exports can stream for a long time.
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-streaming requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// AuthConfig holds token verification settings.
type AuthConfig struct {
	// JWTSecret is the HMAC key used to verify bearer tokens (required)
	JWTSecret string `env:"JWT_SECRET" required:"true"`
}

// SearchConfig holds pagination settings for search and listing endpoints.
type SearchConfig struct {
	// MaxPaginationSize caps the pageSize query parameter (default: 1000)
	MaxPaginationSize int `env:"MAX_PAGINATION_SIZE" default:"1000"`

	// DefaultPaginationSize applies when pageSize is absent (default: 1000)
	DefaultPaginationSize int `env:"DEFAULT_PAGINATION_SIZE" default:"1000"`
}

// ExportConfig holds CSV export pipeline settings.
type ExportConfig struct {
	// StreamWorkers is the number of parallel database readers per export (default: 1)
	StreamWorkers int `env:"DB_CSV_STREAM_WORKERS" default:"1"`

	// TransformWorkers is the number of CSV encoding workers per export (default: 2)
	TransformWorkers int `env:"DB_CSV_TRANSFORM_WORKERS" default:"2"`

	// QueueDepth bounds the pipeline hand-off channels (default: 200)
	QueueDepth int `env:"DB_CSV_WORKER_QUEUE_DEPTH" default:"200"`

	// MaxStreamsPerUser caps concurrent exports per non-superuser (default: 2)
	MaxStreamsPerUser int `env:"DB_MAX_STREAMS_PER_USER" default:"2"`
}

// RetentionConfig holds expired-session sweep settings.
type RetentionConfig struct {
	// SweepInterval is how often expired upload sessions are pruned.
	// Zero or negative disables the sweeper. (default: 1m)
	SweepInterval time.Duration `env:"RETENTION_SWEEP_INTERVAL" default:"1m"`

	// SweepTimeout bounds a single prune pass (default: 30s)
	SweepTimeout time.Duration `env:"RETENTION_SWEEP_TIMEOUT" default:"30s"`
}

// RateLimitConfig holds per-IP request throttling settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerSecond is the sustained per-IP rate (default: 20)
	RequestsPerSecond int `env:"RATE_LIMIT_REQUESTS_PER_SECOND" default:"20"`

	// Burst is the per-IP burst allowance (default: 40)
	Burst int `env:"RATE_LIMIT_BURST" default:"40"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
