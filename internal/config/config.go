// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Remote   RemoteConfig
	Batch    BatchConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Rate     RateLimitConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// Addr returns the host:port pair the server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	URL string `env:"DATABASE_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
}

// RemoteConfig holds settings for the record-source services.
type RemoteConfig struct {
	// BaseURL is the gateway all tenant-scoped service calls go through (required)
	BaseURL string `env:"REMOTE_BASE_URL" required:"true"`

	// Timeout bounds each remote HTTP call (default: 30s)
	Timeout time.Duration `env:"REMOTE_TIMEOUT" default:"30s"`
}

// BatchConfig holds bulk-operation pipeline settings.
type BatchConfig struct {
	// ChunkSize is the number of identifiers per dispatched chunk (default: 100)
	ChunkSize int `env:"BATCH_CHUNK_SIZE" default:"100"`

	// Workers is the size of the shared chunk worker pool (default: 4)
	Workers int `env:"BATCH_WORKERS" default:"4"`

	// MaxConcurrent is the maximum number of parallel operations (default: 3)
	MaxConcurrent int `env:"BATCH_MAX_CONCURRENT" default:"3"`

	// MaxWaitTime is how long to wait for an operation slot (default: 30s)
	MaxWaitTime time.Duration `env:"BATCH_MAX_WAIT_TIME" default:"30s"`

	// OperationTimeout bounds one operation end to end (default: 30m)
	OperationTimeout time.Duration `env:"BATCH_OPERATION_TIMEOUT" default:"30m"`
}

// CacheConfig holds in-memory cache TTLs.
type CacheConfig struct {
	// ReferenceTTL is how long resolved reference names stay cached (default: 5m)
	ReferenceTTL time.Duration `env:"CACHE_REFERENCE_TTL" default:"5m"`

	// PermissionTTL is how long permission and affiliation sets stay cached (default: 2m)
	PermissionTTL time.Duration `env:"CACHE_PERMISSION_TTL" default:"2m"`
}

// StorageConfig holds output-file settings.
type StorageConfig struct {
	// Dir is where operation output files are written (default: system temp)
	Dir string `env:"STORAGE_DIR"`

	// Retention is how long finished operations stay resident (default: 1h)
	Retention time.Duration `env:"STORAGE_RETENTION" default:"1h"`

	// SweepInterval is how often finished operations are swept (default: 10m)
	SweepInterval time.Duration `env:"STORAGE_SWEEP_INTERVAL" default:"10m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}
