// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Writes   WriteConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Audit    AuditConfig
	Search   SearchConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`

	// MaxBodyBytes caps request bodies; single entries carry images (default: 8MB)
	MaxBodyBytes int64 `env:"SERVER_MAX_BODY_BYTES" default:"8388608"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// Driver selects the backend: postgres or sqlite (default: postgres)
	Driver string `env:"STORE_DRIVER" default:"postgres"`

	// URL is the PostgreSQL connection string or the SQLite file path.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// WriteConfig holds row and entry write settings.
type WriteConfig struct {
	// MaxConcurrent is the maximum number of parallel writes (default: 16)
	MaxConcurrent int `env:"WRITE_MAX_CONCURRENT" default:"16"`

	// MaxWaitTime is how long to wait for a write slot (default: 5s)
	MaxWaitTime time.Duration `env:"WRITE_MAX_WAIT_TIME" default:"5s"`

	// BatchParallelism is how many rows of a batch save run at once (default: 4)
	BatchParallelism int `env:"WRITE_BATCH_PARALLELISM" default:"4"`

	// MaxImageBytes is the largest single-entry image (default: 5MB)
	MaxImageBytes int64 `env:"WRITE_MAX_IMAGE_BYTES" default:"5242880"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`

	// WriteLimit is requests per minute for write endpoints (default: 120)
	WriteLimit int `env:"RATE_LIMIT_WRITES" default:"120"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey rejects API requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// AuditConfig holds audit log retention settings.
type AuditConfig struct {
	// RetentionDays is how long audit entries are kept (default: 90)
	RetentionDays int `env:"AUDIT_RETENTION_DAYS" default:"90"`

	// PurgeInterval is how often expired entries are deleted (default: 24h)
	PurgeInterval time.Duration `env:"AUDIT_PURGE_INTERVAL" default:"24h"`
}

// SearchConfig holds global search settings.
type SearchConfig struct {
	// PreviewSize is the number of matches in the inline preview (default: 10)
	PreviewSize int `env:"SEARCH_PREVIEW_SIZE" default:"10"`
}

// ClientConfig holds settings for the command-line REST client.
type ClientConfig struct {
	// BaseURL is the planbook server address (default: http://localhost:8080)
	BaseURL string `env:"PLANBOOK_URL" default:"http://localhost:8080"`

	// APIKey is sent as X-API-Key when set
	APIKey string `env:"PLANBOOK_API_KEY"`

	// Project is the default project id
	Project string `env:"PLANBOOK_PROJECT"`

	// Timeout bounds each request (default: 30s)
	Timeout time.Duration `env:"PLANBOOK_TIMEOUT" default:"30s"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + strconv.Itoa(c.Port)
	}
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// AuditRetention returns the retention window as a duration.
func (c *AuditConfig) AuditRetention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}
