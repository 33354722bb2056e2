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
	Server    ServerConfig
	Database  DatabaseConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Monitor   MonitorConfig
	Reporting ReportingConfig
	Migration MigrationConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 5m, launches can be slow)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 5m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Required by the server; the
	// CLI falls back to an in-memory store without it.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey gates every /api route behind an API key (default: false)
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

// MonitorConfig holds the periodic launch settings.
type MonitorConfig struct {
	// Enabled starts the monitor scheduler with the server (default: true)
	Enabled bool `env:"MONITOR_ENABLED" default:"true"`

	// Granularities is a comma-separated list to launch; empty means all registered
	Granularities []string `env:"MONITOR_GRANULARITIES"`

	// Interval is how often to launch (default: 1h)
	Interval time.Duration `env:"MONITOR_INTERVAL" default:"1h"`

	// RunTimeout bounds a single launch (default: 10m)
	RunTimeout time.Duration `env:"MONITOR_RUN_TIMEOUT" default:"10m"`
}

// ReportingConfig holds the reporting API client settings.
type ReportingConfig struct {
	// BaseURL is the reporting API root, e.g. https://reporting.internal
	BaseURL string `env:"REPORTING_BASE_URL"`

	// Token is sent as a bearer token
	Token string `env:"REPORTING_TOKEN"`

	// Timeout bounds each reporting request (default: 30s)
	Timeout time.Duration `env:"REPORTING_TIMEOUT" default:"30s"`

	// EntityFile is a YAML fixture used instead of the API when set
	EntityFile string `env:"ENTITY_FILE"`
}

// MigrationConfig holds upgrade settings.
type MigrationConfig struct {
	// AppVersion is the version migrations move to (default: 1.2.0)
	AppVersion string `env:"APP_VERSION" default:"1.2.0"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
