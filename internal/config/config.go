// Package config provides centralized configuration management for stew.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strings"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Load     LoadConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 0, uploads stream)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"0s"`

	// WriteTimeout is the maximum duration for writing response (default: 0s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// MaxBodySize caps a single upload in bytes (default: 1GB)
	MaxBodySize int64 `env:"SERVER_MAX_BODY_SIZE" default:"1073741824"`

	// TrustedProxies is a comma-separated list of proxy CIDRs or addresses
	// whose X-Real-IP and X-Forwarded-For headers are believed. When empty,
	// the headers are taken from any client.
	TrustedProxies string `env:"SERVER_TRUSTED_PROXIES"`
}

// Proxies splits TrustedProxies into entries.
func (c *ServerConfig) Proxies() []string {
	var out []string
	for _, p := range strings.Split(c.TrustedProxies, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility.
	// Only commands that touch the database require it; see RequireDatabase.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ImportConfig holds delimited-text parsing settings.
type ImportConfig struct {
	// Separator is the default field separator (default: ",")
	Separator string `env:"IMPORT_SEPARATOR" default:","`

	// ChunkSize is the number of bytes read from a source per refill (default: 16KB)
	ChunkSize int `env:"IMPORT_CHUNK_SIZE" default:"16384"`

	// StrictQuotes reports malformed quoting as an error instead of recovering (default: false)
	StrictQuotes bool `env:"IMPORT_STRICT_QUOTES" default:"false"`
}

// LoadConfig holds bulk load settings.
type LoadConfig struct {
	// Mode is how rows reach the table: copy or insert (default: copy)
	Mode string `env:"LOAD_MODE" default:"copy"`

	// MaxConcurrent is the maximum number of parallel loads (default: 4)
	MaxConcurrent int `env:"LOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for a load slot (default: 30s)
	MaxWaitTime time.Duration `env:"LOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single load (default: 30m)
	Timeout time.Duration `env:"LOAD_TIMEOUT" default:"30m"`

	// EmptyAsNull sends empty fields as NULL (default: false)
	EmptyAsNull bool `env:"LOAD_EMPTY_AS_NULL" default:"false"`

	// CheckInterval is how many rows pass between cancellation checks (default: 100)
	CheckInterval int `env:"LOAD_CHECK_INTERVAL" default:"100"`
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
