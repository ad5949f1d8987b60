// Package config provides centralized configuration for the stitch and
// distance tools and the HTTP server. It loads configuration from
// environment variables with sensible defaults and validates all settings
// on startup to fail fast on misconfiguration. Command-line flags override
// the loaded values.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Logging    LoggingConfig
	Stitch     StitchConfig
	Simulation SimulationConfig
	Server     ServerConfig
	Rate       RateLimitConfig
	Security   SecurityConfig
	Database   DatabaseConfig
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// StitchConfig holds the stitcher defaults.
type StitchConfig struct {
	// Slice is the default column slice (default: "::", every column)
	Slice string `env:"STITCH_SLICE" default:"::"`

	// Strict rejects malformed slices and inputs of different lengths
	Strict bool `env:"STITCH_STRICT" default:"false"`

	// TrailingComma ends every output line with a comma (default: true)
	TrailingComma bool `env:"STITCH_TRAILING_COMMA" default:"true"`
}

// SimulationConfig holds the Monte-Carlo defaults.
type SimulationConfig struct {
	// Bins is the histogram resolution (default: 100)
	Bins int `env:"SIM_BINS" default:"100"`

	// Randoms is the number of sample pairs; 0 lets each simulation pick
	Randoms int `env:"SIM_RANDOMS" default:"0"`

	// Dimensions is the highest cube dimension (default: 100)
	Dimensions int `env:"SIM_DIMENSIONS" default:"100"`

	// Powers is the highest integer metric power (default: 3)
	Powers int `env:"SIM_POWERS" default:"3"`

	// Workers is the number of goroutines per cube run (default: 4)
	Workers int `env:"SIM_WORKERS" default:"4"`

	// Seed fixes the random generator; 0 is time based (default: 0)
	Seed uint64 `env:"SIM_SEED" default:"0"`

	// MaxRandoms caps the samples a single HTTP request may ask for
	MaxRandoms int `env:"SIM_MAX_RANDOMS" default:"10000000"`

	// MaxBins caps the histogram bins a single HTTP request may ask for
	MaxBins int `env:"SIM_MAX_BINS" default:"100000"`

	// MaxDimensions caps the cube dimensions a single HTTP request may ask for
	MaxDimensions int `env:"SIM_MAX_DIMENSIONS" default:"1000"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0, streamed CSV)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 5m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`

	// MaxUploadSize is the maximum multipart body for /api/stitch (default: 100MB)
	MaxUploadSize int64 `env:"SERVER_MAX_UPLOAD_SIZE" default:"104857600"`

	// MaxConcurrentJobs bounds simultaneous stitch and simulation jobs (default: 4)
	MaxConcurrentJobs int `env:"SERVER_MAX_CONCURRENT_JOBS" default:"4"`

	// JobWaitTime is how long a request waits for a job slot (default: 30s)
	JobWaitTime time.Duration `env:"SERVER_JOB_WAIT_TIME" default:"30s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// JobLimit is requests per minute for the /api job endpoints (default: 20)
	JobLimit int `env:"RATE_LIMIT_JOBS" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey requires an X-API-Key header on /api routes (default: false)
	RequireAPIKey bool `env:"SECURITY_REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// DatabaseConfig holds the optional run history database settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty disables run history.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// RunRetention is how long recorded runs are kept (default: 0, forever)
	RunRetention time.Duration `env:"DB_RUN_RETENTION" default:"0s"`

	// RetentionInterval is how often old runs are pruned (default: 24h)
	RetentionInterval time.Duration `env:"DB_RETENTION_CHECK_INTERVAL" default:"24h"`
}

// Enabled reports whether a database URL was configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
