// Package config defines the service configuration, loaded from YAML with
// environment variable overrides.
package config

import (
	"time"

	"hungrycoders/chatrelay/pkg/providers"
)

// Config is the root configuration for the service.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server"`

	// Providers lists the configured chat backends.
	Providers []providers.Config `yaml:"providers"`

	// Chat configures turn orchestration.
	Chat ChatConfig `yaml:"chat"`

	// Prompts configures template-driven endpoints.
	Prompts PromptsConfig `yaml:"prompts"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Usage configures the per-request audit log.
	Usage UsageConfig `yaml:"usage"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// ListenAddress is the address to bind, e.g. ":8080".
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Streaming responses are exempt via per-route handling.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle limit.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RequestTimeout is the per-request deadline enforced by middleware.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxHeaderBytes limits request header size.
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS configures cross-origin behavior.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS settings.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	ExposedHeaders []string `yaml:"exposed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// ChatConfig contains turn orchestration settings.
type ChatConfig struct {
	// DefaultProvider is the fallback when a request names no provider or
	// an unknown one.
	DefaultProvider string `yaml:"default_provider"`

	// HistoryBudget is the token budget for the history window.
	HistoryBudget int `yaml:"history_budget"`

	// RequestTimeout bounds one synchronous provider call.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// PromptsConfig contains prompt template settings.
type PromptsConfig struct {
	// Dir is the directory holding *.txt templates. Empty uses the
	// built-in templates.
	Dir string `yaml:"dir"`

	// TicketProvider is the fixed provider for the bespoke-response
	// follow-up on high-priority tickets. Empty uses the default provider.
	TicketProvider string `yaml:"ticket_provider"`
}

// TelemetryConfig contains observability settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is json or text.
	Format string `yaml:"format"`

	// AddSource includes file:line in records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// UsageConfig contains usage audit settings.
type UsageConfig struct {
	// Enabled turns usage recording on.
	Enabled bool `yaml:"enabled"`

	// Backend selects the store: "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path"`

	// RetentionDays is how long records are kept. Zero keeps forever.
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a cron expression for retention pruning.
	PruneSchedule string `yaml:"prune_schedule"`
}
