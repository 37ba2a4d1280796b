package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultRequestTimeout  = 60 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// CORS defaults
	DefaultCORSEnabled = true
	DefaultCORSMaxAge  = 3600

	// Chat defaults
	DefaultChatProvider    = "ollama"
	DefaultHistoryBudget   = 4000
	DefaultChatCallTimeout = 60 * time.Second

	// Provider defaults
	DefaultProviderTimeout    = 60 * time.Second
	DefaultProviderMaxRetries = 2

	// Telemetry defaults
	DefaultLoggingLevel   = "info"
	DefaultLoggingFormat  = "json"
	DefaultMetricsEnabled = true
	DefaultPrometheusPath = "/metrics"

	// Usage defaults
	DefaultUsageEnabled       = true
	DefaultUsageBackend       = "memory"
	DefaultUsageSQLitePath    = "data/usage.db"
	DefaultUsageRetentionDays = 90
	DefaultUsagePruneSchedule = "0 3 * * *"
)

// ApplyDefaults fills zero-valued fields with defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	if cfg.Server.CORS.AllowedOrigins == nil {
		cfg.Server.CORS.Enabled = DefaultCORSEnabled
		cfg.Server.CORS.AllowedOrigins = []string{"*"}
	}
	if cfg.Server.CORS.AllowedMethods == nil {
		cfg.Server.CORS.AllowedMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	if cfg.Server.CORS.AllowedHeaders == nil {
		cfg.Server.CORS.AllowedHeaders = []string{"Content-Type", "X-Request-ID", "ai-provider"}
	}
	if cfg.Server.CORS.ExposedHeaders == nil {
		cfg.Server.CORS.ExposedHeaders = []string{"X-Request-ID", "X-Conversation-Id"}
	}
	if cfg.Server.CORS.MaxAge == 0 {
		cfg.Server.CORS.MaxAge = DefaultCORSMaxAge
	}

	if cfg.Chat.DefaultProvider == "" {
		cfg.Chat.DefaultProvider = DefaultChatProvider
	}
	if cfg.Chat.HistoryBudget == 0 {
		cfg.Chat.HistoryBudget = DefaultHistoryBudget
	}
	if cfg.Chat.RequestTimeout == 0 {
		cfg.Chat.RequestTimeout = DefaultChatCallTimeout
	}

	for i := range cfg.Providers {
		if cfg.Providers[i].Timeout == 0 {
			cfg.Providers[i].Timeout = DefaultProviderTimeout
		}
		if cfg.Providers[i].MaxRetries == 0 {
			cfg.Providers[i].MaxRetries = DefaultProviderMaxRetries
		}
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}

	if cfg.Usage.Backend == "" {
		cfg.Usage.Enabled = DefaultUsageEnabled
		cfg.Usage.Backend = DefaultUsageBackend
	}
	if cfg.Usage.Backend == "sqlite" && cfg.Usage.SQLitePath == "" {
		cfg.Usage.SQLitePath = DefaultUsageSQLitePath
	}
	if cfg.Usage.RetentionDays == 0 {
		cfg.Usage.RetentionDays = DefaultUsageRetentionDays
	}
	if cfg.Usage.PruneSchedule == "" {
		cfg.Usage.PruneSchedule = DefaultUsagePruneSchedule
	}
}
