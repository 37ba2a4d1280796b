package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"hungrycoders/chatrelay/pkg/providers"
)

// Load reads configuration from a YAML file, applies defaults and validates
// the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the convention
// CHATRELAY_SECTION_FIELD (e.g. CHATRELAY_SERVER_LISTEN_ADDRESS) and always
// take precedence over file values.
func LoadWithEnvOverrides(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("CHATRELAY_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("CHATRELAY_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("CHATRELAY_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("CHATRELAY_SERVER_REQUEST_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.RequestTimeout = d
		}
	}
	if val := os.Getenv("CHATRELAY_SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}

	// Chat overrides
	if val := os.Getenv("CHATRELAY_CHAT_DEFAULT_PROVIDER"); val != "" {
		cfg.Chat.DefaultProvider = val
	}
	if val := os.Getenv("CHATRELAY_CHAT_HISTORY_BUDGET"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Chat.HistoryBudget = i
		}
	}

	// Provider overrides, keyed by provider name:
	// CHATRELAY_PROVIDERS_<NAME>_{BASE_URL,API_KEY,MODEL}
	for i := range cfg.Providers {
		applyProviderEnvOverrides(&cfg.Providers[i])
	}

	// Telemetry overrides
	if val := os.Getenv("CHATRELAY_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("CHATRELAY_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("CHATRELAY_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}

	// Usage overrides
	if val := os.Getenv("CHATRELAY_USAGE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Usage.Enabled = b
		}
	}
	if val := os.Getenv("CHATRELAY_USAGE_BACKEND"); val != "" {
		cfg.Usage.Backend = val
	}
	if val := os.Getenv("CHATRELAY_USAGE_SQLITE_PATH"); val != "" {
		cfg.Usage.SQLitePath = val
	}
	if val := os.Getenv("CHATRELAY_USAGE_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Usage.RetentionDays = i
		}
	}
}

func applyProviderEnvOverrides(p *providers.Config) {
	prefix := "CHATRELAY_PROVIDERS_" + envName(p.Name) + "_"

	if val := os.Getenv(prefix + "BASE_URL"); val != "" {
		p.BaseURL = val
	}
	if val := os.Getenv(prefix + "API_KEY"); val != "" {
		p.APIKey = val
	}
	if val := os.Getenv(prefix + "MODEL"); val != "" {
		p.Model = val
	}
	if val := os.Getenv(prefix + "TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			p.Timeout = d
		}
	}
}

// envName maps a provider name to its environment variable segment.
func envName(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
