package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for consistency. It is called after
// defaults are applied, so zero values only appear where the user set them
// explicitly.
func Validate(cfg *Config) error {
	if cfg.Server.ListenAddress == "" {
		return fmt.Errorf("server.listen_address cannot be empty")
	}

	if len(cfg.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	seen := make(map[string]bool, len(cfg.Providers))
	for i, p := range cfg.Providers {
		if p.Name == "" {
			return fmt.Errorf("providers[%d]: name cannot be empty", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate provider name %q", p.Name)
		}
		seen[p.Name] = true

		switch p.Type {
		case "", "openai", "gemini":
		default:
			return fmt.Errorf("provider %q: unknown type %q", p.Name, p.Type)
		}
		if p.BaseURL == "" {
			return fmt.Errorf("provider %q: base_url cannot be empty", p.Name)
		}
		if p.Model == "" {
			return fmt.Errorf("provider %q: model cannot be empty", p.Name)
		}
		if p.Timeout < 0 {
			return fmt.Errorf("provider %q: timeout cannot be negative", p.Name)
		}
	}

	if !seen[cfg.Chat.DefaultProvider] {
		return fmt.Errorf("chat.default_provider %q is not a configured provider", cfg.Chat.DefaultProvider)
	}
	if cfg.Chat.HistoryBudget <= 0 {
		return fmt.Errorf("chat.history_budget must be positive")
	}

	if cfg.Prompts.TicketProvider != "" && !seen[cfg.Prompts.TicketProvider] {
		return fmt.Errorf("prompts.ticket_provider %q is not a configured provider", cfg.Prompts.TicketProvider)
	}

	switch cfg.Telemetry.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.logging.level %q is invalid", cfg.Telemetry.Logging.Level)
	}
	switch cfg.Telemetry.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("telemetry.logging.format %q is invalid", cfg.Telemetry.Logging.Format)
	}

	switch cfg.Usage.Backend {
	case "memory":
	case "sqlite":
		if cfg.Usage.SQLitePath == "" {
			return fmt.Errorf("usage.sqlite_path required for sqlite backend")
		}
	default:
		return fmt.Errorf("usage.backend %q is invalid (memory or sqlite)", cfg.Usage.Backend)
	}
	if cfg.Usage.RetentionDays < 0 {
		return fmt.Errorf("usage.retention_days cannot be negative")
	}
	if cfg.Usage.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Usage.PruneSchedule); err != nil {
			return fmt.Errorf("usage.prune_schedule %q is invalid: %w", cfg.Usage.PruneSchedule, err)
		}
	}

	return nil
}
