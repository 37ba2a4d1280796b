package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validYAML = `
server:
  listen_address: "127.0.0.1:9090"
providers:
  - name: ollama
    type: openai
    base_url: http://localhost:11434/v1
    model: llama3
  - name: gemini
    type: gemini
    base_url: https://generativelanguage.googleapis.com/v1beta
    api_key: test-key
    model: gemini-pro
chat:
  default_provider: ollama
  history_budget: 2000
usage:
  backend: memory
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chatrelay.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.ListenAddress != "127.0.0.1:9090" {
		t.Errorf("ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if len(cfg.Providers) != 2 {
		t.Fatalf("got %d providers, want 2", len(cfg.Providers))
	}
	if cfg.Chat.HistoryBudget != 2000 {
		t.Errorf("HistoryBudget = %d, want 2000", cfg.Chat.HistoryBudget)
	}

	// Defaults fill unset fields.
	if cfg.Server.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("ShutdownTimeout = %v, want default", cfg.Server.ShutdownTimeout)
	}
	if cfg.Providers[0].Timeout != DefaultProviderTimeout {
		t.Errorf("provider Timeout = %v, want default", cfg.Providers[0].Timeout)
	}
	if cfg.Telemetry.Logging.Level != DefaultLoggingLevel {
		t.Errorf("Logging.Level = %q, want default", cfg.Telemetry.Logging.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "server: [not a map")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no providers", func(c *Config) { c.Providers = nil }},
		{"duplicate provider", func(c *Config) { c.Providers[1].Name = c.Providers[0].Name }},
		{"unknown provider type", func(c *Config) { c.Providers[0].Type = "anthropic" }},
		{"missing base_url", func(c *Config) { c.Providers[0].BaseURL = "" }},
		{"missing model", func(c *Config) { c.Providers[0].Model = "" }},
		{"unknown default provider", func(c *Config) { c.Chat.DefaultProvider = "missing" }},
		{"negative budget", func(c *Config) { c.Chat.HistoryBudget = -1 }},
		{"unknown ticket provider", func(c *Config) { c.Prompts.TicketProvider = "missing" }},
		{"bad log level", func(c *Config) { c.Telemetry.Logging.Level = "loud" }},
		{"bad usage backend", func(c *Config) { c.Usage.Backend = "postgres" }},
		{"sqlite without path", func(c *Config) {
			c.Usage.Backend = "sqlite"
			c.Usage.SQLitePath = ""
		}},
		{"bad cron schedule", func(c *Config) { c.Usage.PruneSchedule = "whenever" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, validYAML))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("CHATRELAY_SERVER_LISTEN_ADDRESS", "0.0.0.0:7070")
	t.Setenv("CHATRELAY_CHAT_HISTORY_BUDGET", "512")
	t.Setenv("CHATRELAY_PROVIDERS_OLLAMA_MODEL", "mistral")
	t.Setenv("CHATRELAY_PROVIDERS_OLLAMA_TIMEOUT", "90s")

	cfg, err := LoadWithEnvOverrides(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadWithEnvOverrides: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:7070" {
		t.Errorf("ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if cfg.Chat.HistoryBudget != 512 {
		t.Errorf("HistoryBudget = %d", cfg.Chat.HistoryBudget)
	}
	if cfg.Providers[0].Model != "mistral" {
		t.Errorf("Model = %q", cfg.Providers[0].Model)
	}
	if cfg.Providers[0].Timeout != 90*time.Second {
		t.Errorf("Timeout = %v", cfg.Providers[0].Timeout)
	}
}
