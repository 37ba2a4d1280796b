// Package providerfactory constructs provider adapters from configuration.
// It lives outside pkg/providers so the adapter packages can depend on the
// agnostic types without an import cycle.
package providerfactory

import (
	"fmt"
	"log/slog"
	"time"

	"hungrycoders/chatrelay/pkg/providers"
	"hungrycoders/chatrelay/pkg/providers/gemini"
	"hungrycoders/chatrelay/pkg/providers/openai"
)

// New builds a provider adapter for the given configuration, selected by
// the Type field.
func New(cfg providers.Config) (providers.Provider, error) {
	applyDefaults(&cfg)

	switch cfg.Type {
	case "openai", "":
		return openai.New(cfg)
	case "gemini":
		return gemini.New(cfg)
	default:
		return nil, fmt.Errorf("unknown provider type %q for provider %q", cfg.Type, cfg.Name)
	}
}

// BuildAll constructs every configured provider, keyed by name. On error,
// already-built providers are closed before returning.
func BuildAll(configs []providers.Config) (map[string]providers.Provider, error) {
	built := make(map[string]providers.Provider, len(configs))

	for _, cfg := range configs {
		if _, exists := built[cfg.Name]; exists {
			closeAll(built)
			return nil, fmt.Errorf("duplicate provider name %q", cfg.Name)
		}

		p, err := New(cfg)
		if err != nil {
			closeAll(built)
			return nil, fmt.Errorf("failed to build provider %q: %w", cfg.Name, err)
		}
		built[cfg.Name] = p

		slog.Info("provider configured",
			"provider", cfg.Name,
			"type", p.Type(),
			"model", cfg.Model,
			"base_url", cfg.BaseURL,
		)
	}

	return built, nil
}

func applyDefaults(cfg *providers.Config) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 10
	}
	if cfg.MaxIdleConnsPerHost == 0 {
		cfg.MaxIdleConnsPerHost = 5
	}
}

func closeAll(built map[string]providers.Provider) {
	for _, p := range built {
		_ = p.Close()
	}
}
