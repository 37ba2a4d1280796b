package providerfactory

import (
	"strings"
	"testing"

	"hungrycoders/chatrelay/pkg/providers"
)

func TestNew_TypeSelection(t *testing.T) {
	tests := []struct {
		name     string
		cfg      providers.Config
		wantType string
	}{
		{
			name: "openai",
			cfg: providers.Config{
				Name: "openai", Type: "openai",
				BaseURL: "https://api.openai.com/v1", APIKey: "sk-x", Model: "gpt-4o",
			},
			wantType: "openai",
		},
		{
			name: "empty type defaults to openai",
			cfg: providers.Config{
				Name:    "ollama",
				BaseURL: "http://localhost:11434/v1", Model: "llama3",
			},
			wantType: "",
		},
		{
			name: "gemini",
			cfg: providers.Config{
				Name: "gemini", Type: "gemini",
				BaseURL: "https://generativelanguage.googleapis.com/v1beta",
				APIKey:  "key", Model: "gemini-2.0-flash",
			},
			wantType: "gemini",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer p.Close()

			if p.Name() != tt.cfg.Name {
				t.Errorf("Name() = %q, want %q", p.Name(), tt.cfg.Name)
			}
			if p.Type() != tt.wantType {
				t.Errorf("Type() = %q, want %q", p.Type(), tt.wantType)
			}
		})
	}
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(providers.Config{
		Name: "mystery", Type: "anthropic",
		BaseURL: "https://example.com", Model: "m",
	})
	if err == nil || !strings.Contains(err.Error(), "unknown provider type") {
		t.Errorf("New() error = %v, want unknown provider type", err)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(providers.Config{Name: "broken", Type: "openai"})
	if err == nil {
		t.Error("New() error = nil, want config error")
	}
}

func TestBuildAll(t *testing.T) {
	configs := []providers.Config{
		{Name: "ollama", BaseURL: "http://localhost:11434/v1", Model: "llama3"},
		{Name: "gemini", Type: "gemini", BaseURL: "https://generativelanguage.googleapis.com/v1beta", APIKey: "key", Model: "gemini-2.0-flash"},
	}

	built, err := BuildAll(configs)
	if err != nil {
		t.Fatalf("BuildAll() error = %v", err)
	}
	defer closeAll(built)

	if len(built) != 2 {
		t.Fatalf("len(built) = %d, want 2", len(built))
	}
	for _, name := range []string{"ollama", "gemini"} {
		if _, ok := built[name]; !ok {
			t.Errorf("provider %q missing", name)
		}
	}
}

func TestBuildAll_DuplicateName(t *testing.T) {
	configs := []providers.Config{
		{Name: "ollama", BaseURL: "http://localhost:11434/v1", Model: "llama3"},
		{Name: "ollama", BaseURL: "http://localhost:11435/v1", Model: "llama3"},
	}

	_, err := BuildAll(configs)
	if err == nil || !strings.Contains(err.Error(), "duplicate provider name") {
		t.Errorf("BuildAll() error = %v, want duplicate provider name", err)
	}
}

func TestBuildAll_PropagatesBuildError(t *testing.T) {
	configs := []providers.Config{
		{Name: "ollama", BaseURL: "http://localhost:11434/v1", Model: "llama3"},
		{Name: "broken", Type: "gemini", BaseURL: "https://example.com", Model: "m"},
	}

	_, err := BuildAll(configs)
	if err == nil || !strings.Contains(err.Error(), `failed to build provider "broken"`) {
		t.Errorf("BuildAll() error = %v, want build failure for broken", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := providers.Config{Name: "x"}
	applyDefaults(&cfg)

	if cfg.Timeout == 0 || cfg.MaxRetries == 0 || cfg.MaxIdleConns == 0 || cfg.MaxIdleConnsPerHost == 0 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}
