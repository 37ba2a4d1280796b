package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hungrycoders/chatrelay/pkg/providers"
)

func testConfig(url string) providers.Config {
	return providers.Config{
		Name:       "gemini",
		Type:       "gemini",
		BaseURL:    url,
		APIKey:     "test-key",
		Model:      "gemini-2.0-flash",
		Timeout:    5 * time.Second,
		MaxRetries: 0,
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*providers.Config)
	}{
		{"missing name", func(c *providers.Config) { c.Name = "" }},
		{"missing base url", func(c *providers.Config) { c.BaseURL = "" }},
		{"missing api key", func(c *providers.Config) { c.APIKey = "" }},
		{"missing model", func(c *providers.Config) { c.Model = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("https://generativelanguage.googleapis.com/v1beta")
			tt.mutate(&cfg)

			_, err := New(cfg)
			var cfgErr *providers.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("New() error = %v, want *ConfigError", err)
			}
		})
	}
}

func TestSendCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if want := "/models/gemini-2.0-flash:generateContent"; r.URL.Path != want {
			t.Errorf("path = %s, want %s", r.URL.Path, want)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("x-goog-api-key = %q, want test-key", got)
		}

		var req wireRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Contents) != 2 {
			t.Fatalf("contents = %d, want 2", len(req.Contents))
		}
		if req.Contents[0].Role != "model" {
			t.Errorf("assistant role = %q, want model", req.Contents[0].Role)
		}

		json.NewEncoder(w).Encode(wireResponse{
			Candidates: []wireCandidate{{
				Content:      wireContent{Role: "model", Parts: []wirePart{{Text: "hi "}, {Text: "there"}}},
				FinishReason: "STOP",
			}},
			UsageMetadata: &wireUsageMetadata{PromptTokenCount: 7, CandidatesTokenCount: 3, TotalTokenCount: 10},
		})
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	resp, err := client.SendCompletion(context.Background(), &providers.CompletionRequest{
		Messages: []providers.Message{
			{Role: "assistant", Content: "earlier reply"},
			{Role: "user", Content: "hello"},
		},
	})
	if err != nil {
		t.Fatalf("SendCompletion() error = %v", err)
	}

	if resp.Content != "hi there" {
		t.Errorf("Content = %q, want %q", resp.Content, "hi there")
	}
	if resp.FinishReason != "stop" {
		t.Errorf("FinishReason = %q, want stop", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 10 {
		t.Errorf("TotalTokens = %d, want 10", resp.Usage.TotalTokens)
	}
	if resp.Model != "gemini-2.0-flash" {
		t.Errorf("Model = %q, want config default", resp.Model)
	}
}

func TestSendCompletion_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wireResponse{})
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	_, err = client.SendCompletion(context.Background(), &providers.CompletionRequest{
		Messages: []providers.Message{{Role: "user", Content: "hi"}},
	})
	var parseErr *providers.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("SendCompletion() error = %v, want *ParseError", err)
	}
}

func TestStreamCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if want := "/models/gemini-2.0-flash:streamGenerateContent"; r.URL.Path != want {
			t.Errorf("path = %s, want %s", r.URL.Path, want)
		}
		if got := r.URL.Query().Get("alt"); got != "sse" {
			t.Errorf("alt = %q, want sse", got)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, text := range []string{"Once ", "upon ", "a time"} {
			chunk := wireResponse{
				Candidates: []wireCandidate{{Content: wireContent{Parts: []wirePart{{Text: text}}}}},
			}
			data, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
		final := wireResponse{
			Candidates:    []wireCandidate{{FinishReason: "STOP"}},
			UsageMetadata: &wireUsageMetadata{PromptTokenCount: 5, CandidatesTokenCount: 6, TotalTokenCount: 11},
		}
		data, _ := json.Marshal(final)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	chunks, err := client.StreamCompletion(context.Background(), &providers.CompletionRequest{
		Messages: []providers.Message{{Role: "user", Content: "tell me a story"}},
	})
	if err != nil {
		t.Fatalf("StreamCompletion() error = %v", err)
	}

	var sb strings.Builder
	var usage *providers.TokenUsage
	var finish string
	for chunk := range chunks {
		if chunk.Err != nil {
			t.Fatalf("chunk error: %v", chunk.Err)
		}
		sb.WriteString(chunk.Delta)
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
		if chunk.FinishReason != "" {
			finish = chunk.FinishReason
		}
	}

	if sb.String() != "Once upon a time" {
		t.Errorf("accumulated = %q", sb.String())
	}
	if usage == nil || usage.TotalTokens != 11 {
		t.Errorf("usage = %+v, want TotalTokens 11", usage)
	}
	if finish != "stop" {
		t.Errorf("finish = %q, want stop", finish)
	}
}

func TestStreamCompletion_MalformedChunk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {broken\n\n")
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	chunks, err := client.StreamCompletion(context.Background(), &providers.CompletionRequest{
		Messages: []providers.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("StreamCompletion() error = %v", err)
	}

	var streamErr error
	for chunk := range chunks {
		if chunk.Err != nil {
			streamErr = chunk.Err
		}
	}

	var parseErr *providers.ParseError
	if !errors.As(streamErr, &parseErr) {
		t.Fatalf("stream error = %v, want *ParseError", streamErr)
	}
}

func TestSendCompletion_RequestModelOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if want := "/models/gemini-2.5-pro:generateContent"; r.URL.Path != want {
			t.Errorf("path = %s, want %s", r.URL.Path, want)
		}
		json.NewEncoder(w).Encode(wireResponse{
			Candidates: []wireCandidate{{Content: wireContent{Parts: []wirePart{{Text: "ok"}}}}},
		})
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	resp, err := client.SendCompletion(context.Background(), &providers.CompletionRequest{
		Model:    "gemini-2.5-pro",
		Messages: []providers.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("SendCompletion() error = %v", err)
	}
	if resp.Model != "gemini-2.5-pro" {
		t.Errorf("Model = %q, want gemini-2.5-pro", resp.Model)
	}
}

func TestTransformRequest_GenerationConfig(t *testing.T) {
	cfg := providers.Config{Model: "gemini-2.0-flash", Temperature: 0.5, MaxTokens: 128}

	got := transformRequest(cfg, &providers.CompletionRequest{
		Messages: []providers.Message{{Role: "user", Content: "hi"}},
	})
	if got.GenerationConfig == nil {
		t.Fatal("GenerationConfig = nil, want defaults applied")
	}
	if got.GenerationConfig.Temperature != 0.5 || got.GenerationConfig.MaxOutputTokens != 128 {
		t.Errorf("GenerationConfig = %+v", got.GenerationConfig)
	}

	got = transformRequest(providers.Config{Model: "gemini-2.0-flash"}, &providers.CompletionRequest{
		Messages: []providers.Message{{Role: "user", Content: "hi"}},
	})
	if got.GenerationConfig != nil {
		t.Errorf("GenerationConfig = %+v, want nil when no limits configured", got.GenerationConfig)
	}
}
