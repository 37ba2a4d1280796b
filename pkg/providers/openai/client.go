// Package openai implements the chat backend adapter for the OpenAI chat
// completions API and every backend that speaks the same wire format
// (Groq, Mistral, Ollama, vLLM, LM Studio, ...).
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"hungrycoders/chatrelay/pkg/providers"
)

// Client is an OpenAI-compatible provider adapter.
type Client struct {
	*providers.HTTPClient
}

// New creates an adapter for an OpenAI-compatible backend.
func New(config providers.Config) (*Client, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{Provider: "openai", Field: "name", Message: "provider name is required"}
	}
	if config.BaseURL == "" {
		return nil, &providers.ConfigError{Provider: config.Name, Field: "base_url", Message: "base URL is required"}
	}
	if config.Model == "" {
		return nil, &providers.ConfigError{Provider: config.Name, Field: "model", Message: "default model is required"}
	}

	// Local backends (Ollama and friends) accept any bearer token, so an
	// empty key is allowed.
	return &Client{HTTPClient: providers.NewHTTPClient(config)}, nil
}

// completionsURL joins the base URL with the chat completions path.
func (c *Client) completionsURL() string {
	return strings.TrimSuffix(c.Config().BaseURL, "/") + "/chat/completions"
}

// headers builds the request headers for this backend.
func (c *Client) headers() map[string]string {
	h := map[string]string{"Content-Type": "application/json"}
	if key := c.Config().APIKey; key != "" {
		h["Authorization"] = "Bearer " + key
	}
	return h
}

// SendCompletion implements providers.Provider.
func (c *Client) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	wireReq := transformRequest(c.Config(), req)
	wireReq.Stream = false

	var wireResp wireResponse
	if err := c.DoJSON(ctx, "POST", c.completionsURL(), wireReq, &wireResp, c.headers()); err != nil {
		return nil, err
	}

	resp, err := transformResponse(&wireResp)
	if err != nil {
		return nil, &providers.ParseError{Provider: c.Name(), Cause: err}
	}
	return resp, nil
}

// StreamCompletion implements providers.Provider. Chunks are produced by a
// goroutine reading the backend's SSE stream; the channel closes when the
// stream ends or the context is cancelled.
func (c *Client) StreamCompletion(ctx context.Context, req *providers.CompletionRequest) (<-chan *providers.StreamChunk, error) {
	wireReq := transformRequest(c.Config(), req)
	wireReq.Stream = true

	reader, err := newStreamReader(ctx, c, wireReq)
	if err != nil {
		return nil, err
	}

	chunks := make(chan *providers.StreamChunk)
	go func() {
		defer close(chunks)
		defer reader.Close()

		for {
			chunk, err := reader.Read(ctx)
			if err != nil {
				if isEOF(err) {
					return
				}
				select {
				case chunks <- &providers.StreamChunk{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				slog.Debug("stream consumer gone, aborting",
					"provider", c.Name(),
				)
				return
			}
		}
	}()

	return chunks, nil
}

// HealthCheck sends a minimal single-token completion to verify the backend
// responds.
func (c *Client) HealthCheck(ctx context.Context) error {
	req := &providers.CompletionRequest{
		Messages:  []providers.Message{{Role: "user", Content: "ping"}},
		MaxTokens: 1,
	}
	if _, err := c.SendCompletion(ctx, req); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
