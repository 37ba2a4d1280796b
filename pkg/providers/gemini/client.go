// Package gemini implements the chat backend adapter for the Google Gemini
// generateContent API.
package gemini

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"hungrycoders/chatrelay/pkg/providers"
)

// Client is a Gemini provider adapter.
type Client struct {
	*providers.HTTPClient
}

// New creates a Gemini adapter.
func New(config providers.Config) (*Client, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{Provider: "gemini", Field: "name", Message: "provider name is required"}
	}
	if config.BaseURL == "" {
		return nil, &providers.ConfigError{Provider: config.Name, Field: "base_url", Message: "base URL is required"}
	}
	if config.APIKey == "" {
		return nil, &providers.ConfigError{Provider: config.Name, Field: "api_key", Message: "API key is required"}
	}
	if config.Model == "" {
		return nil, &providers.ConfigError{Provider: config.Name, Field: "model", Message: "default model is required"}
	}

	return &Client{HTTPClient: providers.NewHTTPClient(config)}, nil
}

// endpointURL builds the model-scoped method URL, e.g.
// {base}/models/gemini-2.0-flash:generateContent.
func (c *Client) endpointURL(model, method string) string {
	if model == "" {
		model = c.Config().Model
	}
	base := strings.TrimSuffix(c.Config().BaseURL, "/")
	return fmt.Sprintf("%s/models/%s:%s", base, model, method)
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Content-Type":   "application/json",
		"x-goog-api-key": c.Config().APIKey,
	}
}

// SendCompletion implements providers.Provider.
func (c *Client) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	wireReq := transformRequest(c.Config(), req)

	var wireResp wireResponse
	url := c.endpointURL(req.Model, "generateContent")
	if err := c.DoJSON(ctx, "POST", url, wireReq, &wireResp, c.headers()); err != nil {
		return nil, err
	}

	resp, err := transformResponse(req.Model, c.Config().Model, &wireResp)
	if err != nil {
		return nil, &providers.ParseError{Provider: c.Name(), Cause: err}
	}
	return resp, nil
}

// StreamCompletion implements providers.Provider. Gemini streams SSE frames
// from the streamGenerateContent method; each frame carries a candidate
// delta and, on the final frame, usage metadata.
func (c *Client) StreamCompletion(ctx context.Context, req *providers.CompletionRequest) (<-chan *providers.StreamChunk, error) {
	wireReq := transformRequest(c.Config(), req)

	bodyBytes, err := json.Marshal(wireReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.endpointURL(req.Model, "streamGenerateContent") + "?alt=sse"
	resp, err := c.Do(ctx, "POST", url, bodyBytes, c.headers())
	if err != nil {
		return nil, err
	}

	chunks := make(chan *providers.StreamChunk)
	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					c.emit(ctx, chunks, &providers.StreamChunk{Err: &providers.StreamError{
						Provider: c.Name(),
						Message:  "failed to read stream",
						Cause:    err,
					}})
				}
				return
			}

			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")

			var wireChunk wireResponse
			if err := json.Unmarshal([]byte(data), &wireChunk); err != nil {
				c.emit(ctx, chunks, &providers.StreamChunk{Err: &providers.ParseError{
					Provider:    c.Name(),
					RawResponse: data,
					Cause:       fmt.Errorf("failed to parse stream chunk: %w", err),
				}})
				return
			}

			if !c.emit(ctx, chunks, transformStreamChunk(&wireChunk)) {
				return
			}
		}
	}()

	return chunks, nil
}

// emit delivers a chunk unless the consumer is gone. Reports delivery.
func (c *Client) emit(ctx context.Context, chunks chan<- *providers.StreamChunk, chunk *providers.StreamChunk) bool {
	select {
	case chunks <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// HealthCheck sends a minimal generation request.
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

var _ io.Closer = (*Client)(nil)
