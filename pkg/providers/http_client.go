package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"
)

// HTTPClient is the base HTTP layer embedded by concrete adapters. It
// provides connection pooling, retry with exponential backoff for transient
// failures, and normalization of HTTP failures into the typed errors of
// this package.
type HTTPClient struct {
	config Config
	client *http.Client
}

// NewHTTPClient builds the base client from a provider config.
func NewHTTPClient(config Config) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPClient{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
	}
}

// Config returns the provider configuration.
func (c *HTTPClient) Config() Config {
	return c.config
}

// Name returns the configured provider name.
func (c *HTTPClient) Name() string {
	return c.config.Name
}

// Type returns the configured adapter type.
func (c *HTTPClient) Type() string {
	return c.config.Type
}

// Do performs an HTTP request, retrying network errors and 5xx responses
// with exponential backoff up to MaxRetries. Authentication, rate-limit and
// bad-request responses are returned immediately as typed errors.
//
// On success the caller owns the response body.
func (c *HTTPClient) Do(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			slog.Debug("retrying provider request",
				"provider", c.config.Name,
				"attempt", attempt,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}
		if req.Header.Get("Content-Type") == "" && body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, &TimeoutError{Provider: c.config.Name, Timeout: c.config.Timeout}
			}
			slog.Warn("provider request failed, will retry",
				"provider", c.config.Name,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		errorBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, &AuthError{Provider: c.config.Name, Message: string(errorBody)}

		case http.StatusTooManyRequests:
			return nil, &RateLimitError{
				Provider:   c.config.Name,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    string(errorBody),
			}

		case http.StatusBadRequest:
			return nil, &ProviderError{
				Provider:   c.config.Name,
				StatusCode: resp.StatusCode,
				Message:    string(errorBody),
			}

		default:
			lastErr = &ProviderError{
				Provider:   c.config.Name,
				StatusCode: resp.StatusCode,
				Message:    string(errorBody),
			}
			slog.Warn("provider returned error status, will retry",
				"provider", c.config.Name,
				"status", resp.StatusCode,
				"attempt", attempt+1,
			)
		}
	}

	return nil, lastErr
}

// DoJSON performs a JSON request and decodes the response into respBody.
func (c *HTTPClient) DoJSON(ctx context.Context, method, url string, reqBody, respBody interface{}, headers map[string]string) error {
	var bodyBytes []byte
	var err error
	if reqBody != nil {
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := c.Do(ctx, method, url, bodyBytes, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ParseError{
			Provider: c.config.Name,
			Cause:    fmt.Errorf("failed to read response: %w", err),
		}
	}

	if respBody != nil && len(responseBytes) > 0 {
		if err := json.Unmarshal(responseBytes, respBody); err != nil {
			return &ParseError{
				Provider:    c.config.Name,
				RawResponse: string(responseBytes),
				Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
			}
		}
	}

	return nil
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// parseRetryAfter parses a Retry-After header in either delay-seconds or
// HTTP-date form.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}
