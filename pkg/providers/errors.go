package providers

import (
	"fmt"
	"time"
)

// ProviderError is a general backend error carrying the provider name and
// HTTP status code when applicable.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q error: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// AuthError is returned when the backend rejects the API key (401/403).
type AuthError struct {
	Provider string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("provider %q authentication failed: %s", e.Provider, e.Message)
}

// RateLimitError is returned on HTTP 429, with the Retry-After hint when
// the backend supplied one.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %q rate limit exceeded (retry after %s): %s",
			e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("provider %q rate limit exceeded: %s", e.Provider, e.Message)
}

// TimeoutError is returned when a request exceeds the configured timeout.
type TimeoutError struct {
	Provider string
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %q request timeout after %s", e.Provider, e.Timeout)
}

// ParseError is returned when the backend responds with something the
// adapter cannot decode.
type ParseError struct {
	Provider    string
	RawResponse string
	Cause       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("provider %q response parse error: %v", e.Provider, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// StreamError is a failure that occurred mid-stream; it is delivered
// in-band through the chunk channel.
type StreamError struct {
	Provider string
	Message  string
	Cause    error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("provider %q stream error: %s", e.Provider, e.Message)
}

func (e *StreamError) Unwrap() error {
	return e.Cause
}

// ConfigError reports an invalid provider configuration field.
type ConfigError struct {
	Provider string
	Field    string
	Message  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q config error: field %q: %s", e.Provider, e.Field, e.Message)
}
