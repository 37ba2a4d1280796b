// Package providers defines the provider-agnostic chat backend abstraction
// and the base HTTP plumbing shared by concrete adapters.
//
// A provider is an interchangeable LLM backend: it receives an ordered
// message list and produces a completion, synchronously or as a stream of
// chunks. Everything above this package works exclusively with the agnostic
// types; the adapters under providers/openai and providers/gemini translate
// to and from wire formats.
package providers

import "context"

// Provider is the contract all chat backend adapters implement.
//
// All methods accept a context for cancellation and timeout control;
// implementations must return promptly when the context is done.
type Provider interface {
	// SendCompletion sends the request and blocks until the full response
	// is available or an error occurs.
	SendCompletion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// StreamCompletion sends the request and returns a channel yielding
	// incremental chunks. The channel is closed when the stream ends.
	// A mid-stream failure is delivered in-band as the Err field of the
	// final chunk; the caller must drain the channel.
	StreamCompletion(ctx context.Context, req *CompletionRequest) (<-chan *StreamChunk, error)

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error

	// Name returns the configured provider name (the routing key), e.g.
	// "openai" or "ollama".
	Name() string

	// Type returns the adapter type, e.g. "openai" or "gemini".
	Type() string

	// Close releases underlying resources. The provider must not be used
	// afterwards.
	Close() error
}
