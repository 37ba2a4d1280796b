// Package chattest provides test doubles shared by package tests.
package chattest

import (
	"context"
	"fmt"
	"sync"

	"hungrycoders/chatrelay/pkg/providers"
)

// MockProvider is a scriptable Provider implementation for tests.
type MockProvider struct {
	ProviderName string
	ProviderType string

	// Response fields control SendCompletion output.
	Content string
	Usage   providers.TokenUsage
	Err     error

	// Chunks controls StreamCompletion output; each entry is delivered in
	// order before the channel closes.
	Chunks []*providers.StreamChunk

	// BlockUntil, when non-nil, makes SendCompletion wait for the channel
	// to close (or the context to end) before responding.
	BlockUntil chan struct{}

	mu       sync.Mutex
	requests []*providers.CompletionRequest
	closed   bool
}

// NewMockProvider creates a mock that echoes content.
func NewMockProvider(name, content string) *MockProvider {
	return &MockProvider{
		ProviderName: name,
		ProviderType: "mock",
		Content:      content,
	}
}

// SendCompletion records the request and returns the scripted response.
func (m *MockProvider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	m.record(req)

	if m.BlockUntil != nil {
		select {
		case <-m.BlockUntil:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.Err != nil {
		return nil, m.Err
	}
	return &providers.CompletionResponse{
		Model:        "mock-model",
		Content:      m.Content,
		FinishReason: "stop",
		Usage:        m.Usage,
	}, nil
}

// StreamCompletion records the request and replays the scripted chunks.
func (m *MockProvider) StreamCompletion(ctx context.Context, req *providers.CompletionRequest) (<-chan *providers.StreamChunk, error) {
	m.record(req)

	if m.Err != nil {
		return nil, m.Err
	}

	out := make(chan *providers.StreamChunk)
	go func() {
		defer close(out)
		for _, chunk := range m.Chunks {
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// HealthCheck always succeeds unless an error is scripted.
func (m *MockProvider) HealthCheck(ctx context.Context) error {
	return m.Err
}

// Name returns the mock's provider name.
func (m *MockProvider) Name() string {
	return m.ProviderName
}

// Type returns "mock".
func (m *MockProvider) Type() string {
	return m.ProviderType
}

// Close marks the provider closed.
func (m *MockProvider) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("provider %q already closed", m.ProviderName)
	}
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockProvider) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Requests returns a copy of every request received.
func (m *MockProvider) Requests() []*providers.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*providers.CompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent request, or nil.
func (m *MockProvider) LastRequest() *providers.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

func (m *MockProvider) record(req *providers.CompletionRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
}
