// Package router resolves a requested provider name to a chat backend.
//
// Resolution is a total function: a blank or unrecognized name silently
// falls back to the configured default so the caller can always obtain
// some backend. Selecting an invalid provider is deliberately not an error
// at this layer.
package router

import (
	"fmt"
	"log/slog"

	"hungrycoders/chatrelay/pkg/providers"
)

// Router maps provider names to backends with one designated default.
type Router struct {
	providers   map[string]providers.Provider
	defaultName string
}

// New creates a router over the given providers. defaultName must be a key
// of the map; it is the fallback for blank or unknown lookups.
func New(backends map[string]providers.Provider, defaultName string) (*Router, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("router requires at least one provider")
	}
	if _, ok := backends[defaultName]; !ok {
		return nil, fmt.Errorf("default provider %q is not registered", defaultName)
	}

	return &Router{providers: backends, defaultName: defaultName}, nil
}

// Resolve returns the backend for name. Lookup is case-sensitive; blank or
// unknown names resolve to the default backend.
func (r *Router) Resolve(name string) providers.Provider {
	if name == "" {
		return r.providers[r.defaultName]
	}

	p, ok := r.providers[name]
	if !ok {
		slog.Info("unknown provider requested, using default",
			"requested", name,
			"default", r.defaultName,
		)
		return r.providers[r.defaultName]
	}
	return p
}

// DefaultName returns the name of the fallback provider.
func (r *Router) DefaultName() string {
	return r.defaultName
}

// Names returns all registered provider names, in no particular order.
func (r *Router) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// Close closes every registered backend, returning the first error.
func (r *Router) Close() error {
	var firstErr error
	for name, p := range r.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close provider %q: %w", name, err)
		}
	}
	return firstErr
}
