// Package usage records per-request token usage for operational audit.
//
// Records are an append-only log of what each request cost: which provider
// and model served it, the token counts the provider reported, latency and
// outcome. This is operational data, not conversation memory; clearing a
// conversation does not touch its usage records, and conversations
// themselves are never persisted.
package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is the audit entry for one chat request.
type Record struct {
	// ID is a UUID assigned at creation.
	ID string `json:"id"`

	// RequestID correlates the record with request-scoped logs.
	RequestID string `json:"request_id"`

	// ConversationID is the conversation the request belonged to.
	ConversationID int64 `json:"conversation_id"`

	// Provider and Model identify the backend that served the request.
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// Token counts as reported by the provider. Zero when unreported.
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// LatencyMS is the provider round-trip time in milliseconds.
	LatencyMS int64 `json:"latency_ms"`

	// Status is the request outcome: "ok", "empty_response", "error",
	// "cancelled".
	Status string `json:"status"`

	// Streamed marks streaming requests.
	Streamed bool `json:"streamed"`

	// CreatedAt is when the record was written.
	CreatedAt time.Time `json:"created_at"`
}

// NewRecord creates a record with a fresh UUID and timestamp.
func NewRecord() *Record {
	return &Record{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

// Query filters record listing.
type Query struct {
	// ConversationID filters by conversation; zero means all.
	ConversationID int64

	// Provider filters by provider name; empty means all.
	Provider string

	// Since filters records created at or after this time; zero means all.
	Since time.Time

	// Limit caps the number of returned records; zero means no cap.
	Limit int
}

// Storage persists usage records. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Insert appends a record.
	Insert(ctx context.Context, rec *Record) error

	// List returns records matching q, newest first.
	List(ctx context.Context, q Query) ([]*Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)

	// DeleteBefore removes records created before cutoff, returning how
	// many were removed.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases storage resources.
	Close() error
}
