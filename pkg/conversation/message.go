// Package conversation implements per-conversation message history with
// token accounting and sliding-window retrieval, plus the store that owns
// all conversation state for the process.
//
// LLM backends are stateless: every request must replay whatever prior
// context the model should see. This package decides what gets replayed.
// Each appended message is tagged with its estimated token cost at insertion
// time, and retrieval walks backwards from the newest message collecting a
// contiguous suffix that fits a token budget.
//
// Conversations live in memory for the process lifetime. There is no
// persistence and no cross-instance sharing; both are deliberate scope
// limits of this service.
package conversation

// Role identifies the sender of a message.
type Role string

const (
	// RoleUser marks a message written by the human.
	RoleUser Role = "user"

	// RoleAssistant marks a message produced by the model.
	RoleAssistant Role = "assistant"
)

// Message is a role-tagged unit of conversation. Immutable once created.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TokenizedMessage pairs a Message with its estimated token count.
//
// The count is computed once when the message is appended and cached here.
// It is never recomputed, even if the estimator implementation changes,
// so running totals stay consistent with the per-message counts that
// produced them.
type TokenizedMessage struct {
	Message    Message `json:"message"`
	TokenCount int     `json:"token_count"`
}
