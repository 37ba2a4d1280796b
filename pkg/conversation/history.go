package conversation

import (
	"sync"
	"time"

	"hungrycoders/chatrelay/pkg/tokenizer"
)

// History is the ordered message log for a single conversation.
//
// All methods are safe for concurrent use. A single mutex serializes
// mutation per conversation; histories for different conversation IDs never
// contend with each other. Callers must not hold History locks across
// provider calls; the orchestrator appends, releases, calls the provider,
// then appends again.
type History struct {
	id        int64
	estimator tokenizer.Estimator

	mu       sync.Mutex
	messages []TokenizedMessage

	// totalInputTokens is the running sum of estimated token counts for
	// every appended message. Monotonically non-decreasing; updated
	// synchronously with each append.
	totalInputTokens int

	// totalResponseTokens is the running sum of usage totals reported by
	// providers for this conversation. Independent of totalInputTokens.
	totalResponseTokens int

	createdAt time.Time
	updatedAt time.Time
}

// NewHistory creates an empty history for the given conversation ID.
func NewHistory(id int64, estimator tokenizer.Estimator) *History {
	now := time.Now()
	return &History{
		id:        id,
		estimator: estimator,
		createdAt: now,
		updatedAt: now,
	}
}

// ID returns the conversation identifier.
func (h *History) ID() int64 {
	return h.id
}

// AddMessage estimates the token cost of text, appends it to the log, and
// updates the input-token running total. Empty text is permitted and costs
// its own (possibly zero) token count.
func (h *History) AddMessage(role Role, text string) {
	tokens := h.estimator.CountTokens(text)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, TokenizedMessage{
		Message:    Message{Role: role, Content: text},
		TokenCount: tokens,
	})
	h.totalInputTokens += tokens
	h.updatedAt = time.Now()
}

// AddResponseTokens records provider-reported usage for this conversation.
// Negative values are ignored.
func (h *History) AddResponseTokens(n int) {
	if n <= 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.totalResponseTokens += n
}

// RecentMessages returns the newest messages whose combined estimated cost
// fits within maxTokens, in chronological order.
//
// The walk starts at the most recent message and moves backwards, greedily
// including each message while the running total stays within budget. The
// scan terminates at the first message whose inclusion would overflow;
// earlier messages are not considered even if they would individually fit.
// The result is therefore always a contiguous suffix of the log.
//
// This recency-over-completeness policy loses old context wholesale once a
// conversation outgrows the budget. That is an accepted tradeoff versus
// summarization-based compaction, which is out of scope.
//
// An empty history or a non-positive budget yields an empty slice, as does
// a newest message that alone exceeds the budget (messages are never
// partially truncated).
func (h *History) RecentMessages(maxTokens int) []Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.messages) == 0 || maxTokens <= 0 {
		return nil
	}

	start := len(h.messages)
	running := 0
	for i := len(h.messages) - 1; i >= 0; i-- {
		tm := h.messages[i]
		if running+tm.TokenCount > maxTokens {
			break
		}
		running += tm.TokenCount
		start = i
	}

	if start == len(h.messages) {
		return nil
	}

	out := make([]Message, 0, len(h.messages)-start)
	for _, tm := range h.messages[start:] {
		out = append(out, tm.Message)
	}
	return out
}

// AllMessages returns a copy of the full tokenized log. Mutating the
// returned slice never affects internal state.
func (h *History) AllMessages() []TokenizedMessage {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]TokenizedMessage, len(h.messages))
	copy(out, h.messages)
	return out
}

// MessageCount returns the number of messages in the log.
func (h *History) MessageCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// TotalInputTokens returns the running sum of estimated token counts for
// all appended messages.
func (h *History) TotalInputTokens() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.totalInputTokens
}

// TotalResponseTokens returns the running sum of provider-reported usage.
func (h *History) TotalResponseTokens() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.totalResponseTokens
}

// CreatedAt returns when the conversation was created.
func (h *History) CreatedAt() time.Time {
	return h.createdAt
}

// UpdatedAt returns when a message was last appended.
func (h *History) UpdatedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.updatedAt
}
