package conversation

import (
	"sync"

	"hungrycoders/chatrelay/pkg/tokenizer"
)

// Store owns the mapping from conversation ID to History.
//
// It is safe for concurrent use by any number of in-flight requests. The
// store-level lock only guards the map itself; per-conversation mutation is
// serialized by each History's own mutex, so requests against different
// conversation IDs do not block each other.
//
// The store is an explicitly injected dependency, not ambient state:
// everything that needs conversation memory receives a *Store handle.
type Store struct {
	estimator tokenizer.Estimator

	mu            sync.RWMutex
	conversations map[int64]*History
}

// NewStore creates an empty store whose histories use the given estimator.
func NewStore(estimator tokenizer.Estimator) *Store {
	return &Store{
		estimator:     estimator,
		conversations: make(map[int64]*History),
	}
}

// GetOrCreate returns the history for id, creating it lazily on first
// reference. Creation is first-reference-wins: concurrent callers racing on
// an unseen id all receive the same History instance.
func (s *Store) GetOrCreate(id int64) *History {
	s.mu.RLock()
	h, ok := s.conversations[id]
	s.mu.RUnlock()
	if ok {
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check under the write lock: another goroutine may have won the race.
	if h, ok := s.conversations[id]; ok {
		return h
	}

	h = NewHistory(id, s.estimator)
	s.conversations[id] = h
	return h
}

// Get returns the history for id, or nil if the conversation does not exist.
// Unlike GetOrCreate it never materializes state.
func (s *Store) Get(id int64) *History {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversations[id]
}

// GenerateID produces an ID one higher than any currently registered, or 1
// for an empty store.
//
// This favors liveness over global uniqueness: if the maximum-ID
// conversation is cleared, a later GenerateID can hand out an ID that was
// used before the clear. Under normal monotonically increasing usage within
// a single process this never collides; the limitation is documented rather
// than hardened.
func (s *Store) GenerateID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var max int64
	for id := range s.conversations {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// Clear removes the conversation. A subsequent GetOrCreate with the same ID
// starts a fresh history with no memory of the removed one. Clearing an
// unknown ID is a no-op.
func (s *Store) Clear(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
}

// Len returns the number of live conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// IDs returns the IDs of all live conversations, in no particular order.
func (s *Store) IDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.conversations))
	for id := range s.conversations {
		ids = append(ids, id)
	}
	return ids
}
