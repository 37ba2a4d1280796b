package usage

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage keeps records in process memory. It backs tests and
// deployments that do not configure a database path.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []*Record
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Insert appends a copy of rec.
func (s *MemoryStorage) Insert(_ context.Context, rec *Record) error {
	clone := *rec
	s.mu.Lock()
	s.records = append(s.records, &clone)
	s.mu.Unlock()
	return nil
}

// List returns matching records, newest first.
func (s *MemoryStorage) List(_ context.Context, q Query) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Record
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if !matches(rec, q) {
			continue
		}
		clone := *rec
		out = append(out, &clone)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *MemoryStorage) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// DeleteBefore removes records created before cutoff.
func (s *MemoryStorage) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var removed int64
	for _, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
	return removed, nil
}

// Close is a no-op.
func (s *MemoryStorage) Close() error {
	return nil
}

func matches(rec *Record, q Query) bool {
	if q.ConversationID != 0 && rec.ConversationID != q.ConversationID {
		return false
	}
	if q.Provider != "" && rec.Provider != q.Provider {
		return false
	}
	if !q.Since.IsZero() && rec.CreatedAt.Before(q.Since) {
		return false
	}
	return true
}
