package review

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu    sync.RWMutex
	cases map[string][]*ReviewCase // transactionID → cases, oldest first
}

// NewMemoryStore creates an in-memory review store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cases: make(map[string][]*ReviewCase)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Append(ctx context.Context, rc *ReviewCase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *rc
	s.cases[rc.TransactionID] = append(s.cases[rc.TransactionID], &c)
	return nil
}

func (s *MemoryStore) ListByTransaction(ctx context.Context, transactionID string) ([]*ReviewCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.cases[transactionID]
	out := make([]*ReviewCase, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		c := *all[i]
		out = append(out, &c)
	}
	return out, nil
}
