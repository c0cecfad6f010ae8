package alerts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chaingive/fraudguard/internal/pagination"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu     sync.RWMutex
	alerts map[string]*FraudAlert // id → alert
	order  []string               // insertion order
}

// NewMemoryStore creates an in-memory alert store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{alerts: make(map[string]*FraudAlert)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Insert(ctx context.Context, alert *FraudAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := *alert
	s.alerts[alert.ID] = &a
	s.order = append(s.order, alert.ID)
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*FraudAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alert, ok := s.alerts[id]
	if !ok {
		return nil, ErrAlertNotFound
	}
	a := *alert
	return &a, nil
}

func (s *MemoryStore) LatestByTransaction(ctx context.Context, userID, transactionID string) (*FraudAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.order) - 1; i >= 0; i-- {
		alert := s.alerts[s.order[i]]
		if alert.UserID == userID && alert.TransactionID == transactionID {
			a := *alert
			return &a, nil
		}
	}
	return nil, ErrAlertNotFound
}

func (s *MemoryStore) Update(ctx context.Context, alert *FraudAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.alerts[alert.ID]
	if !ok {
		return ErrAlertNotFound
	}
	a := *alert
	a.Acknowledged = a.Acknowledged || existing.Acknowledged
	a.FalsePositive = a.FalsePositive || existing.FalsePositive
	if existing.Status == StatusResolved {
		a.Status = StatusResolved
	}
	if existing.ResolvedAt != nil {
		a.ResolvedAt = existing.ResolvedAt
	}
	s.alerts[alert.ID] = &a
	return nil
}

func (s *MemoryStore) SetAcknowledged(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.alerts[id]
	if !ok {
		return ErrAlertNotFound
	}
	alert.Acknowledged = true
	return nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string, acknowledged *bool, before *pagination.Cursor, limit int) ([]*FraudAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*FraudAlert
	for _, id := range s.order {
		alert := s.alerts[id]
		if alert.UserID != userID {
			continue
		}
		if acknowledged != nil && alert.Acknowledged != *acknowledged {
			continue
		}
		if before != nil {
			if alert.CreatedAt.After(before.CreatedAt) {
				continue
			}
			if alert.CreatedAt.Equal(before.CreatedAt) && alert.ID >= before.ID {
				continue
			}
		}
		a := *alert
		out = append(out, &a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, alert := range s.alerts {
		if alert.UserID == userID && !alert.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{}
	for _, alert := range s.alerts {
		if alert.CreatedAt.Before(since) {
			continue
		}
		stats.Total++
		if alert.FalsePositive {
			stats.FalsePositives++
		}
	}
	if stats.Total > 0 {
		stats.FalsePositiveRate = float64(stats.FalsePositives) / float64(stats.Total)
	}
	return stats, nil
}
