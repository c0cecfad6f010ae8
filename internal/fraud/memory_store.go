package fraud

import (
	"context"
	"sync"
	"time"

	"github.com/chaingive/fraudguard/internal/alerts"
)

// alertWriter is the slice of the alert store the auditor needs.
type alertWriter interface {
	Insert(ctx context.Context, alert *alerts.FraudAlert) error
}

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu     sync.RWMutex
	checks []*CheckResult
	alerts alertWriter
}

// NewMemoryStore creates an in-memory check store. Alerts raised by
// SaveDecision are written through to the given alert store.
func NewMemoryStore(alertStore alertWriter) *MemoryStore {
	return &MemoryStore{alerts: alertStore}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) SaveDecision(ctx context.Context, check *CheckResult, alert *alerts.FraudAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *check
	c.Reasons = append([]string(nil), check.Reasons...)
	s.checks = append(s.checks, &c)

	if alert != nil {
		if err := s.alerts.Insert(ctx, alert); err != nil {
			// Both writes or neither
			s.checks = s.checks[:len(s.checks)-1]
			return err
		}
	}
	return nil
}

func (s *MemoryStore) FindByTransaction(ctx context.Context, transactionID string) (*CheckResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.checks) - 1; i >= 0; i-- {
		if s.checks[i].TransactionID == transactionID {
			return copyCheck(s.checks[i]), nil
		}
	}
	return nil, ErrCheckNotFound
}

func (s *MemoryStore) ListFlagged(ctx context.Context, minRisk RiskLevel) ([]*CheckResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Walk newest first, keeping only the latest check per transaction.
	seen := make(map[string]bool)
	var out []*CheckResult
	for i := len(s.checks) - 1; i >= 0; i-- {
		c := s.checks[i]
		if seen[c.TransactionID] {
			continue
		}
		seen[c.TransactionID] = true
		if c.Risk >= minRisk {
			out = append(out, copyCheck(c))
		}
	}
	return out, nil
}

func (s *MemoryStore) Statistics(ctx context.Context, since time.Time) (*Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Statistics{
		ByRiskLevel: make(map[string]int),
		ByAction:    make(map[string]int),
	}
	for _, c := range s.checks {
		if c.CheckedAt.Before(since) {
			continue
		}
		stats.TotalChecks++
		if c.Fraudulent {
			stats.Fraudulent++
		}
		stats.ByRiskLevel[c.Risk.String()]++
		stats.ByAction[string(c.Action)]++
	}
	return stats, nil
}

func copyCheck(c *CheckResult) *CheckResult {
	out := *c
	out.Reasons = append([]string(nil), c.Reasons...)
	return &out
}
