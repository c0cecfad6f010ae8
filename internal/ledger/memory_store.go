package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store for testing and
// single-node deployments without a database.
type MemoryStore struct {
	mu           sync.RWMutex
	accounts     map[string]*Account
	transactions map[string][]*Transaction // userID -> transactions
	ips          map[string]map[string]bool
	devices      map[string]map[string]bool
}

// NewMemoryStore creates a new in-memory ledger store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[string]*Account),
		transactions: make(map[string][]*Transaction),
		ips:          make(map[string]map[string]bool),
		devices:      make(map[string]map[string]bool),
	}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

// FindAccount retrieves an account by user ID
func (m *MemoryStore) FindAccount(ctx context.Context, userID string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, ok := m.accounts[userID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	copy := *acct
	return &copy, nil
}

// PutAccount creates or replaces an account
func (m *MemoryStore) PutAccount(ctx context.Context, account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	copy := *account
	m.accounts[account.UserID] = &copy
	return nil
}

// RecordTransaction appends a transaction to the user's ledger
func (m *MemoryStore) RecordTransaction(ctx context.Context, tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	copy := *tx
	m.transactions[tx.UserID] = append(m.transactions[tx.UserID], &copy)
	return nil
}

// RecentTransactions returns transactions created at or after since, newest first
func (m *MemoryStore) RecentTransactions(ctx context.Context, userID string, since time.Time) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Transaction
	for _, tx := range m.transactions[userID] {
		if !tx.CreatedAt.Before(since) {
			copy := *tx
			out = append(out, &copy)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// CountTransactions counts transactions created at or after since
func (m *MemoryStore) CountTransactions(ctx context.Context, userID string, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, tx := range m.transactions[userID] {
		if !tx.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// KnownIPs returns the user's observed IP addresses
func (m *MemoryStore) KnownIPs(ctx context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for ip := range m.ips[userID] {
		out = append(out, ip)
	}
	sort.Strings(out)
	return out, nil
}

// KnownDevices returns the user's observed device fingerprints
func (m *MemoryStore) KnownDevices(ctx context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for fp := range m.devices[userID] {
		out = append(out, fp)
	}
	sort.Strings(out)
	return out, nil
}

// ObserveIP records an IP address for the user (idempotent)
func (m *MemoryStore) ObserveIP(ctx context.Context, userID, ip string) error {
	if ip == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ips[userID] == nil {
		m.ips[userID] = make(map[string]bool)
	}
	m.ips[userID][ip] = true
	return nil
}

// ObserveDevice records a device fingerprint for the user (idempotent)
func (m *MemoryStore) ObserveDevice(ctx context.Context, userID, fingerprint string) error {
	if fingerprint == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.devices[userID] == nil {
		m.devices[userID] = make(map[string]bool)
	}
	m.devices[userID][fingerprint] = true
	return nil
}
