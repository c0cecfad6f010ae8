// Package ledger provides the historical data the fraud evaluators read:
// user accounts, the transaction ledger, and per-user IP/device baselines.
//
// Reads are concurrency-safe; the engine never writes during evaluation.
// Baselines grow via observation recording after a payment is allowed.
package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAccountNotFound = errors.New("account not found")
)

// Transaction statuses
const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
	StatusFailed    = "failed"
)

// Account is the user record the behavioral evaluator reads.
type Account struct {
	UserID     string    `json:"userId"`
	TrustScore float64   `json:"trustScore"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AgeDays returns the account age in whole days at the given instant.
func (a *Account) AgeDays(now time.Time) int {
	return int(now.Sub(a.CreatedAt).Hours() / 24)
}

// Transaction is a single payment observation in the ledger.
type Transaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Reader is the read side consumed during fraud evaluation.
// Implementations must be safe for concurrent reads.
type Reader interface {
	// FindAccount returns ErrAccountNotFound when the user does not exist.
	FindAccount(ctx context.Context, userID string) (*Account, error)

	// RecentTransactions returns the user's transactions created at or
	// after since, any status, newest first.
	RecentTransactions(ctx context.Context, userID string, since time.Time) ([]*Transaction, error)

	// CountTransactions counts the user's transactions created at or
	// after since, any status.
	CountTransactions(ctx context.Context, userID string, since time.Time) (int, error)

	// KnownIPs returns the user's historically observed IP addresses.
	KnownIPs(ctx context.Context, userID string) ([]string, error)

	// KnownDevices returns the user's historically observed device
	// fingerprints.
	KnownDevices(ctx context.Context, userID string) ([]string, error)
}

// Store adds the write side used to build accounts and baselines.
type Store interface {
	Reader

	PutAccount(ctx context.Context, account *Account) error
	RecordTransaction(ctx context.Context, tx *Transaction) error

	// ObserveIP and ObserveDevice are idempotent; recording a known
	// value is a no-op.
	ObserveIP(ctx context.Context, userID, ip string) error
	ObserveDevice(ctx context.Context, userID, fingerprint string) error
}

// CompletedSince filters transactions to completed ones at or after since.
func CompletedSince(txs []*Transaction, since time.Time) []*Transaction {
	var out []*Transaction
	for _, tx := range txs {
		if tx.Status == StatusCompleted && !tx.CreatedAt.Before(since) {
			out = append(out, tx)
		}
	}
	return out
}
