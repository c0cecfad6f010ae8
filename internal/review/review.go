// Package review implements the manual review workflow for flagged
// payments. Review cases are an append-only audit trail: a transaction may
// accumulate several cases, and only an approve or deny decision removes it
// from the pending queue. An escalation keeps the transaction pending for a
// more senior reviewer.
package review

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidDecision means the decision is not approve, deny, or escalate.
var ErrInvalidDecision = errors.New("invalid review decision")

// Decision is a reviewer's call on a flagged transaction.
type Decision string

const (
	DecisionApprove  Decision = "approve"
	DecisionDeny     Decision = "deny"
	DecisionEscalate Decision = "escalate"
)

// Valid reports whether the decision is one of the accepted values.
func (d Decision) Valid() bool {
	switch d {
	case DecisionApprove, DecisionDeny, DecisionEscalate:
		return true
	}
	return false
}

// Terminal reports whether the decision closes the review. Escalations keep
// the transaction in the pending queue.
func (d Decision) Terminal() bool {
	return d == DecisionApprove || d == DecisionDeny
}

// ReviewCase records one review action on a transaction.
type ReviewCase struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transactionId"`
	Decision      Decision  `json:"decision"`
	ReviewerID    string    `json:"reviewerId"`
	Reason        string    `json:"reason,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Store persists review cases. Cases are never updated or deleted.
type Store interface {
	Append(ctx context.Context, rc *ReviewCase) error

	// ListByTransaction returns the transaction's cases, newest first.
	ListByTransaction(ctx context.Context, transactionID string) ([]*ReviewCase, error)
}
