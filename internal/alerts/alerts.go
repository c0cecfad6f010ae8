// Package alerts manages fraud alerts: the persisted, user-facing record of
// a medium or high risk payment. Alerts are never deleted, only
// status-transitioned, and the false-positive flag is a one-way latch.
package alerts

import (
	"context"
	"errors"
	"time"

	"github.com/chaingive/fraudguard/internal/pagination"
)

// ErrAlertNotFound means no alert matches the lookup, or the alert does not
// belong to the requesting user.
var ErrAlertNotFound = errors.New("fraud alert not found")

// Status is the lifecycle state of an alert.
type Status string

const (
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
)

// FraudAlert is a persisted notification derived from a flagged check.
type FraudAlert struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	TransactionID   string     `json:"transactionId"`
	RiskLevel       string     `json:"riskLevel"`
	Message         string     `json:"message"`
	Status          Status     `json:"status"`
	Acknowledged    bool       `json:"acknowledged"`
	FalsePositive   bool       `json:"falsePositive"`
	ResolutionNotes string     `json:"resolutionNotes,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	ResolvedAt      *time.Time `json:"resolvedAt,omitempty"`
}

// Stats summarizes alert outcomes over a time window.
type Stats struct {
	Total             int     `json:"total"`
	FalsePositives    int     `json:"falsePositives"`
	FalsePositiveRate float64 `json:"falsePositiveRate"`
}

// Store persists fraud alerts.
type Store interface {
	Insert(ctx context.Context, alert *FraudAlert) error

	// FindByID returns the alert or ErrAlertNotFound.
	FindByID(ctx context.Context, id string) (*FraudAlert, error)

	// LatestByTransaction returns the most recent alert for the given
	// user/transaction pair, or ErrAlertNotFound.
	LatestByTransaction(ctx context.Context, userID, transactionID string) (*FraudAlert, error)

	// Update replaces the stored alert. ErrAlertNotFound if missing.
	// The resolution latch never regresses: a stored falsePositive,
	// resolved status, or resolvedAt survives an update carrying a
	// stale snapshot, and acknowledged stays set once set.
	Update(ctx context.Context, alert *FraudAlert) error

	// SetAcknowledged sets the acknowledged flag and touches nothing
	// else. ErrAlertNotFound if missing.
	SetAcknowledged(ctx context.Context, id string) error

	// ListByUser returns the user's alerts, newest first. acknowledged
	// filters when non-nil; before resumes a prior page when non-nil;
	// limit <= 0 means no limit.
	ListByUser(ctx context.Context, userID string, acknowledged *bool, before *pagination.Cursor, limit int) ([]*FraudAlert, error)

	// CountByUserSince counts the user's alerts created at or after since.
	CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error)

	// Stats summarizes alerts created at or after since.
	Stats(ctx context.Context, since time.Time) (*Stats, error)
}
