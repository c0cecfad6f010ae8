// Package fraud implements real-time fraud scoring for inbound payments.
//
// Every payment is evaluated against 5 independent rule evaluators:
// amount anomaly, transaction velocity, geographic anomaly, device
// fingerprint, and behavioral signals. The evaluators run concurrently,
// their verdicts are aggregated by max-risk escalation, and a deterministic
// policy maps the aggregate risk to an action (allow, flag, or block).
// Checks with medium or high risk raise a FraudAlert for the affected user.
package fraud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chaingive/fraudguard/internal/alerts"
)

var (
	// ErrCheckUnavailable means a historical data lookup failed and the
	// payment could not be scored. Callers must treat this as a block.
	ErrCheckUnavailable = errors.New("fraud check unavailable")

	// ErrCheckNotFound means no fraud check exists for the transaction.
	ErrCheckNotFound = errors.New("fraud check not found")
)

// RiskLevel is an ordered severity: low < medium < high.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
)

// String returns the wire form of the risk level.
func (r RiskLevel) String() string {
	switch r {
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return "low"
	}
}

// Max returns the higher of the two risk levels.
func (r RiskLevel) Max(other RiskLevel) RiskLevel {
	if other > r {
		return other
	}
	return r
}

// ParseRiskLevel converts a wire string to a RiskLevel.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch s {
	case "low":
		return RiskLow, nil
	case "medium":
		return RiskMedium, nil
	case "high":
		return RiskHigh, nil
	}
	return RiskLow, fmt.Errorf("unknown risk level %q", s)
}

// MarshalJSON encodes the risk level as its string form.
func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes a risk level from its string form.
func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	level, err := ParseRiskLevel(s)
	if err != nil {
		return err
	}
	*r = level
	return nil
}

// Action is the recommended handling for a scored payment.
type Action string

const (
	ActionAllow Action = "allow"
	ActionFlag  Action = "flag"
	ActionBlock Action = "block"
)

// Location is the optional structured location of a payment.
type Location struct {
	Country     string      `json:"country"`
	City        string      `json:"city"`
	Coordinates *[2]float64 `json:"coordinates,omitempty"`
}

// PaymentContext carries everything known about a payment at check time.
// Constructed once per request and never mutated.
type PaymentContext struct {
	TransactionID     string
	UserID            string
	Amount            float64
	Currency          string
	Gateway           string
	IPAddress         string
	UserAgent         string
	DeviceFingerprint string
	Location          *Location
}

// RuleVerdict is the output of a single rule evaluator.
type RuleVerdict struct {
	Fraudulent bool      `json:"isFraudulent"`
	Risk       RiskLevel `json:"riskLevel"`
	Reasons    []string  `json:"reasons"`
	Action     Action    `json:"recommendedAction"`
}

// cleanVerdict is what an evaluator returns when it finds no anomaly.
func cleanVerdict() RuleVerdict {
	return RuleVerdict{Fraudulent: false, Risk: RiskLow, Action: ActionAllow}
}

// CheckResult is the aggregated verdict for one payment. It is returned to
// the caller and persisted as the audit record.
type CheckResult struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transactionId"`
	UserID        string    `json:"userId"`
	Fraudulent    bool      `json:"isFraudulent"`
	Risk          RiskLevel `json:"riskLevel"`
	Reasons       []string  `json:"reasons"`
	Action        Action    `json:"recommendedAction"`
	CheckedAt     time.Time `json:"checkedAt"`
}

// Statistics aggregates check outcomes over a time window.
type Statistics struct {
	TotalChecks int            `json:"totalChecks"`
	Fraudulent  int            `json:"fraudulent"`
	ByRiskLevel map[string]int `json:"byRiskLevel"`
	ByAction    map[string]int `json:"byAction"`
}

// Store persists fraud check results and their derived alerts.
type Store interface {
	// SaveDecision writes the check result and, when alert is non-nil, the
	// alert. Both are written or neither is.
	SaveDecision(ctx context.Context, check *CheckResult, alert *alerts.FraudAlert) error

	// FindByTransaction returns the most recent check for a transaction.
	// Returns ErrCheckNotFound when none exists.
	FindByTransaction(ctx context.Context, transactionID string) (*CheckResult, error)

	// ListFlagged returns the most recent check per transaction whose risk
	// is at or above minRisk, newest first.
	ListFlagged(ctx context.Context, minRisk RiskLevel) ([]*CheckResult, error)

	// Statistics counts checks performed at or after since.
	Statistics(ctx context.Context, since time.Time) (*Statistics, error)
}
