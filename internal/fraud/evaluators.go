package fraud

import (
	"context"
	"errors"
	"time"

	"github.com/chaingive/fraudguard/internal/ledger"
)

// Reason strings surfaced to callers and persisted on alerts. Dashboards
// key off these, so they are stable.
const (
	ReasonFirstTimeHighAmount = "Unusually high amount for first-time user"
	ReasonAmountAboveHistory  = "Payment amount significantly higher than user history"
	ReasonHourlyVelocity      = "High transaction velocity - 5+ transactions in last hour"
	ReasonDailyVolume         = "High daily transaction volume - 20+ transactions in 24 hours"
	ReasonUnknownIP           = "Payment from unknown IP address"
	ReasonUnknownDevice       = "Payment from unrecognized device"
	ReasonAccountNotFound     = "User account not found"
	ReasonNewAccountHighValue = "High-value transaction from very new account"
	ReasonLowTrustHighValue   = "High-value transaction from low-trust account"
)

const amountHistoryWindow = 30 * 24 * time.Hour

// evaluator is one independent fraud heuristic. Evaluators read historical
// data through the ledger and never mutate anything.
type evaluator struct {
	name string
	fn   func(ctx context.Context, pc *PaymentContext) (RuleVerdict, error)
}

// evaluators returns the rule evaluators in their fixed aggregation order.
func (e *Engine) evaluators() []evaluator {
	return []evaluator{
		{"amount", e.evaluateAmount},
		{"velocity", e.evaluateVelocity},
		{"geographic", e.evaluateGeographic},
		{"device", e.evaluateDevice},
		{"behavioral", e.evaluateBehavioral},
	}
}

// evaluateAmount compares the payment amount against the user's completed
// transactions over the last 30 days.
func (e *Engine) evaluateAmount(ctx context.Context, pc *PaymentContext) (RuleVerdict, error) {
	since := e.now().Add(-amountHistoryWindow)
	history, err := e.ledger.RecentTransactions(ctx, pc.UserID, since)
	if err != nil {
		return RuleVerdict{}, err
	}

	completed := ledger.CompletedSince(history, since)
	if len(completed) == 0 {
		if pc.Amount > e.thresholds.FirstTimeAmountCeiling {
			return RuleVerdict{
				Fraudulent: true,
				Risk:       RiskMedium,
				Reasons:    []string{ReasonFirstTimeHighAmount},
				Action:     ActionFlag,
			}, nil
		}
		return cleanVerdict(), nil
	}

	var sum, max float64
	for _, tx := range completed {
		sum += tx.Amount
		if tx.Amount > max {
			max = tx.Amount
		}
	}
	mean := sum / float64(len(completed))

	if pc.Amount > mean*e.thresholds.MeanMultiplier || pc.Amount > max*e.thresholds.MaxMultiplier {
		return RuleVerdict{
			Fraudulent: true,
			Risk:       RiskHigh,
			Reasons:    []string{ReasonAmountAboveHistory},
			Action:     ActionBlock,
		}, nil
	}
	return cleanVerdict(), nil
}

// evaluateVelocity counts recent transactions of any status. The hourly rule
// short-circuits the daily one.
func (e *Engine) evaluateVelocity(ctx context.Context, pc *PaymentContext) (RuleVerdict, error) {
	now := e.now()

	hourly, err := e.ledger.CountTransactions(ctx, pc.UserID, now.Add(-time.Hour))
	if err != nil {
		return RuleVerdict{}, err
	}
	if hourly >= e.thresholds.HourlyCeiling {
		return RuleVerdict{
			Fraudulent: true,
			Risk:       RiskHigh,
			Reasons:    []string{ReasonHourlyVelocity},
			Action:     ActionBlock,
		}, nil
	}

	daily, err := e.ledger.CountTransactions(ctx, pc.UserID, now.Add(-24*time.Hour))
	if err != nil {
		return RuleVerdict{}, err
	}
	if daily >= e.thresholds.DailyCeiling {
		return RuleVerdict{
			Fraudulent: true,
			Risk:       RiskMedium,
			Reasons:    []string{ReasonDailyVolume},
			Action:     ActionFlag,
		}, nil
	}
	return cleanVerdict(), nil
}

// evaluateGeographic flags payments from an IP the user has never used.
// With no IP on the payment or no IP baseline there is nothing to judge.
func (e *Engine) evaluateGeographic(ctx context.Context, pc *PaymentContext) (RuleVerdict, error) {
	if pc.IPAddress == "" {
		return cleanVerdict(), nil
	}

	known, err := e.ledger.KnownIPs(ctx, pc.UserID)
	if err != nil {
		return RuleVerdict{}, err
	}
	if len(known) == 0 {
		return cleanVerdict(), nil
	}
	for _, ip := range known {
		if ip == pc.IPAddress {
			return cleanVerdict(), nil
		}
	}
	return RuleVerdict{
		Fraudulent: true,
		Risk:       RiskMedium,
		Reasons:    []string{ReasonUnknownIP},
		Action:     ActionFlag,
	}, nil
}

// evaluateDevice flags payments from an unrecognized device fingerprint,
// but only once the user has an established device baseline.
func (e *Engine) evaluateDevice(ctx context.Context, pc *PaymentContext) (RuleVerdict, error) {
	if pc.DeviceFingerprint == "" {
		return cleanVerdict(), nil
	}

	known, err := e.ledger.KnownDevices(ctx, pc.UserID)
	if err != nil {
		return RuleVerdict{}, err
	}
	if len(known) < e.thresholds.MinKnownDevices {
		return cleanVerdict(), nil
	}
	for _, fp := range known {
		if fp == pc.DeviceFingerprint {
			return cleanVerdict(), nil
		}
	}
	return RuleVerdict{
		Fraudulent: true,
		Risk:       RiskMedium,
		Reasons:    []string{ReasonUnknownDevice},
		Action:     ActionFlag,
	}, nil
}

// evaluateBehavioral checks account-level signals: a missing account is
// treated as high risk, new and low-trust accounts are capped on amount.
func (e *Engine) evaluateBehavioral(ctx context.Context, pc *PaymentContext) (RuleVerdict, error) {
	acct, err := e.ledger.FindAccount(ctx, pc.UserID)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return RuleVerdict{
			Fraudulent: true,
			Risk:       RiskHigh,
			Reasons:    []string{ReasonAccountNotFound},
			Action:     ActionBlock,
		}, nil
	}
	if err != nil {
		return RuleVerdict{}, err
	}

	var reasons []string
	if acct.AgeDays(e.now()) < e.thresholds.NewAccountAgeDays && pc.Amount > e.thresholds.NewAccountAmountCeiling {
		reasons = append(reasons, ReasonNewAccountHighValue)
	}
	if acct.TrustScore < e.thresholds.LowTrustScore && pc.Amount > e.thresholds.LowTrustAmountCeiling {
		reasons = append(reasons, ReasonLowTrustHighValue)
	}
	if len(reasons) == 0 {
		return cleanVerdict(), nil
	}
	return RuleVerdict{
		Fraudulent: true,
		Risk:       RiskMedium,
		Reasons:    reasons,
		Action:     ActionFlag,
	}, nil
}
