package fraud

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chaingive/fraudguard/internal/alerts"
	"github.com/chaingive/fraudguard/internal/config"
	"github.com/chaingive/fraudguard/internal/idgen"
	"github.com/chaingive/fraudguard/internal/ledger"
	"github.com/chaingive/fraudguard/internal/metrics"
	"github.com/chaingive/fraudguard/internal/traces"
)

// Notifier pushes a newly created alert to its delivery channels.
// Delivery is best-effort and never affects the check verdict.
type Notifier interface {
	Notify(ctx context.Context, alert *alerts.FraudAlert)
}

// Engine scores payments by fanning out to the rule evaluators and
// aggregating their verdicts.
type Engine struct {
	thresholds config.Thresholds
	ledger     ledger.Reader
	store      Store
	notifier   Notifier
	logger     *slog.Logger
	now        func() time.Time
}

// NewEngine creates a fraud scoring engine. The store receives the audit
// record for every check; notifier may be nil.
func NewEngine(thresholds config.Thresholds, reader ledger.Reader, store Store, logger *slog.Logger) *Engine {
	return &Engine{
		thresholds: thresholds,
		ledger:     reader,
		store:      store,
		logger:     logger,
		now:        time.Now,
	}
}

// WithNotifier attaches an alert delivery channel.
func (e *Engine) WithNotifier(n Notifier) *Engine {
	e.notifier = n
	return e
}

// CheckPaymentFraud runs all evaluators concurrently and returns the
// aggregated verdict. A failed historical lookup aborts the check with
// ErrCheckUnavailable; the engine never guesses with partial data.
func (e *Engine) CheckPaymentFraud(ctx context.Context, pc *PaymentContext) (*CheckResult, error) {
	ctx, span := traces.StartSpan(ctx, "fraud.check",
		traces.UserID(pc.UserID),
		traces.TransactionID(pc.TransactionID),
		traces.Amount(pc.Amount),
	)
	defer span.End()
	start := time.Now()

	evals := e.evaluators()
	verdicts := make([]RuleVerdict, len(evals))
	errs := make([]error, len(evals))

	// Fan out. Results land at the evaluator's own index so the reason
	// list stays in fixed order no matter which finishes first.
	var wg sync.WaitGroup
	for i, ev := range evals {
		wg.Add(1)
		go func(i int, ev evaluator) {
			defer wg.Done()
			evalStart := time.Now()
			verdicts[i], errs[i] = ev.fn(ctx, pc)
			metrics.EvaluatorDuration.WithLabelValues(ev.name).Observe(time.Since(evalStart).Seconds())
		}(i, ev)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			e.logger.Error("evaluator failed",
				"evaluator", evals[i].name,
				"transaction_id", pc.TransactionID,
				"error", err)
			return nil, fmt.Errorf("%w: %s evaluator: %v", ErrCheckUnavailable, evals[i].name, err)
		}
	}

	risk, reasons := aggregate(verdicts)
	action := decideAction(risk, len(reasons))

	result := &CheckResult{
		ID:            idgen.WithPrefix("chk_"),
		TransactionID: pc.TransactionID,
		UserID:        pc.UserID,
		Fraudulent:    risk == RiskHigh,
		Risk:          risk,
		Reasons:       reasons,
		Action:        action,
		CheckedAt:     e.now(),
	}

	span.SetAttributes(traces.CheckID(result.ID), traces.RiskLevel(risk.String()))
	metrics.ChecksTotal.WithLabelValues(risk.String(), string(action)).Inc()
	metrics.CheckDuration.Observe(time.Since(start).Seconds())

	// Audit trail is fire-and-forget; the verdict is time-sensitive and
	// must not wait on the store.
	go e.audit(context.Background(), result)

	return result, nil
}

// aggregate folds the verdicts into a single risk level and reason list.
// Escalation is monotonic: risk only ever goes up.
func aggregate(verdicts []RuleVerdict) (RiskLevel, []string) {
	risk := RiskLow
	var reasons []string
	for _, v := range verdicts {
		if !v.Fraudulent {
			continue
		}
		reasons = append(reasons, v.Reasons...)
		risk = risk.Max(v.Risk)
	}
	return risk, reasons
}

// decideAction maps a risk level and reason count to the recommended
// action. Two corroborating medium signals compound into a block.
func decideAction(risk RiskLevel, reasonCount int) Action {
	switch risk {
	case RiskHigh:
		return ActionBlock
	case RiskMedium:
		if reasonCount > 1 {
			return ActionBlock
		}
		return ActionFlag
	default:
		return ActionAllow
	}
}

// audit persists the check result and, for medium and high risk, its alert.
// Failures are logged and counted, never surfaced to the payment flow.
func (e *Engine) audit(ctx context.Context, result *CheckResult) {
	var alert *alerts.FraudAlert
	if result.Risk >= RiskMedium {
		alert = &alerts.FraudAlert{
			ID:            idgen.WithPrefix("alr_"),
			UserID:        result.UserID,
			TransactionID: result.TransactionID,
			RiskLevel:     result.Risk.String(),
			Message:       strings.Join(result.Reasons, "; "),
			Status:        alerts.StatusPending,
			CreatedAt:     e.now(),
		}
	}

	if err := e.store.SaveDecision(ctx, result, alert); err != nil {
		metrics.AuditFailuresTotal.Inc()
		e.logger.Error("audit write failed",
			"check_id", result.ID,
			"transaction_id", result.TransactionID,
			"error", err)
		return
	}

	if alert != nil {
		metrics.AlertsCreatedTotal.WithLabelValues(alert.RiskLevel).Inc()
		if e.notifier != nil {
			e.notifier.Notify(ctx, alert)
		}
	}
}
