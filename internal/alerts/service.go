package alerts

import (
	"context"
	"log/slog"
	"time"

	"github.com/chaingive/fraudguard/internal/metrics"
	"github.com/chaingive/fraudguard/internal/pagination"
	"github.com/chaingive/fraudguard/internal/realtime"
	"github.com/chaingive/fraudguard/internal/traces"
)

// Service implements the alert workflows: false-positive reporting and
// acknowledgement.
type Service struct {
	store  Store
	hub    *realtime.Hub
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates an alert service.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// WithHub enables real-time streaming of false-positive resolutions.
func (s *Service) WithHub(hub *realtime.Hub) *Service {
	s.hub = hub
	return s
}

// ReportFalsePositive resolves the most recent alert for the transaction and
// latches falsePositive. Calling it again updates the notes but the resolved
// status and the latch never regress.
func (s *Service) ReportFalsePositive(ctx context.Context, userID, transactionID, reason string) (*FraudAlert, error) {
	ctx, span := traces.StartSpan(ctx, "alerts.report_false_positive",
		traces.UserID(userID), traces.TransactionID(transactionID))
	defer span.End()

	alert, err := s.store.LatestByTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}

	first := !alert.FalsePositive
	alert.Status = StatusResolved
	alert.FalsePositive = true
	alert.ResolutionNotes = reason
	if alert.ResolvedAt == nil {
		now := s.now()
		alert.ResolvedAt = &now
	}

	if err := s.store.Update(ctx, alert); err != nil {
		return nil, err
	}
	if first {
		metrics.FalsePositivesTotal.Inc()
		s.logger.Info("alert marked false positive",
			"alert_id", alert.ID,
			"transaction_id", transactionID)
		if s.hub != nil {
			s.hub.Broadcast(&realtime.Event{
				Type:      realtime.EventFalsePositive,
				Timestamp: s.now(),
				Data: map[string]interface{}{
					"alertId":       alert.ID,
					"userId":        alert.UserID,
					"transactionId": alert.TransactionID,
					"riskLevel":     alert.RiskLevel,
				},
			})
		}
	}
	return alert, nil
}

// Acknowledge marks the alert seen by its owner. Alerts belonging to another
// user are reported as not found.
func (s *Service) Acknowledge(ctx context.Context, userID, alertID string) (*FraudAlert, error) {
	alert, err := s.store.FindByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert.UserID != userID {
		return nil, ErrAlertNotFound
	}
	if alert.Acknowledged {
		return alert, nil
	}
	// Flip only the acknowledged flag so a resolution committed after
	// the read above is never overwritten with this stale snapshot.
	if err := s.store.SetAcknowledged(ctx, alertID); err != nil {
		return nil, err
	}
	alert.Acknowledged = true
	return alert, nil
}

// List returns one page of the user's alerts, newest first, plus the cursor
// for the next page.
func (s *Service) List(ctx context.Context, userID string, acknowledged *bool, cursor string, limit int) ([]*FraudAlert, string, error) {
	before, err := pagination.Decode(cursor)
	if err != nil {
		return nil, "", err
	}
	limit = pagination.ClampLimit(limit)

	// Fetch one extra row to learn whether another page exists.
	items, err := s.store.ListByUser(ctx, userID, acknowledged, before, limit+1)
	if err != nil {
		return nil, "", err
	}
	page, next, _ := pagination.ComputePage(items, limit, func(a *FraudAlert) (time.Time, string) {
		return a.CreatedAt, a.ID
	})
	return page, next, nil
}

// CountSince counts the user's alerts created at or after since.
func (s *Service) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	return s.store.CountByUserSince(ctx, userID, since)
}

// StatsSince summarizes alert outcomes at or after since.
func (s *Service) StatsSince(ctx context.Context, since time.Time) (*Stats, error) {
	return s.store.Stats(ctx, since)
}
