package review

import (
	"context"
	"log/slog"
	"time"

	"github.com/chaingive/fraudguard/internal/fraud"
	"github.com/chaingive/fraudguard/internal/idgen"
	"github.com/chaingive/fraudguard/internal/metrics"
	"github.com/chaingive/fraudguard/internal/pagination"
	"github.com/chaingive/fraudguard/internal/realtime"
	"github.com/chaingive/fraudguard/internal/traces"
)

// PendingItem is one entry in the review queue: the latest check for a
// flagged transaction plus how often it has been escalated.
type PendingItem struct {
	Check       *fraud.CheckResult `json:"check"`
	Escalations int                `json:"escalations"`
}

// PendingPage is one page of the review queue.
type PendingPage struct {
	Items []*PendingItem      `json:"items"`
	Meta  pagination.PageMeta `json:"meta"`
}

// Service implements the manual review workflow.
type Service struct {
	store  Store
	checks fraud.Store
	hub    *realtime.Hub
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a review service. hub may be nil.
func NewService(store Store, checks fraud.Store, hub *realtime.Hub, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		checks: checks,
		hub:    hub,
		logger: logger,
		now:    time.Now,
	}
}

// Review records a reviewer's decision on a flagged transaction.
// ErrInvalidDecision for an unknown decision; fraud.ErrCheckNotFound when
// the transaction was never checked.
func (s *Service) Review(ctx context.Context, transactionID string, decision Decision, reviewerID, reason, notes string) (*ReviewCase, error) {
	ctx, span := traces.StartSpan(ctx, "review.decide",
		traces.TransactionID(transactionID))
	defer span.End()

	if !decision.Valid() {
		return nil, ErrInvalidDecision
	}

	check, err := s.checks.FindByTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	rc := &ReviewCase{
		ID:            idgen.WithPrefix("rev_"),
		TransactionID: transactionID,
		Decision:      decision,
		ReviewerID:    reviewerID,
		Reason:        reason,
		Notes:         notes,
		CreatedAt:     s.now(),
	}
	if err := s.store.Append(ctx, rc); err != nil {
		return nil, err
	}

	span.SetAttributes(traces.ReviewID(rc.ID))
	metrics.ReviewsTotal.WithLabelValues(string(decision)).Inc()
	s.logger.Info("fraud decision reviewed",
		"review_id", rc.ID,
		"transaction_id", transactionID,
		"decision", string(decision),
		"reviewer_id", reviewerID)

	if s.hub != nil && decision.Terminal() {
		s.hub.Broadcast(&realtime.Event{
			Type:      realtime.EventReviewResolved,
			Timestamp: rc.CreatedAt,
			Data: map[string]interface{}{
				"reviewId":      rc.ID,
				"transactionId": transactionID,
				"userId":        check.UserID,
				"riskLevel":     check.Risk.String(),
				"decision":      string(decision),
			},
		})
	}
	return rc, nil
}

// Pending lists transactions awaiting review: the most recent check is
// medium or high risk and no approve/deny has landed. riskFilter narrows to
// a single risk level when non-empty.
func (s *Service) Pending(ctx context.Context, page, limit int, riskFilter string) (*PendingPage, error) {
	var filter *fraud.RiskLevel
	if riskFilter != "" {
		level, err := fraud.ParseRiskLevel(riskFilter)
		if err != nil {
			return nil, err
		}
		filter = &level
	}

	flagged, err := s.checks.ListFlagged(ctx, fraud.RiskMedium)
	if err != nil {
		return nil, err
	}

	var pending []*PendingItem
	for _, check := range flagged {
		if filter != nil && check.Risk != *filter {
			continue
		}
		cases, err := s.store.ListByTransaction(ctx, check.TransactionID)
		if err != nil {
			return nil, err
		}
		closed := false
		escalations := 0
		for _, rc := range cases {
			if rc.Decision.Terminal() {
				closed = true
				break
			}
			escalations++
		}
		if closed {
			continue
		}
		pending = append(pending, &PendingItem{Check: check, Escalations: escalations})
	}

	items, meta := pagination.SlicePage(pending, page, limit)
	if items == nil {
		items = []*PendingItem{}
	}
	return &PendingPage{Items: items, Meta: meta}, nil
}
