package fraud

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chaingive/fraudguard/internal/alerts"
	"github.com/chaingive/fraudguard/internal/ledger"
	"github.com/chaingive/fraudguard/internal/realtime"
)

// Timeframes accepted by the statistics endpoint.
const (
	TimeframeDay   = "day"
	TimeframeWeek  = "week"
	TimeframeMonth = "month"
)

const profileAlertWindow = 30 * 24 * time.Hour

// StatisticsReport is the statistics payload: check outcomes plus alert
// totals over the same window.
type StatisticsReport struct {
	Timeframe string        `json:"timeframe"`
	Since     time.Time     `json:"since"`
	Checks    *Statistics   `json:"checks"`
	Alerts    *alerts.Stats `json:"alerts"`
}

// RiskProfile summarizes a user's standing for dashboards.
type RiskProfile struct {
	UserID           string  `json:"userId"`
	TrustScore       float64 `json:"trustScore"`
	AccountAgeDays   int     `json:"accountAgeDays"`
	RecentAlertCount int     `json:"recentAlertCount"`
}

// Service ties the engine to the surrounding stores and implements the
// non-check operations.
type Service struct {
	engine *Engine
	store  Store
	ledger ledger.Store
	alerts *alerts.Service
	hub    *realtime.Hub
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates the fraud service.
func NewService(engine *Engine, store Store, ledgerStore ledger.Store, alertService *alerts.Service, logger *slog.Logger) *Service {
	return &Service{
		engine: engine,
		store:  store,
		ledger: ledgerStore,
		alerts: alertService,
		logger: logger,
		now:    time.Now,
	}
}

// WithHub enables real-time streaming of check decisions.
func (s *Service) WithHub(hub *realtime.Hub) *Service {
	s.hub = hub
	return s
}

// Check scores the payment. When the verdict lets the payment proceed, the
// transaction and its IP/device are recorded so future checks have a
// baseline to compare against. Recording is best-effort and off the hot
// path.
func (s *Service) Check(ctx context.Context, pc *PaymentContext) (*CheckResult, error) {
	result, err := s.engine.CheckPaymentFraud(ctx, pc)
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.BroadcastDecision(map[string]interface{}{
			"checkId":       result.ID,
			"transactionId": result.TransactionID,
			"userId":        result.UserID,
			"riskLevel":     result.Risk.String(),
			"action":        string(result.Action),
			"reasons":       result.Reasons,
		})
	}

	if result.Action != ActionBlock {
		go s.observe(context.Background(), pc)
	}
	return result, nil
}

// observe grows the user's baseline from an allowed payment.
func (s *Service) observe(ctx context.Context, pc *PaymentContext) {
	tx := &ledger.Transaction{
		ID:        pc.TransactionID,
		UserID:    pc.UserID,
		Amount:    pc.Amount,
		Currency:  pc.Currency,
		Status:    ledger.StatusPending,
		CreatedAt: s.now(),
	}
	if err := s.ledger.RecordTransaction(ctx, tx); err != nil {
		s.logger.Warn("transaction record failed", "transaction_id", pc.TransactionID, "error", err)
	}
	if err := s.ledger.ObserveIP(ctx, pc.UserID, pc.IPAddress); err != nil {
		s.logger.Warn("ip observation failed", "user_id", pc.UserID, "error", err)
	}
	if err := s.ledger.ObserveDevice(ctx, pc.UserID, pc.DeviceFingerprint); err != nil {
		s.logger.Warn("device observation failed", "user_id", pc.UserID, "error", err)
	}
}

// Statistics aggregates check and alert outcomes over the timeframe.
func (s *Service) Statistics(ctx context.Context, timeframe string) (*StatisticsReport, error) {
	var window time.Duration
	switch timeframe {
	case TimeframeDay:
		window = 24 * time.Hour
	case TimeframeWeek:
		window = 7 * 24 * time.Hour
	case TimeframeMonth:
		window = 30 * 24 * time.Hour
	default:
		return nil, fmt.Errorf("unknown timeframe %q", timeframe)
	}
	since := s.now().Add(-window)

	checkStats, err := s.store.Statistics(ctx, since)
	if err != nil {
		return nil, err
	}
	alertStats, err := s.alerts.StatsSince(ctx, since)
	if err != nil {
		return nil, err
	}
	return &StatisticsReport{
		Timeframe: timeframe,
		Since:     since,
		Checks:    checkStats,
		Alerts:    alertStats,
	}, nil
}

// Profile returns the user's risk profile. ledger.ErrAccountNotFound when
// the user does not exist.
func (s *Service) Profile(ctx context.Context, userID string) (*RiskProfile, error) {
	acct, err := s.ledger.FindAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	alertCount, err := s.alerts.CountSince(ctx, userID, s.now().Add(-profileAlertWindow))
	if err != nil {
		return nil, err
	}
	return &RiskProfile{
		UserID:           acct.UserID,
		TrustScore:       acct.TrustScore,
		AccountAgeDays:   acct.AgeDays(s.now()),
		RecentAlertCount: alertCount,
	}, nil
}
