package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/chaingive/fraudguard/internal/circuitbreaker"
	"github.com/chaingive/fraudguard/internal/metrics"
	"github.com/chaingive/fraudguard/internal/realtime"
	"github.com/chaingive/fraudguard/internal/retry"
	"github.com/chaingive/fraudguard/internal/security"
)

// Notifier delivers newly created alerts to the realtime hub and an optional
// webhook endpoint. Delivery is best-effort: failures are logged and counted
// but never propagate to the caller. A circuit breaker stops webhook attempts
// after repeated failures so a dead endpoint doesn't slow down alert fan-out.
type Notifier struct {
	hub      *realtime.Hub
	endpoint string
	client   *http.Client
	breaker  *circuitbreaker.Breaker
	logger   *slog.Logger
}

// NewNotifier creates an alert notifier. endpoint may be empty to disable
// webhook delivery; non-empty endpoints are validated against SSRF targets.
func NewNotifier(hub *realtime.Hub, endpoint string, logger *slog.Logger) (*Notifier, error) {
	if endpoint != "" {
		if err := security.ValidateEndpointURL(endpoint); err != nil {
			return nil, fmt.Errorf("alert webhook endpoint: %w", err)
		}
	}
	return &Notifier{
		hub:      hub,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		breaker:  circuitbreaker.New(5, 30*time.Second),
		logger:   logger,
	}, nil
}

// Notify pushes the alert to all channels.
func (n *Notifier) Notify(ctx context.Context, alert *FraudAlert) {
	if n.hub != nil {
		n.hub.BroadcastAlert(map[string]interface{}{
			"id":            alert.ID,
			"userId":        alert.UserID,
			"transactionId": alert.TransactionID,
			"riskLevel":     alert.RiskLevel,
			"message":       alert.Message,
			"status":        string(alert.Status),
			"createdAt":     alert.CreatedAt,
		})
	}

	if n.endpoint == "" {
		return
	}
	if !n.breaker.Allow(n.endpoint) {
		metrics.NotificationsTotal.WithLabelValues("skipped").Inc()
		n.logger.Warn("alert webhook circuit open, skipping delivery",
			"alert_id", alert.ID)
		return
	}
	if err := n.deliver(ctx, alert); err != nil {
		n.breaker.RecordFailure(n.endpoint)
		metrics.NotificationsTotal.WithLabelValues("error").Inc()
		n.logger.Error("alert webhook delivery failed",
			"alert_id", alert.ID,
			"error", err)
		return
	}
	n.breaker.RecordSuccess(n.endpoint)
	metrics.NotificationsTotal.WithLabelValues("ok").Inc()
}

func (n *Notifier) deliver(ctx context.Context, alert *FraudAlert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	return retry.Do(ctx, 3, 500*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("webhook returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return retry.Permanent(fmt.Errorf("webhook returned %d", resp.StatusCode))
		}
		return nil
	})
}
