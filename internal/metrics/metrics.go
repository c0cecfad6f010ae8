// Package metrics provides Prometheus instrumentation for the fraud service.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraudguard",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fraudguard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ChecksTotal counts fraud checks by resulting risk level and action.
	ChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraudguard",
			Name:      "checks_total",
			Help:      "Total fraud checks by risk level and recommended action.",
		},
		[]string{"risk_level", "action"},
	)

	// CheckDuration observes end-to-end fraud check latency.
	CheckDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fraudguard",
		Name:      "check_duration_seconds",
		Help:      "Fraud check duration in seconds.",
		Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	// EvaluatorDuration observes per-evaluator latency.
	EvaluatorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fraudguard",
			Name:      "evaluator_duration_seconds",
			Help:      "Rule evaluator duration in seconds.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		},
		[]string{"evaluator"},
	)

	// AlertsCreatedTotal counts fraud alerts created by risk level.
	AlertsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraudguard",
			Name:      "alerts_created_total",
			Help:      "Total fraud alerts created by risk level.",
		},
		[]string{"risk_level"},
	)

	// FalsePositivesTotal counts alerts marked as false positives.
	FalsePositivesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fraudguard",
		Name:      "false_positives_total",
		Help:      "Total alerts marked as false positives.",
	})

	// ReviewsTotal counts manual review resolutions by decision.
	ReviewsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraudguard",
			Name:      "reviews_total",
			Help:      "Total manual review resolutions by decision.",
		},
		[]string{"decision"},
	)

	// AuditFailuresTotal counts decision audit writes that failed.
	AuditFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fraudguard",
		Name:      "audit_failures_total",
		Help:      "Total decision audit persistence failures.",
	})

	// NotificationsTotal counts alert notification deliveries by result.
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraudguard",
			Name:      "notifications_total",
			Help:      "Total alert notification deliveries by result.",
		},
		[]string{"result"},
	)

	// ActiveWebSocketClients tracks connected WebSocket clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fraudguard",
			Name:      "active_websocket_clients",
			Help:      "Number of currently connected WebSocket clients.",
		},
	)

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fraudguard", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fraudguard", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fraudguard", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// DBWaitCount tracks the total number of connections waited for.
	DBWaitCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fraudguard", Name: "db_wait_count_total",
		Help: "Total number of connections waited for.",
	})
	// DBWaitDuration tracks total time waited for connections.
	DBWaitDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fraudguard", Name: "db_wait_duration_seconds_total",
		Help: "Total time waited for connections in seconds.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fraudguard", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ChecksTotal,
		CheckDuration,
		EvaluatorDuration,
		AlertsCreatedTotal,
		FalsePositivesTotal,
		ReviewsTotal,
		AuditFailuresTotal,
		NotificationsTotal,
		ActiveWebSocketClients,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		DBWaitCount,
		DBWaitDuration,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			DBWaitCount.Set(float64(stats.WaitCount))
			DBWaitDuration.Set(stats.WaitDuration.Seconds())
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
