// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/chaingive/fraudguard/internal/alerts"
	"github.com/chaingive/fraudguard/internal/auth"
	"github.com/chaingive/fraudguard/internal/config"
	"github.com/chaingive/fraudguard/internal/fraud"
	"github.com/chaingive/fraudguard/internal/health"
	"github.com/chaingive/fraudguard/internal/ledger"
	"github.com/chaingive/fraudguard/internal/logging"
	"github.com/chaingive/fraudguard/internal/metrics"
	"github.com/chaingive/fraudguard/internal/ratelimit"
	"github.com/chaingive/fraudguard/internal/realtime"
	"github.com/chaingive/fraudguard/internal/review"
	"github.com/chaingive/fraudguard/internal/security"
	"github.com/chaingive/fraudguard/internal/traces"
	"github.com/chaingive/fraudguard/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg           *config.Config
	authMgr       *auth.Manager
	ledgerStore   ledger.Store
	checkStore    fraud.Store
	alertStore    alerts.Store
	reviewStore   review.Store
	engine        *fraud.Engine
	fraudService  *fraud.Service
	alertService  *alerts.Service
	reviewService *review.Service
	hub           *realtime.Hub
	healthReg     *health.Registry
	rateLimiter   *ratelimit.Limiter
	db            *sql.DB // nil if using in-memory
	router        *gin.Engine
	httpSrv       *http.Server
	logger        *slog.Logger
	cancelRunCtx  context.CancelFunc // cancels background goroutines started in Run

	// Set when trace export is enabled
	shutdownTraces func(context.Context) error

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	// Apply options first (may set logger)
	for _, opt := range opts {
		opt(s)
	}

	// Context for initialization
	ctx := context.Background()

	// Realtime hub for WebSocket streaming of alerts and review decisions
	s.hub = realtime.NewHub(s.logger)

	// Initialize storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		// Test connection
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		// API keys with Postgres
		authStore := auth.NewPostgresStore(db)
		if err := authStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate auth store", "error", err)
		}
		s.authMgr = auth.NewManager(authStore)

		// User accounts, transaction history, IP/device baselines
		ledgerStore := ledger.NewPostgresStore(db)
		if err := ledgerStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate ledger store", "error", err)
		}
		s.ledgerStore = ledgerStore

		// Alerts
		alertStore := alerts.NewPostgresStore(db)
		if err := alertStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate alert store", "error", err)
		}
		s.alertStore = alertStore

		// Fraud checks (persists the check and its alert in one transaction)
		checkStore := fraud.NewPostgresStore(db)
		if err := checkStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate fraud check store", "error", err)
		}
		s.checkStore = checkStore

		// Manual review audit trail
		reviewStore := review.NewPostgresStore(db)
		if err := reviewStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate review store", "error", err)
		}
		s.reviewStore = reviewStore
	} else {
		s.logger.Info("using in-memory storage (data will not persist)")

		s.authMgr = auth.NewManager(auth.NewMemoryStore())
		s.ledgerStore = ledger.NewMemoryStore()

		alertStore := alerts.NewMemoryStore()
		s.alertStore = alertStore
		s.checkStore = fraud.NewMemoryStore(alertStore)
		s.reviewStore = review.NewMemoryStore()
	}

	// Alert notifier: realtime broadcast plus optional webhook delivery
	notifier, err := alerts.NewNotifier(s.hub, cfg.AlertWebhookURL, s.logger)
	if err != nil {
		return nil, fmt.Errorf("invalid alert webhook URL: %w", err)
	}

	// Rule engine and services
	s.engine = fraud.NewEngine(cfg.Thresholds, s.ledgerStore, s.checkStore, s.logger).
		WithNotifier(notifier)
	s.alertService = alerts.NewService(s.alertStore, s.logger).WithHub(s.hub)
	s.fraudService = fraud.NewService(s.engine, s.checkStore, s.ledgerStore, s.alertService, s.logger).
		WithHub(s.hub)
	s.reviewService = review.NewService(s.reviewStore, s.checkStore, s.hub, s.logger)

	s.logger.Info("fraud engine enabled",
		"hourly_ceiling", cfg.Thresholds.HourlyCeiling,
		"daily_ceiling", cfg.Thresholds.DailyCeiling,
	)

	// Health checks
	s.healthReg = health.NewRegistry()
	s.healthReg.Register("database", s.databaseChecker())
	s.healthReg.Register("alert_hub", s.hubChecker())

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS (allow all origins for demo - restrict in production)
	s.router.Use(security.CORSMiddleware([]string{"*"}))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	s.rateLimiter = ratelimit.New(ratelimit.Config{
		RequestsPerMinute: s.cfg.RateLimitRPS * 60,
		BurstSize:         s.cfg.RateLimitRPS,
		CleanupInterval:   time.Minute,
	})
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// requireAdmin allows requests carrying a key with the admin role, or the
// X-Admin-Secret header when ADMIN_SECRET is configured (used to bootstrap
// the first admin key).
func (s *Server) requireAdmin() gin.HandlerFunc {
	adminRole := auth.RequireRole(s.authMgr, auth.RoleAdmin)
	return func(c *gin.Context) {
		if s.cfg.AdminSecret != "" && c.GetHeader("X-Admin-Secret") == s.cfg.AdminSecret {
			c.Next()
			return
		}
		adminRole(c)
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// WebSocket for real-time alert and review streaming
	s.router.GET("/ws", func(c *gin.Context) {
		s.hub.HandleWebSocket(c.Writer, c.Request)
	})

	// API info
	s.router.GET("/api", s.infoHandler)

	// V1 API group. Auth middleware attaches the API key when present;
	// role checks on the sub-groups enforce access.
	v1 := s.router.Group("/v1")
	v1.Use(auth.Middleware(s.authMgr))

	authHandler := auth.NewHandler(s.authMgr)
	fraudHandler := fraud.NewHandler(s.fraudService)
	alertsHandler := alerts.NewHandler(s.alertService)
	reviewHandler := review.NewHandler(s.reviewService)

	// AUTH INFO (public)
	v1.GET("/auth/info", authHandler.Info)
	v1.GET("/auth/whoami", auth.RequireAuth(s.authMgr), authHandler.WhoAmI)

	// SERVICE ROUTES (payment services submitting checks and reading alerts)
	service := v1.Group("")
	service.Use(auth.RequireRole(s.authMgr, auth.RoleService))
	{
		fraudHandler.RegisterRoutes(service)
		alertsHandler.RegisterRoutes(service)
	}

	// REVIEWER ROUTES (human analysts working the queue)
	reviewer := v1.Group("")
	reviewer.Use(auth.RequireRole(s.authMgr, auth.RoleReviewer))
	{
		reviewHandler.RegisterRoutes(reviewer)
	}

	// ADMIN ROUTES (key management and model training)
	admin := v1.Group("")
	admin.Use(s.requireAdmin())
	{
		fraudHandler.RegisterAdminRoutes(admin)
		admin.GET("/auth/keys", authHandler.ListKeys)
		admin.POST("/auth/keys", authHandler.CreateKey)
		admin.DELETE("/auth/keys/:keyId", authHandler.RevokeKey)
	}
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

func (s *Server) databaseChecker() health.Checker {
	return func(ctx context.Context) health.Status {
		if s.db == nil {
			return health.Status{Name: "database", Healthy: true, Detail: "in-memory"}
		}
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			return health.Status{Name: "database", Healthy: false, Detail: err.Error()}
		}
		return health.Status{Name: "database", Healthy: true}
	}
}

func (s *Server) hubChecker() health.Checker {
	return func(ctx context.Context) health.Status {
		stats := s.hub.Stats()
		detail := fmt.Sprintf("%v clients", stats["connectedClients"])
		return health.Status{Name: "alert_hub", Healthy: true, Detail: detail}
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	healthy, statuses := s.healthReg.CheckAll(c.Request.Context())

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"version":   "0.1.0",
		"checks":    statuses,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "FraudGuard",
		"description": "Real-time fraud risk scoring for payment transactions",
		"version":     "0.1.0",
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	// Trace export (optional)
	if s.cfg.OTLPEndpoint != "" {
		shutdown, err := traces.Init(runCtx, s.cfg.OTLPEndpoint, s.logger)
		if err != nil {
			s.logger.Warn("failed to initialize trace export", "error", err)
		} else {
			s.shutdownTraces = shutdown
		}
	}

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to catch server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.hub.Run(runCtx)

	// Start database pool stats collector
	if s.db != nil {
		metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub, stats collector)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	// Give load balancers time to stop sending traffic
	time.Sleep(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Flush pending trace spans
	if s.shutdownTraces != nil {
		if err := s.shutdownTraces(ctx); err != nil {
			s.logger.Error("trace shutdown error", "error", err)
		}
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
