package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/chaingive/fraudguard/internal/auth"
	"github.com/chaingive/fraudguard/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testConfig returns a minimal in-memory config for testing
func testConfig() *config.Config {
	return &config.Config{
		Port:         "0",
		Env:          "development",
		LogLevel:     "error",
		RateLimitRPS: 1000,
		AdminSecret:  "test-admin-secret",
		Thresholds: config.Thresholds{
			FirstTimeAmountCeiling:  config.DefaultFirstTimeAmountCeiling,
			MeanMultiplier:          config.DefaultMeanMultiplier,
			MaxMultiplier:           config.DefaultMaxMultiplier,
			HourlyCeiling:           config.DefaultHourlyCeiling,
			DailyCeiling:            config.DefaultDailyCeiling,
			NewAccountAgeDays:       config.DefaultNewAccountAgeDays,
			NewAccountAmountCeiling: config.DefaultNewAccountAmountCeiling,
			LowTrustScore:           config.DefaultLowTrustScore,
			LowTrustAmountCeiling:   config.DefaultLowTrustAmountCeiling,
			MinKnownDevices:         config.DefaultMinKnownDevices,
		},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(testConfig())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

// issueKey creates an API key with the given role and returns the raw key
func issueKey(t *testing.T, s *Server, actor, role string) string {
	t.Helper()
	rawKey, _, err := s.authMgr.GenerateKey(context.Background(), actor, role, "test key")
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	return rawKey
}

// ---------------------------------------------------------------------------
// Health endpoint tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", resp["status"])
	}
}

func TestLivenessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/live", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestReadinessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/ready", nil)
	s.router.ServeHTTP(w, req)

	// Server hasn't called Run() so ready is false
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 (not ready), got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Route registration tests
// ---------------------------------------------------------------------------

func TestCoreRoutesRegistered(t *testing.T) {
	s := newTestServer(t)

	routes := s.router.Routes()
	expected := []string{
		"GET:/health",
		"GET:/health/live",
		"GET:/health/ready",
		"GET:/metrics",
		"GET:/ws",
		"POST:/v1/fraud/check",
		"GET:/v1/fraud/statistics",
		"GET:/v1/fraud/profile/:userId",
		"GET:/v1/fraud/alerts",
		"POST:/v1/fraud/alerts/:alertId/acknowledge",
		"POST:/v1/fraud/false-positive",
		"POST:/v1/fraud/review",
		"GET:/v1/fraud/reviews/pending",
		"POST:/v1/fraud/train",
		"POST:/v1/auth/keys",
	}

	routeSet := make(map[string]bool)
	for _, route := range routes {
		routeSet[route.Method+":"+route.Path] = true
	}

	for _, e := range expected {
		if !routeSet[e] {
			t.Errorf("Core route %s not registered", e)
		}
	}
}

// ---------------------------------------------------------------------------
// Auth enforcement tests
// ---------------------------------------------------------------------------

func TestCheckRequiresAPIKey(t *testing.T) {
	s := newTestServer(t)

	body := `{"transactionId":"tx_1","userId":"user_1","amount":50,"currency":"USD"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/fraud/check", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCheckWithServiceKey(t *testing.T) {
	s := newTestServer(t)
	key := issueKey(t, s, "svc-checkout", auth.RoleService)

	body := `{"transactionId":"tx_1","userId":"user_1","amount":50,"currency":"USD"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/fraud/check", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["result"] == nil {
		t.Error("Expected result in check response")
	}
}

func TestReviewRequiresReviewerRole(t *testing.T) {
	s := newTestServer(t)
	serviceKey := issueKey(t, s, "svc-checkout", auth.RoleService)

	body := `{"transactionId":"tx_1","decision":"approve","reviewerId":"analyst_1"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/fraud/review", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+serviceKey)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for service key on review route, got %d", w.Code)
	}
}

func TestReviewerCanListPending(t *testing.T) {
	s := newTestServer(t)
	reviewerKey := issueKey(t, s, "analyst_1", auth.RoleReviewer)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/fraud/reviews/pending", nil)
	req.Header.Set("Authorization", "Bearer "+reviewerKey)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAdminSecretBootstrapsKeys(t *testing.T) {
	s := newTestServer(t)

	body := `{"actor":"svc-checkout","role":"service","name":"checkout key"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/auth/keys", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Secret", "test-admin-secret")
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["apiKey"] == nil || resp["apiKey"] == "" {
		t.Error("Expected apiKey in creation response")
	}
}

func TestWrongAdminSecretRejected(t *testing.T) {
	s := newTestServer(t)

	body := `{"actor":"svc-checkout"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/auth/keys", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Secret", "wrong")
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}

func TestTrainRequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	reviewerKey := issueKey(t, s, "analyst_1", auth.RoleReviewer)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/fraud/train", nil)
	req.Header.Set("Authorization", "Bearer "+reviewerKey)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", w.Code)
	}

	adminKey := issueKey(t, s, "ops", auth.RoleAdmin)
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/v1/fraud/train", nil)
	req.Header.Set("Authorization", "Bearer "+adminKey)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("Expected 202, got %d: %s", w.Code, w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// 404 test
// ---------------------------------------------------------------------------

func TestNotFoundRoute(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/nonexistent", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}
