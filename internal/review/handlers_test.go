package review

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chaingive/fraudguard/internal/fraud"
)

func setupRouter(t *testing.T) (*gin.Engine, *fraud.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, checks := testService(t)
	r := gin.New()
	v1 := r.Group("/v1")
	NewHandler(svc).RegisterRoutes(v1)
	return r, checks
}

func request(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestReviewEndpoint(t *testing.T) {
	r, checks := setupRouter(t)
	seedCheck(t, checks, "tx-1", fraud.RiskHigh, time.Now())

	w := request(t, r, http.MethodPost, "/v1/fraud/review", gin.H{
		"transactionId": "tx-1",
		"decision":      "deny",
		"reviewerId":    "reviewer-1",
		"reason":        "confirmed fraud",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Review *ReviewCase `json:"review"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Review.Decision != DecisionDeny {
		t.Errorf("unexpected review: %+v", resp.Review)
	}

	w = request(t, r, http.MethodPost, "/v1/fraud/review", gin.H{
		"transactionId": "tx-1",
		"decision":      "reject",
		"reviewerId":    "reviewer-1",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad decision, got %d", w.Code)
	}

	w = request(t, r, http.MethodPost, "/v1/fraud/review", gin.H{
		"transactionId": "tx-unchecked",
		"decision":      "approve",
		"reviewerId":    "reviewer-1",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unchecked transaction, got %d", w.Code)
	}

	w = request(t, r, http.MethodPost, "/v1/fraud/review", gin.H{"decision": "approve"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing fields, got %d", w.Code)
	}
}

func TestPendingEndpoint(t *testing.T) {
	r, checks := setupRouter(t)
	now := time.Now()
	seedCheck(t, checks, "tx-1", fraud.RiskMedium, now.Add(-time.Hour))
	seedCheck(t, checks, "tx-2", fraud.RiskHigh, now)

	w := request(t, r, http.MethodGet, "/v1/fraud/reviews/pending", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Reviews []*PendingItem `json:"reviews"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Reviews) != 2 {
		t.Errorf("expected 2 pending, got %d", len(resp.Reviews))
	}

	w = request(t, r, http.MethodGet, "/v1/fraud/reviews/pending?riskLevel=high", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Reviews) != 1 || resp.Reviews[0].Check.TransactionID != "tx-2" {
		t.Errorf("unexpected filtered result: %+v", resp.Reviews)
	}

	w = request(t, r, http.MethodGet, "/v1/fraud/reviews/pending?riskLevel=low", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for low filter, got %d", w.Code)
	}
}
