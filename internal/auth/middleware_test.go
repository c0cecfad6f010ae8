package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupMiddlewareTest() (*Manager, string, *APIKey) {
	store := NewMemoryStore()
	mgr := NewManager(store)
	rawKey, key, _ := mgr.GenerateKey(context.Background(), "checkout", RoleService, "test-key")
	return mgr, rawKey, key
}

// --- Middleware() ---

func TestMiddleware_ValidKey_SetsContext(t *testing.T) {
	mgr, rawKey, _ := setupMiddlewareTest()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/test", nil)
	c.Request.Header.Set("Authorization", rawKey)

	handler := Middleware(mgr)
	handler(c)

	// Should set actor
	actor, exists := c.Get(ContextKeyActor)
	if !exists {
		t.Fatal("Expected actor to be set in context")
	}
	if actor.(string) != "checkout" {
		t.Errorf("Expected checkout, got %s", actor.(string))
	}

	// Should set API key object
	key, exists := c.Get(ContextKeyAPIKey)
	if !exists {
		t.Fatal("Expected API key to be set in context")
	}
	if key.(*APIKey).Name != "test-key" {
		t.Errorf("Expected key name 'test-key', got %s", key.(*APIKey).Name)
	}
}

func TestMiddleware_ValidKeyViaXAPIKey(t *testing.T) {
	mgr, rawKey, _ := setupMiddlewareTest()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/test", nil)
	c.Request.Header.Set("X-API-Key", rawKey)

	Middleware(mgr)(c)

	if _, exists := c.Get(ContextKeyActor); !exists {
		t.Error("Expected actor set via X-API-Key header")
	}
}

func TestMiddleware_InvalidKey_DoesNotAbort(t *testing.T) {
	mgr, _, _ := setupMiddlewareTest()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/test", nil)
	c.Request.Header.Set("Authorization", "sk_invalidkey000000000000000000000000000000000000000000000000000000")

	Middleware(mgr)(c)

	// Should NOT set context
	if _, exists := c.Get(ContextKeyAPIKey); exists {
		t.Error("Expected API key NOT to be set for invalid key")
	}

	// Should NOT abort (soft auth)
	if c.IsAborted() {
		t.Error("Middleware should not abort on invalid key")
	}
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 (pass-through), got %d", w.Code)
	}
}

func TestMiddleware_MissingHeader_PassesThrough(t *testing.T) {
	mgr, _, _ := setupMiddlewareTest()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/test", nil)

	Middleware(mgr)(c)

	if _, exists := c.Get(ContextKeyAPIKey); exists {
		t.Error("Expected no API key in context when header missing")
	}
	if c.IsAborted() {
		t.Error("Middleware should not abort when header missing")
	}
}

func TestMiddleware_RevokedKey_DoesNotSetContext(t *testing.T) {
	mgr, rawKey, key := setupMiddlewareTest()
	_ = mgr.RevokeKey(context.Background(), key.ID, "checkout")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/test", nil)
	c.Request.Header.Set("Authorization", rawKey)

	Middleware(mgr)(c)

	if _, exists := c.Get(ContextKeyAPIKey); exists {
		t.Error("Expected revoked key NOT to set context")
	}
	if c.IsAborted() {
		t.Error("Middleware should not abort on revoked key")
	}
}

// --- RequireAuth() ---

func TestRequireAuth_NoAuth_Returns401(t *testing.T) {
	mgr, _, _ := setupMiddlewareTest()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/test", nil)

	RequireAuth(mgr)(c)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
	if !c.IsAborted() {
		t.Error("Expected request to be aborted")
	}
}

func TestRequireAuth_WithAuth_Passes(t *testing.T) {
	mgr, _, _ := setupMiddlewareTest()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/test", nil)
	c.Set(ContextKeyAPIKey, &APIKey{Actor: "checkout", Role: RoleService})

	RequireAuth(mgr)(c)

	if c.IsAborted() {
		t.Error("Expected request to pass through when authenticated")
	}
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

// --- RequireRole() ---

func TestRequireRole_NoAuth_Returns401(t *testing.T) {
	mgr, _, _ := setupMiddlewareTest()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("POST", "/v1/fraud/review", nil)

	RequireRole(mgr, RoleReviewer)(c)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}

func TestRequireRole_InsufficientRole_Returns403(t *testing.T) {
	mgr, _, _ := setupMiddlewareTest()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("POST", "/v1/fraud/review", nil)
	c.Set(ContextKeyAPIKey, &APIKey{Actor: "checkout", Role: RoleService})

	RequireRole(mgr, RoleReviewer)(c)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", w.Code)
	}
}

func TestRequireRole_SufficientRole_Passes(t *testing.T) {
	mgr, _, _ := setupMiddlewareTest()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("POST", "/v1/fraud/review", nil)
	c.Set(ContextKeyAPIKey, &APIKey{Actor: "ops", Role: RoleReviewer})

	RequireRole(mgr, RoleReviewer)(c)

	if c.IsAborted() {
		t.Error("Expected reviewer to pass reviewer gate")
	}
}

func TestRequireRole_AdminSatisfiesReviewer(t *testing.T) {
	mgr, _, _ := setupMiddlewareTest()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("POST", "/v1/fraud/review", nil)
	c.Set(ContextKeyAPIKey, &APIKey{Actor: "ops", Role: RoleAdmin})

	RequireRole(mgr, RoleReviewer)(c)

	if c.IsAborted() {
		t.Error("Expected admin to pass reviewer gate")
	}
}

// --- Helper functions ---

func TestGetAPIKey_Present(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	expected := &APIKey{ID: "key_test", Actor: "checkout"}
	c.Set(ContextKeyAPIKey, expected)

	key, ok := GetAPIKey(c)
	if !ok {
		t.Fatal("Expected GetAPIKey to return true")
	}
	if key.ID != "key_test" {
		t.Errorf("Expected key ID key_test, got %s", key.ID)
	}
}

func TestGetAPIKey_Missing(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	_, ok := GetAPIKey(c)
	if ok {
		t.Error("Expected GetAPIKey to return false when no key in context")
	}
}

func TestGetAuthenticatedActor_Present(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(ContextKeyActor, "checkout")

	actor := GetAuthenticatedActor(c)
	if actor != "checkout" {
		t.Errorf("Expected checkout, got %s", actor)
	}
}

func TestGetAuthenticatedActor_Missing(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	actor := GetAuthenticatedActor(c)
	if actor != "" {
		t.Errorf("Expected empty string, got %s", actor)
	}
}

func TestIsAuthenticated_True(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(ContextKeyAPIKey, &APIKey{})

	if !IsAuthenticated(c) {
		t.Error("Expected IsAuthenticated to return true")
	}
}

func TestIsAuthenticated_False(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	if IsAuthenticated(c) {
		t.Error("Expected IsAuthenticated to return false")
	}
}
