package auth

import (
	"context"
	"strings"
	"testing"
)

func TestGenerateKey(t *testing.T) {
	store := NewMemoryStore()
	mgr := NewManager(store)
	ctx := context.Background()

	rawKey, key, err := mgr.GenerateKey(ctx, "payments-api", RoleService, "Test key")
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	// Check raw key format
	if !strings.HasPrefix(rawKey, "sk_") {
		t.Errorf("Expected raw key to start with sk_, got %s", rawKey[:10])
	}
	if len(rawKey) != 67 { // "sk_" + 64 hex chars
		t.Errorf("Expected raw key length 67, got %d", len(rawKey))
	}

	// Check key metadata
	if !strings.HasPrefix(key.ID, "key_") {
		t.Errorf("Expected key ID to start with key_, got %s", key.ID)
	}
	if key.Actor != "payments-api" {
		t.Errorf("Expected actor to match")
	}
	if key.Role != RoleService {
		t.Errorf("Expected role service, got %s", key.Role)
	}
	if key.Name != "Test key" {
		t.Errorf("Expected name 'Test key', got %s", key.Name)
	}
}

func TestGenerateKey_UnknownRole(t *testing.T) {
	mgr := NewManager(NewMemoryStore())
	_, _, err := mgr.GenerateKey(context.Background(), "payments-api", "superuser", "Bad role")
	if err == nil {
		t.Fatal("Expected error for unknown role")
	}
}

func TestValidateKey(t *testing.T) {
	store := NewMemoryStore()
	mgr := NewManager(store)
	ctx := context.Background()

	// Generate a key
	rawKey, _, err := mgr.GenerateKey(ctx, "Payments-API", RoleService, "Primary")
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	// Validate with correct key
	key, err := mgr.ValidateKey(ctx, rawKey)
	if err != nil {
		t.Errorf("ValidateKey failed for valid key: %v", err)
	}
	if key.Actor != "payments-api" { // lowercased
		t.Errorf("Expected actor payments-api, got %s", key.Actor)
	}

	// Validate with Bearer prefix
	_, err = mgr.ValidateKey(ctx, "Bearer "+rawKey)
	if err != nil {
		t.Errorf("ValidateKey failed with Bearer prefix: %v", err)
	}

	// Validate with wrong key
	_, err = mgr.ValidateKey(ctx, "sk_wrongkey12345678901234567890123456789012345678901234567890")
	if err != ErrInvalidAPIKey {
		t.Errorf("Expected ErrInvalidAPIKey for wrong key, got: %v", err)
	}

	// Validate with empty key
	_, err = mgr.ValidateKey(ctx, "")
	if err != ErrNoAPIKey {
		t.Errorf("Expected ErrNoAPIKey for empty key, got: %v", err)
	}

	// Validate with malformed key
	_, err = mgr.ValidateKey(ctx, "not_a_valid_key")
	if err != ErrInvalidAPIKey {
		t.Errorf("Expected ErrInvalidAPIKey for malformed key, got: %v", err)
	}
}

func TestAllows(t *testing.T) {
	tests := []struct {
		role     string
		required string
		want     bool
	}{
		{RoleService, RoleService, true},
		{RoleService, RoleReviewer, false},
		{RoleService, RoleAdmin, false},
		{RoleReviewer, RoleService, true},
		{RoleReviewer, RoleReviewer, true},
		{RoleReviewer, RoleAdmin, false},
		{RoleAdmin, RoleService, true},
		{RoleAdmin, RoleReviewer, true},
		{RoleAdmin, RoleAdmin, true},
	}

	for _, tt := range tests {
		key := &APIKey{Role: tt.role}
		if got := key.Allows(tt.required); got != tt.want {
			t.Errorf("role %s Allows(%s) = %v, want %v", tt.role, tt.required, got, tt.want)
		}
	}
}

func TestListKeys(t *testing.T) {
	store := NewMemoryStore()
	mgr := NewManager(store)
	ctx := context.Background()

	// Generate multiple keys for same actor
	mgr.GenerateKey(ctx, "checkout", RoleService, "Key 1")
	mgr.GenerateKey(ctx, "checkout", RoleService, "Key 2")
	mgr.GenerateKey(ctx, "ops-team", RoleReviewer, "Key 3")

	keys, err := mgr.ListKeys(ctx, "checkout")
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("Expected 2 keys for checkout, got %d", len(keys))
	}

	keys, err = mgr.ListKeys(ctx, "ops-team")
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("Expected 1 key for ops-team, got %d", len(keys))
	}
}

func TestRevokeKey(t *testing.T) {
	store := NewMemoryStore()
	mgr := NewManager(store)
	ctx := context.Background()

	rawKey, key, _ := mgr.GenerateKey(ctx, "checkout", RoleService, "To revoke")

	// Validate before revoke
	_, err := mgr.ValidateKey(ctx, rawKey)
	if err != nil {
		t.Errorf("Key should be valid before revoke")
	}

	// Revoke
	err = mgr.RevokeKey(ctx, key.ID, "checkout")
	if err != nil {
		t.Fatalf("RevokeKey failed: %v", err)
	}

	// Validate after revoke - should fail
	_, err = mgr.ValidateKey(ctx, rawKey)
	if err != ErrInvalidAPIKey {
		t.Errorf("Expected ErrInvalidAPIKey after revoke, got: %v", err)
	}
}

func TestKeyHashNotExposed(t *testing.T) {
	store := NewMemoryStore()
	mgr := NewManager(store)
	ctx := context.Background()

	rawKey, _, _ := mgr.GenerateKey(ctx, "checkout", RoleService, "Test")

	// Get key via ValidateKey
	key, _ := mgr.ValidateKey(ctx, rawKey)

	// Hash should not equal raw key
	if key.Hash == rawKey {
		t.Error("Hash should not equal raw key")
	}

	// Hash should be set
	if key.Hash == "" {
		t.Error("Hash should be set")
	}
}
