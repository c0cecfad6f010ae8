package ledger

import (
	"context"
	"testing"
	"time"
)

func TestAccountRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.FindAccount(ctx, "user-1")
	if err != ErrAccountNotFound {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	created := time.Now().Add(-30 * 24 * time.Hour)
	if err := store.PutAccount(ctx, &Account{UserID: "user-1", TrustScore: 4.5, CreatedAt: created}); err != nil {
		t.Fatalf("put account: %v", err)
	}

	acct, err := store.FindAccount(ctx, "user-1")
	if err != nil {
		t.Fatalf("find account: %v", err)
	}
	if acct.TrustScore != 4.5 {
		t.Errorf("expected trust score 4.5, got %v", acct.TrustScore)
	}

	// returned account is a copy
	acct.TrustScore = 1.0
	again, _ := store.FindAccount(ctx, "user-1")
	if again.TrustScore != 4.5 {
		t.Error("mutating returned account should not affect store")
	}
}

func TestAccountAgeDays(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		created time.Time
		want    int
	}{
		{"new account", now.Add(-2 * time.Hour), 0},
		{"three days", now.Add(-3*24*time.Hour - time.Hour), 3},
		{"thirty days", now.Add(-30 * 24 * time.Hour), 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct := &Account{UserID: "u", CreatedAt: tt.created}
			if got := acct.AgeDays(now); got != tt.want {
				t.Errorf("AgeDays() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRecentTransactionsWindowAndOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	txs := []*Transaction{
		{ID: "tx-old", UserID: "user-1", Amount: 10, Currency: "USD", Status: StatusCompleted, CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "tx-mid", UserID: "user-1", Amount: 20, Currency: "USD", Status: StatusCompleted, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "tx-new", UserID: "user-1", Amount: 30, Currency: "USD", Status: StatusPending, CreatedAt: now.Add(-10 * time.Minute)},
		{ID: "tx-other", UserID: "user-2", Amount: 99, Currency: "USD", Status: StatusCompleted, CreatedAt: now},
	}
	for _, tx := range txs {
		if err := store.RecordTransaction(ctx, tx); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	recent, err := store.RecentTransactions(ctx, "user-1", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 transactions in window, got %d", len(recent))
	}
	if recent[0].ID != "tx-new" || recent[1].ID != "tx-mid" {
		t.Errorf("expected newest first, got %s then %s", recent[0].ID, recent[1].ID)
	}
}

func TestCompletedSince(t *testing.T) {
	now := time.Now()
	txs := []*Transaction{
		{ID: "a", Status: StatusCompleted, CreatedAt: now.Add(-time.Hour)},
		{ID: "b", Status: StatusPending, CreatedAt: now.Add(-time.Hour)},
		{ID: "c", Status: StatusFailed, CreatedAt: now.Add(-time.Hour)},
		{ID: "d", Status: StatusCompleted, CreatedAt: now.Add(-72 * time.Hour)},
	}
	got := CompletedSince(txs, now.Add(-24*time.Hour))
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("expected only completed tx within window, got %v", got)
	}
}

func TestCountTransactions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	for i, age := range []time.Duration{10 * time.Minute, 30 * time.Minute, 3 * time.Hour, 30 * time.Hour} {
		tx := &Transaction{ID: "tx-" + string(rune('a'+i)), UserID: "user-1", Amount: 1, Currency: "USD", Status: StatusCompleted, CreatedAt: now.Add(-age)}
		if err := store.RecordTransaction(ctx, tx); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	hourly, err := store.CountTransactions(ctx, "user-1", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if hourly != 2 {
		t.Errorf("expected 2 in last hour, got %d", hourly)
	}

	daily, err := store.CountTransactions(ctx, "user-1", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if daily != 3 {
		t.Errorf("expected 3 in last day, got %d", daily)
	}
}

func TestObserveIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.ObserveIP(ctx, "user-1", "203.0.113.7"); err != nil {
			t.Fatalf("observe ip: %v", err)
		}
		if err := store.ObserveDevice(ctx, "user-1", "fp-abc"); err != nil {
			t.Fatalf("observe device: %v", err)
		}
	}
	if err := store.ObserveIP(ctx, "user-1", ""); err != nil {
		t.Fatalf("observe empty ip: %v", err)
	}

	ips, err := store.KnownIPs(ctx, "user-1")
	if err != nil {
		t.Fatalf("known ips: %v", err)
	}
	if len(ips) != 1 || ips[0] != "203.0.113.7" {
		t.Errorf("expected single IP, got %v", ips)
	}

	devices, err := store.KnownDevices(ctx, "user-1")
	if err != nil {
		t.Fatalf("known devices: %v", err)
	}
	if len(devices) != 1 || devices[0] != "fp-abc" {
		t.Errorf("expected single device, got %v", devices)
	}
}
