package health

import (
	"context"
	"sync"
	"testing"
)

func TestRegistryEmpty(t *testing.T) {
	r := NewRegistry()
	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Fatal("empty registry should be healthy")
	}
	if len(statuses) != 0 {
		t.Fatalf("expected 0 statuses, got %d", len(statuses))
	}
}

func TestRegistryAllHealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("database", func(_ context.Context) Status {
		return Status{Name: "database", Healthy: true}
	})
	r.Register("alert_hub", func(_ context.Context) Status {
		return Status{Name: "alert_hub", Healthy: true, Detail: "3 clients"}
	})

	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Fatal("all-healthy registry should report healthy")
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
}

func TestRegistryOneUnhealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("database", func(_ context.Context) Status {
		return Status{Name: "database", Healthy: true}
	})
	r.Register("alert_hub", func(_ context.Context) Status {
		return Status{Name: "alert_hub", Healthy: false, Detail: "hub stopped"}
	})

	healthy, statuses := r.CheckAll(context.Background())
	if healthy {
		t.Fatal("registry with unhealthy checker should report unhealthy")
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[1].Detail != "hub stopped" {
		t.Fatalf("expected detail 'hub stopped', got %q", statuses[1].Detail)
	}
}

func TestRegistryPreservesOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"database", "alert_hub", "notifier"} {
		n := name
		r.Register(n, func(_ context.Context) Status {
			return Status{Name: n, Healthy: true}
		})
	}

	_, statuses := r.CheckAll(context.Background())
	want := []string{"database", "alert_hub", "notifier"}
	for i, w := range want {
		if statuses[i].Name != w {
			t.Fatalf("statuses[%d].Name = %q, want %q", i, statuses[i].Name, w)
		}
	}
}

func TestRegistryConcurrentRegisterAndCheck(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Register("checker", func(_ context.Context) Status {
				return Status{Name: "checker", Healthy: true}
			})
		}()
	}

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.CheckAll(context.Background())
		}()
	}

	wg.Wait()
}
