package ratelimit

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mastobridge/mastobridge/internal/cache"
)

func TestCheckAllowsWithinCapacity(t *testing.T) {
	lim := New(cache.NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		d, err := lim.Check(ctx, "unauth", "1.2.3.4", 5)
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("request %d: expected allow, capacity=5", i)
		}
	}

	d, err := lim.Check(ctx, "unauth", "1.2.3.4", 5)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d.Allowed {
		t.Fatal("6th request within the window should be denied")
	}
}

func TestCheckRefillsOverTime(t *testing.T) {
	var clock atomic.Int64
	clock.Store(time.Now().UnixMilli())

	lim := New(cache.NewMemoryStore())
	lim.nowFunc = func() time.Time { return time.UnixMilli(clock.Load()) }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if d, err := lim.Check(ctx, "unauth", "9.9.9.9", 3); err != nil || !d.Allowed {
			t.Fatalf("request %d: d=%+v err=%v", i, d, err)
		}
	}
	if d, _ := lim.Check(ctx, "unauth", "9.9.9.9", 3); d.Allowed {
		t.Fatal("bucket should be exhausted")
	}

	// Advance past the full window: bucket should fully refill.
	clock.Add(Window.Milliseconds() + 1)

	d, err := lim.Check(ctx, "unauth", "9.9.9.9", 3)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.Allowed {
		t.Fatal("bucket should have refilled after a full window")
	}
}

func TestCheckIsPerKey(t *testing.T) {
	lim := New(cache.NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if d, err := lim.Check(ctx, "unauth", "a", 2); err != nil || !d.Allowed {
			t.Fatalf("key a request %d: d=%+v err=%v", i, d, err)
		}
	}
	if d, _ := lim.Check(ctx, "unauth", "a", 2); d.Allowed {
		t.Fatal("key a should be exhausted")
	}

	d, err := lim.Check(ctx, "unauth", "b", 2)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.Allowed {
		t.Fatal("key b is independent of key a and should still allow")
	}
}

func TestHashKeyIsStable(t *testing.T) {
	a := HashKey("did:plc:alice")
	b := HashKey("did:plc:alice")
	if a != b {
		t.Fatal("HashKey must be deterministic")
	}
	if a == HashKey("did:plc:bob") {
		t.Fatal("HashKey should differ for different inputs")
	}
}
