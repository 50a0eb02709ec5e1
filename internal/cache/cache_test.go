package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryProviderExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider, err := NewMemoryProvider(8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	provider.now = func() time.Time { return now }

	if err := provider.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, err := provider.Get(ctx, "k"); err != nil || got != "v" {
		t.Fatalf("unexpected get: got=%q err=%v", got, err)
	}

	now = now.Add(time.Minute)
	if _, err := provider.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}

	if err := provider.Set(ctx, "forever", "v", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	now = now.Add(365 * 24 * time.Hour)
	if _, err := provider.Get(ctx, "forever"); err != nil {
		t.Fatalf("zero ttl should not expire: %v", err)
	}
}

func TestMemoryProviderSetIfAbsent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider, err := NewMemoryProvider(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := provider.SetIfAbsent(ctx, "idem", "first", time.Hour)
	if err != nil || !stored {
		t.Fatalf("expected first write to win: stored=%v err=%v", stored, err)
	}
	stored, err = provider.SetIfAbsent(ctx, "idem", "second", time.Hour)
	if err != nil || stored {
		t.Fatalf("expected second write to lose: stored=%v err=%v", stored, err)
	}
	if got, _ := provider.Get(ctx, "idem"); got != "first" {
		t.Fatalf("unexpected value: got=%q want=%q", got, "first")
	}

	if err := provider.Delete(ctx, "idem"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored, _ := provider.SetIfAbsent(ctx, "idem", "third", time.Hour); !stored {
		t.Fatalf("expected write after delete to win")
	}
}

func TestNewProvider(t *testing.T) {
	t.Parallel()

	if _, err := NewProvider(Config{Provider: "memcached"}); err == nil {
		t.Fatalf("expected unsupported provider error")
	}
	provider, err := NewProvider(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := provider.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()

	if got := IdempotencyKey(" Buyer@Example.com ", "abc"); got != "idem:order:create:buyer@example.com:abc" {
		t.Fatalf("unexpected idempotency key: %q", got)
	}
	if got := DedupKey("notifier", "evt-1"); got != "dedup:notifier:evt-1" {
		t.Fatalf("unexpected dedup key: %q", got)
	}
	if got := AnalyticsKey("Admin", "7 Days"); got != "analytics:admin:7days" {
		t.Fatalf("unexpected analytics key: %q", got)
	}
}
