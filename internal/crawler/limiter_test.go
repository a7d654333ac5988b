package crawler

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestNewHostLimiter tests that a limiter without settings is disabled.
func TestNewHostLimiter(t *testing.T) {
	t.Parallel()

	if l := NewHostLimiter(0, 0, 0); l != nil {
		t.Errorf("expected nil limiter, got %+v", l)
	}

	var l *HostLimiter
	if err := l.Wait(context.Background(), "example.com"); err != nil {
		t.Errorf("nil limiter should never wait, got %v", err)
	}
}

// TestHostLimiterDelay tests the per-host delay.
func TestHostLimiterDelay(t *testing.T) {
	t.Parallel()

	delay := 50 * time.Millisecond
	l := NewHostLimiter(delay, 0, 0)
	ctx := context.Background()

	start := time.Now()
	for range 3 {
		if err := l.Wait(ctx, "Example.com"); err != nil {
			t.Fatalf("Wait() error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 2*delay {
		t.Errorf("expected at least %v for 3 requests, took %v", 2*delay, elapsed)
	}

	// Other hosts have their own slot.
	start = time.Now()
	if err := l.Wait(ctx, "other.org"); err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed >= delay {
		t.Errorf("first request to a new host should not wait, took %v", elapsed)
	}
}

// TestHostLimiterRate tests the token bucket rate.
func TestHostLimiterRate(t *testing.T) {
	t.Parallel()

	l := NewHostLimiter(0, 20, 1)
	ctx := context.Background()

	start := time.Now()
	for range 3 {
		if err := l.Wait(ctx, "example.com"); err != nil {
			t.Fatalf("Wait() error: %v", err)
		}
	}
	// 20 req/s with burst 1: the 2nd and 3rd request wait ~50ms each.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected rate limiting, took only %v", elapsed)
	}
}

// TestHostLimiterCancel tests that waiting honors context cancellation.
func TestHostLimiterCancel(t *testing.T) {
	t.Parallel()

	l := NewHostLimiter(time.Hour, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())

	if err := l.Wait(ctx, "example.com"); err != nil {
		t.Fatalf("first Wait() error: %v", err)
	}

	cancel()
	err := l.Wait(ctx, "example.com")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
