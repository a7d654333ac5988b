package crawler

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter enforces per-host politeness: a fixed delay between requests
// to the same host and, optionally, a token-bucket request rate.
//
// A nil *HostLimiter never waits.
type HostLimiter struct {
	delay time.Duration
	rps   float64
	burst int

	mu       sync.Mutex
	next     map[string]time.Time
	limiters map[string]*rate.Limiter
}

// NewHostLimiter creates a limiter. It returns nil when neither a delay nor
// a rate is configured.
func NewHostLimiter(delay time.Duration, requestsPerSecond float64, burst int) *HostLimiter {
	if delay <= 0 && requestsPerSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &HostLimiter{
		delay:    delay,
		rps:      requestsPerSecond,
		burst:    burst,
		next:     make(map[string]time.Time),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to host may be sent, or ctx is done.
//
// The delay slot is reserved before sleeping, so concurrent callers for the
// same host are spaced out instead of all waking at once.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	if l == nil || host == "" {
		return nil
	}
	host = strings.ToLower(host)

	var sleep time.Duration
	var limiter *rate.Limiter

	l.mu.Lock()
	if l.delay > 0 {
		now := time.Now()
		slot := l.next[host]
		if slot.Before(now) {
			slot = now
		}
		sleep = slot.Sub(now)
		l.next[host] = slot.Add(l.delay)
	}
	if l.rps > 0 {
		limiter = l.limiters[host]
		if limiter == nil {
			limiter = rate.NewLimiter(rate.Limit(l.rps), l.burst)
			l.limiters[host] = limiter
		}
	}
	l.mu.Unlock()

	if sleep > 0 {
		timer := time.NewTimer(sleep)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if limiter != nil {
		return limiter.Wait(ctx)
	}
	return nil
}
