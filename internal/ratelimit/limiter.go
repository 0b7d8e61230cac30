// Package ratelimit paces requests to upstream APIs.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	baseBackoff = 100 * time.Millisecond
	maxBackoff  = 2 * time.Minute
)

// Limiter wraps rate.Limiter with a backoff that grows while the upstream
// answers 429
type Limiter struct {
	limiter *rate.Limiter
	name    string
	mu      sync.Mutex
	backoff time.Duration
	limited bool
}

// NewLimiter creates a new rate limiter
// perMinute specifies the number of requests allowed per minute
func NewLimiter(name string, perMinute int) *Limiter {
	// Convert per-minute rate to per-second
	rps := float64(perMinute) / 60.0
	// Allow burst of up to 5 requests or 1/10th of per-minute limit
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	if burst > 5 {
		burst = 5
	}
	return newLimiter(name, rate.Limit(rps), burst)
}

// NewSpacedLimiter allows one request per interval without bursts
func NewSpacedLimiter(name string, interval time.Duration) *Limiter {
	if interval <= 0 {
		return newLimiter(name, rate.Inf, 1)
	}
	return newLimiter(name, rate.Every(interval), 1)
}

func newLimiter(name string, limit rate.Limit, burst int) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(limit, burst),
		name:    name,
		backoff: baseBackoff,
	}
}

// Wait blocks until a token is available or context is cancelled.
// After a rate limit signal it first sleeps for the current backoff.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	delay := time.Duration(0)
	if l.limited {
		delay = l.backoff
	}
	l.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether an event may happen now
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// SignalRateLimited should be called when a 429 response is received
// It applies exponential backoff
func (l *Limiter) SignalRateLimited() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.limited {
		l.backoff *= 2
	}
	l.limited = true
	if l.backoff > maxBackoff {
		l.backoff = maxBackoff
	}
}

// ResetBackoff resets the backoff duration after successful request
func (l *Limiter) ResetBackoff() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backoff = baseBackoff
	l.limited = false
}

// GetBackoff returns the delay Wait currently adds, zero when not limited
func (l *Limiter) GetBackoff() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.limited {
		return 0
	}
	return l.backoff
}

// Name returns the limiter name
func (l *Limiter) Name() string {
	return l.name
}
