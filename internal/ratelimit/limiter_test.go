package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNewLimiter(t *testing.T) {
	limiter := NewLimiter("sec", 600) // 10 per second

	if limiter.Name() != "sec" {
		t.Errorf("Expected name 'sec', got '%s'", limiter.Name())
	}

	// First few requests should be allowed immediately (burst)
	for i := 0; i < 3; i++ {
		if !limiter.Allow() {
			t.Errorf("Request %d should have been allowed", i)
		}
	}
}

func TestSpacedLimiter(t *testing.T) {
	limiter := NewSpacedLimiter("twelvedata", 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	// first request is free, the next two are spaced
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("Expected requests to be spaced, took %v", elapsed)
	}
}

func TestSpacedLimiterUnlimited(t *testing.T) {
	limiter := NewSpacedLimiter("local", 0)
	for i := 0; i < 100; i++ {
		if !limiter.Allow() {
			t.Fatalf("Request %d should have been allowed", i)
		}
	}
}

func TestLimiterWait(t *testing.T) {
	limiter := NewLimiter("test", 120) // 2 per second

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Should complete quickly
	start := time.Now()
	err := limiter.Wait(ctx)
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if time.Since(start) > 1*time.Second {
		t.Error("Wait took too long")
	}
}

func TestLimiterBackoff(t *testing.T) {
	limiter := NewLimiter("test", 60)

	if limiter.GetBackoff() != 0 {
		t.Errorf("Expected no backoff before a rate limit, got %v", limiter.GetBackoff())
	}

	limiter.SignalRateLimited()
	after1 := limiter.GetBackoff()
	if after1 != baseBackoff {
		t.Errorf("Expected backoff %v after first signal, got %v", baseBackoff, after1)
	}

	limiter.SignalRateLimited()
	after2 := limiter.GetBackoff()
	if after2 != 2*after1 {
		t.Errorf("Expected backoff to double, got %v", after2)
	}

	limiter.ResetBackoff()
	if limiter.GetBackoff() != 0 {
		t.Error("Backoff should reset after a successful request")
	}
}

func TestLimiterBackoffCap(t *testing.T) {
	limiter := NewLimiter("test", 60)
	for i := 0; i < 30; i++ {
		limiter.SignalRateLimited()
	}
	if limiter.GetBackoff() != maxBackoff {
		t.Errorf("Expected backoff capped at %v, got %v", maxBackoff, limiter.GetBackoff())
	}
}

func TestWaitHonorsBackoff(t *testing.T) {
	limiter := NewSpacedLimiter("test", 0)
	limiter.SignalRateLimited()

	start := time.Now()
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < baseBackoff {
		t.Errorf("Expected Wait to sleep at least %v, took %v", baseBackoff, elapsed)
	}

	// cancelled while backing off
	limiter.SignalRateLimited()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx); err == nil {
		t.Error("Expected error from context cancelled during backoff")
	}
}

func TestLimiterContextCancellation(t *testing.T) {
	limiter := NewLimiter("test", 1) // Very slow rate

	// Exhaust the burst
	for i := 0; i < 5; i++ {
		limiter.Allow()
	}

	// Create a context that will be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := limiter.Wait(ctx)
	if err == nil {
		t.Error("Expected error from cancelled context")
	}
}
