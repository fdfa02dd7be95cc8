package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "http://example.com/foo"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "http://search.example.org"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "not-a-url"); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)

	start := time.Now()
	if err := limiter.WaitWithDelay(context.Background(), "http://example.com", 50*time.Millisecond); err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}
	if d := time.Since(start); d < 50*time.Millisecond {
		t.Errorf("expected delay >= 50ms, got %v", d)
	}
}

func TestLimiter_WaitWithDelay_Cancelled(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.WaitWithDelay(ctx, "http://example.com", time.Second); err == nil {
		t.Error("expected context error")
	}
}

func TestLimiter_PerHost(t *testing.T) {
	limiter := NewLimiter(1, 1)
	url := "http://example.com"

	if !limiter.Allow(url) {
		t.Error("first request should pass")
	}
	if limiter.Allow(url) {
		t.Error("expected second request to be limited")
	}
	if !limiter.Allow("http://other.com") {
		t.Error("expected other host to be allowed")
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	limiter.SetHostRate("slow.com", 0.1, 1)

	if !limiter.Allow("http://slow.com") {
		t.Error("first request should pass")
	}
	if limiter.Allow("http://slow.com/again") {
		t.Error("second request should fail")
	}
	if !limiter.Allow("http://fast.com") {
		t.Error("other host should pass")
	}
}

func TestHostOf(t *testing.T) {
	host, err := hostOf("http://Example.com/foo")
	if err != nil {
		t.Fatalf("hostOf failed: %v", err)
	}
	if host != "example.com" {
		t.Errorf("expected example.com, got %s", host)
	}
	if _, err := hostOf("::invalid"); err == nil {
		t.Error("expected error for invalid URL")
	}
}
