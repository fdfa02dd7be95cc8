package worker

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter rate limits outbound requests per host, so a job fanning out many
// branches does not hammer one search endpoint or registry.
type Limiter struct {
	mu           sync.Mutex
	hosts        map[string]*rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter allowing requestsPerSecond per host
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = float64(rate.Inf)
	}
	return &Limiter{
		hosts:        make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait blocks until a request to rawURL's host is allowed
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := hostOf(rawURL)
	if err != nil {
		return err
	}
	return l.forHost(host).Wait(ctx)
}

// Allow reports whether a request may proceed now, consuming a token if so
func (l *Limiter) Allow(rawURL string) bool {
	host, err := hostOf(rawURL)
	if err != nil {
		return false
	}
	return l.forHost(host).Allow()
}

// WaitWithDelay waits for clearance then sleeps for an extra delay, such as
// a robots.txt crawl delay
func (l *Limiter) WaitWithDelay(ctx context.Context, rawURL string, delay time.Duration) error {
	if err := l.Wait(ctx, rawURL); err != nil {
		return err
	}
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SetHostRate overrides the rate for a single host
func (l *Limiter) SetHostRate(host string, requestsPerSecond float64, burst int) {
	if burst <= 0 {
		burst = l.defaultBurst
	}
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hosts[strings.ToLower(host)] = rate.NewLimiter(limit, burst)
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.hosts[host]
	if !ok {
		lim = rate.NewLimiter(l.defaultRate, l.defaultBurst)
		l.hosts[host] = lim
	}
	return lim
}

// hostOf extracts the lower-cased host of a URL
func hostOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("no host in %q", rawURL)
	}
	return strings.ToLower(parsed.Host), nil
}
