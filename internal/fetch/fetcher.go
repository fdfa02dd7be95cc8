// Package fetch retrieves evidence pages for branches, politely: robots.txt
// is honoured, requests are rate limited per host, and bodies are size capped.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ppiankov/diligentia/internal/model"
	"github.com/ppiankov/diligentia/internal/worker"
)

const fetchMaxRetries = 3

// fetchSleepFunc is the sleep function used between retries (injectable for tests)
var fetchSleepFunc = time.Sleep

// ErrDisallowed is returned when robots.txt forbids the fetch
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Page is a fetched evidence page
type Page struct {
	URL          string
	FinalURL     string
	StatusCode   int
	ContentType  string
	HTML         string
	LastModified *time.Time
	FetchedAt    time.Time
}

// Fetcher fetches HTML pages
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *RobotsChecker
	limiter    *worker.Limiter
}

// NewFetcher creates a fetcher. A nil limiter disables rate limiting;
// respectRobots=false skips robots.txt.
func NewFetcher(cfg model.HTTPConfig, limiter *worker.Limiter) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
		limiter:   limiter,
	}
	if cfg.RespectRobots {
		f.robots = NewRobotsChecker(cfg.UserAgent, timeout)
	}
	return f
}

// Fetch retrieves one page
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		if f.limiter != nil && delay > 0 {
			if err := f.limiter.WaitWithDelay(ctx, rawURL, delay); err != nil {
				return nil, err
			}
		}
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	page := &Page{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		HTML:        string(body),
		FetchedAt:   time.Now().UTC(),
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			page.LastModified = &t
		}
	}
	return page, nil
}

// FetchWithRetry retries 5xx and 429 responses with exponential backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*Page, error) {
	var lastErr error
	for attempt := 0; attempt < fetchMaxRetries; attempt++ {
		page, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return page, nil
		}
		lastErr = err

		var statusErr *StatusError
		if !errors.As(err, &statusErr) || !statusErr.Retryable() {
			return nil, err
		}
		if attempt < fetchMaxRetries-1 {
			fetchSleepFunc(time.Duration(1<<uint(attempt)) * time.Second)
		}
	}
	return nil, lastErr
}

// StatusError is a non-2xx response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// Retryable reports whether the status is transient
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || (e.Code >= 500 && e.Code < 600)
}
