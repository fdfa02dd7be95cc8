package validate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/diligentia/internal/fetch"
	"github.com/ppiankov/diligentia/internal/model"
)

const checkMaxRetries = 3

// checkSleepFunc is the sleep function used between retries (injectable for tests)
var checkSleepFunc = time.Sleep

// Liveness is the result of checking one URL
type Liveness struct {
	URL          string            `json:"url"`
	Reachable    bool              `json:"reachable"`
	StatusCode   int               `json:"status_code,omitempty"`
	LastModified *time.Time        `json:"last_modified,omitempty"`
	AgeDays      *int              `json:"age_days,omitempty"`
	IsDead       bool              `json:"is_dead"`
	RedirectURL  string            `json:"redirect_url,omitempty"`
	Reliability  model.Reliability `json:"reliability"`
	Error        string            `json:"error,omitempty"`
}

// LivenessChecker checks that source URLs resolve, concurrently
type LivenessChecker struct {
	httpClient *http.Client
	maxWorkers int
	classifier *ReliabilityClassifier
	userAgent  string
}

// NewLivenessChecker creates a liveness checker
func NewLivenessChecker(timeout time.Duration, maxWorkers int, classifier *ReliabilityClassifier, httpCfg model.HTTPConfig) *LivenessChecker {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}
	if classifier == nil {
		classifier = NewReliabilityClassifier(nil)
	}
	userAgent := httpCfg.UserAgent
	if userAgent == "" {
		userAgent = model.DefaultConfig().HTTP.UserAgent
	}

	return &LivenessChecker{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: fetch.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		maxWorkers: maxWorkers,
		classifier: classifier,
		userAgent:  userAgent,
	}
}

// Check checks every URL, preserving input order
func (p *LivenessChecker) Check(ctx context.Context, urls []string) []Liveness {
	if len(urls) == 0 {
		return []Liveness{}
	}

	results := make([]Liveness, len(urls))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, p.maxWorkers)

	for i, u := range urls {
		wg.Add(1)
		go func(idx int, rawURL string) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = Liveness{URL: rawURL, Error: "context cancelled"}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = p.checkWithRetry(ctx, rawURL)
		}(i, u)
	}

	wg.Wait()
	return results
}

// checkOne issues a HEAD request and records status and Last-Modified age
func (p *LivenessChecker) checkOne(ctx context.Context, rawURL string) Liveness {
	result := Liveness{
		URL:         rawURL,
		Reliability: p.classifier.Classify(rawURL),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		result.Error = fmt.Sprintf("create request: %v", err)
		result.IsDead = true
		return result
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		result.IsDead = true
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		result.Reachable = true
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		result.IsDead = true
	}

	if final := resp.Request.URL.String(); final != rawURL {
		result.RedirectURL = final
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			result.LastModified = &t
			age := int(time.Since(t).Hours() / 24)
			result.AgeDays = &age
		}
	}

	return result
}

// checkWithRetry retries transient failures with exponential backoff
func (p *LivenessChecker) checkWithRetry(ctx context.Context, rawURL string) Liveness {
	var result Liveness
	for attempt := 0; attempt < checkMaxRetries; attempt++ {
		result = p.checkOne(ctx, rawURL)
		if !isRetryable(result) || ctx.Err() != nil {
			return result
		}
		if attempt < checkMaxRetries-1 {
			checkSleepFunc(time.Duration(1<<uint(attempt)) * time.Second)
		}
	}
	return result
}

// isRetryable returns true for 5xx, 429 and transient network errors
func isRetryable(result Liveness) bool {
	if result.StatusCode >= 500 && result.StatusCode < 600 {
		return true
	}
	if result.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if result.Error != "" {
		s := strings.ToLower(result.Error)
		return strings.Contains(s, "timeout") ||
			strings.Contains(s, "connection refused") ||
			strings.Contains(s, "connection reset")
	}
	return false
}
