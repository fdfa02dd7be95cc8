package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsChecker caches robots.txt per host and answers fetch permission
type RobotsChecker struct {
	cache      map[string]*robotstxt.RobotsData
	mu         sync.RWMutex
	httpClient *http.Client
	userAgent  string
	agentToken string
}

// NewRobotsChecker creates a robots.txt checker
func NewRobotsChecker(userAgent string, timeout time.Duration) *RobotsChecker {
	return &RobotsChecker{
		cache:      make(map[string]*robotstxt.RobotsData),
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		agentToken: AgentToken(userAgent),
	}
}

// CanFetch reports whether rawURL may be fetched and the crawl delay to honour.
// An unreachable robots.txt allows the fetch.
func (r *RobotsChecker) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}

	data, err := r.robotsFor(ctx, parsed)
	if err != nil {
		return true, 0, nil
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	allowed := data.TestAgent(path, r.agentToken)

	var delay time.Duration
	if group := data.FindGroup(r.agentToken); group != nil {
		delay = group.CrawlDelay
	}
	return allowed, delay, nil
}

func (r *RobotsChecker) robotsFor(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	host := target.Host

	r.mu.RLock()
	data, ok := r.cache[host]
	r.mu.RUnlock()
	if ok {
		return data, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", target.Scheme, host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err = robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.mu.Lock()
	r.cache[host] = data
	r.mu.Unlock()

	return data, nil
}

// AgentToken reduces a User-Agent header to the product token robots.txt
// groups are matched against ("Diligentia/0.1 (+url)" -> "Diligentia").
func AgentToken(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) == 0 {
		return ua
	}
	return strings.Split(parts[0], "/")[0]
}
