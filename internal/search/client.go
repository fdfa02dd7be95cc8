package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ppiankov/diligentia/internal/fetch"
	"github.com/ppiankov/diligentia/internal/model"
	"github.com/ppiankov/diligentia/internal/worker"
)

// ErrNoEndpoint is returned when the client has no endpoint configured
var ErrNoEndpoint = errors.New("search endpoint not configured")

// Client queries a JSON search API:
//
//	GET {endpoint}?q=...&mode=fast|balanced|thorough&limit=N
//
// The response is {"results": [{"url", "title", "snippet"}]}. "content" and
// "description" are accepted as snippet aliases.
type Client struct {
	endpoint   string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	limiter    *worker.Limiter
}

// NewClient creates a search API client. A nil limiter disables rate limiting.
func NewClient(cfg model.SearchConfig, httpCfg model.HTTPConfig, limiter *worker.Limiter) *Client {
	timeout := httpCfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		endpoint:  cfg.Endpoint,
		apiKey:    cfg.APIKey,
		userAgent: httpCfg.UserAgent,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: fetch.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
			},
		},
		limiter: limiter,
	}
}

type apiResult struct {
	URL         string `json:"url"`
	Link        string `json:"link"`
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

type apiResponse struct {
	Results []apiResult `json:"results"`
	Error   string      `json:"error,omitempty"`
}

// Search implements Searcher
func (c *Client) Search(ctx context.Context, query string, mode Mode, maxResults int) ([]Result, error) {
	if c.endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := reqURL.Query()
	q.Set("q", query)
	q.Set("mode", string(mode))
	q.Set("limit", strconv.Itoa(maxResults))
	reqURL.RawQuery = q.Encode()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, reqURL.String()); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API error (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	var decoded apiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("search API error: %s", decoded.Error)
	}

	results := make([]Result, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		results = append(results, Result{
			URL:     firstNonEmpty(r.URL, r.Link),
			Title:   r.Title,
			Snippet: firstNonEmpty(r.Snippet, r.Content, r.Description),
		})
	}
	results = dedupe(results)
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
