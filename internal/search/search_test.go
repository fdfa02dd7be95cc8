package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/diligentia/internal/cache"
	"github.com/ppiankov/diligentia/internal/model"
)

func newTestServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		if r.URL.Query().Get("q") == "" {
			t.Errorf("expected q parameter")
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("expected bearer auth header, got %q", r.Header.Get("Authorization"))
		}
		resp := map[string]any{
			"results": []map[string]string{
				{"url": "https://reuters.com/acme", "title": "Acme raises", "snippet": "Acme raised $5M"},
				{"url": "https://reuters.com/acme/", "title": "duplicate"},
				{"link": "https://example.org/acme", "title": "Acme profile", "content": "Founded in 2019"},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestClient_Search(t *testing.T) {
	server := newTestServer(t, nil)
	defer server.Close()

	client := NewClient(model.SearchConfig{Endpoint: server.URL, APIKey: "secret"}, model.HTTPConfig{}, nil)
	results, err := client.Search(context.Background(), "acme", ModeFast, 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 deduplicated results, got %d", len(results))
	}
	if results[1].URL != "https://example.org/acme" || results[1].Snippet != "Founded in 2019" {
		t.Errorf("expected link/content aliases to be decoded, got %+v", results[1])
	}
}

func TestClient_Search_Limit(t *testing.T) {
	server := newTestServer(t, nil)
	defer server.Close()

	client := NewClient(model.SearchConfig{Endpoint: server.URL, APIKey: "secret"}, model.HTTPConfig{}, nil)
	results, err := client.Search(context.Background(), "acme", ModeBalanced, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("expected results capped at 1, got %d", len(results))
	}
}

func TestClient_Search_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(model.SearchConfig{Endpoint: server.URL}, model.HTTPConfig{}, nil)
	if _, err := client.Search(context.Background(), "acme", ModeFast, 3); err == nil {
		t.Error("expected error for 502 response")
	}
}

func TestClient_NoEndpoint(t *testing.T) {
	client := NewClient(model.SearchConfig{}, model.HTTPConfig{}, nil)
	if _, err := client.Search(context.Background(), "acme", ModeFast, 3); err != ErrNoEndpoint {
		t.Errorf("expected ErrNoEndpoint, got %v", err)
	}
}

func TestCached_Search(t *testing.T) {
	var hits int32
	server := newTestServer(t, &hits)
	defer server.Close()

	inner := NewClient(model.SearchConfig{Endpoint: server.URL, APIKey: "secret"}, model.HTTPConfig{}, nil)
	s := NewCached(inner, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute)

	for i := 0; i < 3; i++ {
		results, err := s.Search(context.Background(), "Acme ", ModeFast, 5)
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("expected 1 upstream request, got %d", hits)
	}

	if _, err := s.Search(context.Background(), "acme", ModeThorough, 5); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Errorf("expected a different mode to miss the cache, got %d hits", hits)
	}
}

func TestCached_ErrorsNotCached(t *testing.T) {
	calls := 0
	inner := SearcherFunc(func(ctx context.Context, query string, mode Mode, maxResults int) ([]Result, error) {
		calls++
		if calls == 1 {
			return nil, context.DeadlineExceeded
		}
		return []Result{{URL: "https://a.example"}}, nil
	})
	s := NewCached(inner, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute)

	if _, err := s.Search(context.Background(), "q", ModeFast, 1); err == nil {
		t.Fatal("expected first call to fail")
	}
	results, err := s.Search(context.Background(), "q", ModeFast, 1)
	if err != nil || len(results) != 1 {
		t.Errorf("expected retry to reach upstream, got %v %v", results, err)
	}
}

func TestNew_NoEndpoint(t *testing.T) {
	if _, ok := New(model.SearchConfig{}, model.HTTPConfig{}, nil).(None); !ok {
		t.Error("expected None searcher without endpoint")
	}
	if _, err := (None{}).Search(context.Background(), "acme", ModeFast, 3); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		err  bool
	}{
		{"fast", ModeFast, false},
		{"", ModeBalanced, false},
		{"THOROUGH", ModeThorough, false},
		{"deep", ModeBalanced, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("ParseMode(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestResult_Text(t *testing.T) {
	if got := (Result{Title: "A", Snippet: "B"}).Text(); got != "A. B" {
		t.Errorf("unexpected text %q", got)
	}
	if got := (Result{Snippet: "B"}).Text(); got != "B" {
		t.Errorf("unexpected text %q", got)
	}
}
