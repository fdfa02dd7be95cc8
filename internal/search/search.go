// Package search is the web-search collaborator. Results are best-effort,
// unordered and untrusted: callers pattern-match snippets and never assume
// more schema than url, title and snippet.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Mode trades search depth against latency
type Mode string

const (
	ModeFast     Mode = "fast"
	ModeBalanced Mode = "balanced"
	ModeThorough Mode = "thorough"
)

// ParseMode converts a mode name, defaulting to balanced
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeFast:
		return ModeFast, nil
	case ModeBalanced, "":
		return ModeBalanced, nil
	case ModeThorough:
		return ModeThorough, nil
	default:
		return ModeBalanced, fmt.Errorf("unknown search mode %q", s)
	}
}

// Result is one search hit. Any field may be empty.
type Result struct {
	URL     string `json:"url,omitempty"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// Text joins title and snippet for pattern matching
func (r Result) Text() string {
	switch {
	case r.Title == "":
		return r.Snippet
	case r.Snippet == "":
		return r.Title
	default:
		return r.Title + ". " + r.Snippet
	}
}

// Searcher runs web searches
type Searcher interface {
	Search(ctx context.Context, query string, mode Mode, maxResults int) ([]Result, error)
}

// SearcherFunc adapts a function to Searcher
type SearcherFunc func(ctx context.Context, query string, mode Mode, maxResults int) ([]Result, error)

// Search calls f
func (f SearcherFunc) Search(ctx context.Context, query string, mode Mode, maxResults int) ([]Result, error) {
	return f(ctx, query, mode, maxResults)
}

// ErrUnavailable is returned by None: there is nothing to search with
var ErrUnavailable = errors.New("search unavailable")

// None is a Searcher that is never available. Used when no search endpoint
// is configured so branches fall back to their offline paths.
type None struct{}

// Search always fails with ErrUnavailable
func (None) Search(context.Context, string, Mode, int) ([]Result, error) {
	return nil, ErrUnavailable
}

// dedupe drops results with a URL already seen, keeping first occurrence.
// Results without a URL are kept.
func dedupe(results []Result) []Result {
	seen := make(map[string]bool, len(results))
	out := results[:0:0]
	for _, r := range results {
		key := strings.TrimRight(strings.ToLower(strings.TrimSpace(r.URL)), "/")
		if key != "" {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, r)
	}
	return out
}
