package search

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/diligentia/internal/cache"
)

// Cached wraps a Searcher with a result cache keyed by query, mode and
// result limit. Errors are never cached.
type Cached struct {
	inner Searcher
	cache cache.Cache
	ttl   time.Duration
}

// NewCached creates a caching Searcher
func NewCached(inner Searcher, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{inner: inner, cache: c, ttl: ttl}
}

// Search implements Searcher
func (s *Cached) Search(ctx context.Context, query string, mode Mode, maxResults int) ([]Result, error) {
	key := cache.Key("search", strings.ToLower(strings.TrimSpace(query)), string(mode), strconv.Itoa(maxResults))

	var cached []Result
	if found, err := cache.GetJSON(s.cache, key, &cached); err == nil && found {
		return cached, nil
	}

	results, err := s.inner.Search(ctx, query, mode, maxResults)
	if err != nil {
		return nil, err
	}
	_ = cache.SetJSON(s.cache, key, results, s.ttl)
	return results, nil
}
