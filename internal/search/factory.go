package search

import (
	"time"

	"github.com/ppiankov/diligentia/internal/cache"
	"github.com/ppiankov/diligentia/internal/model"
	"github.com/ppiankov/diligentia/internal/worker"
)

// New builds the configured Searcher. With no endpoint it returns None.
// A positive cache TTL wraps the client with a memory cache, layered over
// disk when a cache directory is set.
func New(cfg model.SearchConfig, httpCfg model.HTTPConfig, limiter *worker.Limiter) Searcher {
	if cfg.Endpoint == "" {
		return None{}
	}
	var s Searcher = NewClient(cfg, httpCfg, limiter)
	if cfg.CacheTTL <= 0 {
		return s
	}

	var c cache.Cache
	if cfg.CacheDir != "" {
		c = cache.NewLayeredCache(cfg.CacheTTL, cfg.CacheDir, cfg.CacheTTL)
	} else {
		c = cache.NewMemoryCache(cfg.CacheTTL, 10*time.Minute)
	}
	return NewCached(s, c, cfg.CacheTTL)
}
