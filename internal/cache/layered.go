package cache

import (
	"errors"
	"time"
)

// LayeredCache reads through a fast layer into a durable one. Entries found
// only in the durable layer are promoted with promoteTTL.
type LayeredCache struct {
	fast       Cache
	durable    Cache
	promoteTTL time.Duration
}

// NewLayered stacks fast over durable
func NewLayered(fast, durable Cache, promoteTTL time.Duration) *LayeredCache {
	return &LayeredCache{fast: fast, durable: durable, promoteTTL: promoteTTL}
}

// NewLayeredCache is the usual memory-over-disk stack used for search results
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return NewLayered(NewMemoryCache(memoryTTL, 10*time.Minute), NewDiskCache(diskDir, diskTTL), memoryTTL)
}

func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, ok := c.fast.Get(key); ok {
		return val, true
	}
	val, ok := c.durable.Get(key)
	if !ok {
		return nil, false
	}
	_ = c.fast.Set(key, val, c.promoteTTL)
	return val, true
}

// Set writes both layers. A durable failure is returned but the fast layer
// keeps the value, so the current process still benefits.
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.fast.Set(key, value, ttl); err != nil {
		return err
	}
	return c.durable.Set(key, value, ttl)
}

func (c *LayeredCache) Delete(key string) error {
	return errors.Join(c.fast.Delete(key), c.durable.Delete(key))
}

func (c *LayeredCache) Clear() error {
	return errors.Join(c.fast.Clear(), c.durable.Clear())
}
