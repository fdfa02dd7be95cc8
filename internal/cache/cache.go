// Package cache stores serialized collaborator responses (search results,
// store records) in memory, on disk, or both.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Cache is a byte-oriented TTL cache
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a namespaced, hashed cache key from its parts
func Key(namespace string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "diligentia:v1:" + namespace + ":" + hex.EncodeToString(hash[:16])
}

// GetJSON decodes a cached JSON value into out
func GetJSON(c Cache, key string, out any) (bool, error) {
	data, ok := c.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes value as JSON and caches it
func SetJSON(c Cache, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.Set(key, data, ttl)
}
