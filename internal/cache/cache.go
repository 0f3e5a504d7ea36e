package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores model responses keyed by model and prompt.
type Cache interface {
	// Get returns the cached response. ok is false on a miss.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores a response with TTL. A zero TTL keeps it forever.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Purge removes every cached response and reports how many were dropped.
	Purge(ctx context.Context) (int, error)

	// Close closes the cache connection
	Close() error
}

// GenerateCacheKey derives a stable key from the model name and the full prompt.
func GenerateCacheKey(model, prompt string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}
