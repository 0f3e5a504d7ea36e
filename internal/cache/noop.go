package cache

import (
	"context"
	"time"
)

// NoOpCache is a cache implementation that does nothing.
// Used when no cache is configured or Redis is unavailable: every call
// succeeds and every lookup misses.
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache instance
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always misses.
func (c *NoOpCache) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, nil
}

// Set does nothing and always succeeds
func (c *NoOpCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return nil
}

// Purge has nothing to remove.
func (c *NoOpCache) Purge(ctx context.Context) (int, error) {
	return 0, nil
}

// Close does nothing and always succeeds
func (c *NoOpCache) Close() error {
	return nil
}
