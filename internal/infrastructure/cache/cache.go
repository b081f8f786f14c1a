// Package cache stores short-lived values such as backend bearer tokens.
package cache

import (
	"context"
	"time"
)

// Cache is implemented by the in-process MemoryCache and the shared
// RedisCache, so several stations can reuse one backend login.
type Cache interface {
	// Get returns ErrCacheMiss when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	GetOrSet(ctx context.Context, key string, ttl time.Duration, fn func() ([]byte, error)) ([]byte, error)
	Close() error
}

// CacheError is a constant error type.
type CacheError string

func (e CacheError) Error() string { return string(e) }

// ErrCacheMiss means the key was not found.
const ErrCacheMiss CacheError = "cache miss"
