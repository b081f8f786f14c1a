package cache

import (
	"context"
	"sync"
	"time"
)

var _ Cache = (*MemoryCache)(nil)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is an in-process TTL cache. A background goroutine sweeps
// expired entries until Close.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time

	sweepEvery time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewMemoryCache starts a cache sweeping every minute.
func NewMemoryCache() *MemoryCache {
	return newMemoryCache(time.Minute, time.Now)
}

func newMemoryCache(sweepEvery time.Duration, now func() time.Time) *MemoryCache {
	c := &MemoryCache{
		entries:    make(map[string]*entry),
		now:        now,
		sweepEvery: sweepEvery,
		stop:       make(chan struct{}),
	}
	go c.sweep()
	return c
}

func (c *MemoryCache) expired(e *entry) bool {
	return !c.now().Before(e.expiresAt)
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.expired(e) {
		return nil, ErrCacheMiss
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores a copy of value. A non-positive ttl deletes the key.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		delete(c.entries, key)
		return nil
	}
	v := make([]byte, len(value))
	copy(v, value)
	c.entries[key] = &entry{value: v, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// GetOrSet returns the cached value or computes, stores and returns it.
// Concurrent misses may both call fn; callers that need one call per miss
// coordinate outside (see credentials.Provider).
func (c *MemoryCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, fn func() ([]byte, error)) ([]byte, error) {
	if v, err := c.Get(ctx, key); err == nil {
		return v, nil
	}
	v, err := fn()
	if err != nil {
		return nil, err
	}
	if err := c.Set(ctx, key, v, ttl); err != nil {
		return nil, err
	}
	return v, nil
}

// Len counts live entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, e := range c.entries {
		if !c.expired(e) {
			n++
		}
	}
	return n
}

// Close stops the sweeper. It is safe to call more than once.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

func (c *MemoryCache) sweep() {
	t := time.NewTicker(c.sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, k)
		}
	}
}
