// Package memory is an in-process cache driver. Entries live in a map and are
// treated as absent once their deadline passes; DeleteExpired reclaims them.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/cache"
)

type entry struct {
	value    string
	deadline time.Time
}

type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

var (
	_ cache.Cache   = (*Cache)(nil)
	_ cache.Sweeper = (*Cache)(nil)
)

type Option func(*Cache)

// WithClock overrides the time source, mainly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(e.deadline) {
		return "", cache.ErrNotFound
	}
	return e.value, nil
}

func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.entries[key] = entry{value: value, deadline: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

func (c *Cache) Ping(ctx context.Context) error { return ctx.Err() }

func (c *Cache) Close() error { return nil }

// DeleteExpired removes every entry whose deadline has passed and returns how
// many were removed.
func (c *Cache) DeleteExpired(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := c.now()
	n := 0

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if !now.Before(e.deadline) {
			delete(c.entries, k)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
