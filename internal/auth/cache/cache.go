// Package cache defines the token cache contract: a key-value store whose
// entries expire after a per-key TTL.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or has expired.
var ErrNotFound = errors.New("cache: key not found")

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Sweeper is implemented by caches that must evict expired entries
// themselves instead of relying on the backend.
type Sweeper interface {
	DeleteExpired(ctx context.Context) (int, error)
}
