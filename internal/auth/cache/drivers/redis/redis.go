// Package redis is a token cache driver backed by Redis. Expiry is delegated
// to Redis through SET ... EX.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/cache"
)

var (
	ErrEmptyConnectionURL = errors.New("empty redis connection URL")
	ErrParseConnString    = errors.New("failed to parse redis connection string")
	ErrNotReady           = errors.New("redis did not become ready within the given time period")
	ErrHealthcheckFailed  = errors.New("redis healthcheck failed")
)

type Cache struct {
	client goredis.UniversalClient
	prefix string
}

var _ cache.Cache = (*Cache)(nil)

// New wraps an existing client.
func New(client goredis.UniversalClient, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix}
}

// Connect dials Redis, retrying up to cfg.RetryAttempts times until the
// server answers PING or cfg.ConnectTimeout elapses.
func Connect(ctx context.Context, cfg Config) (*Cache, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	opts, err := goredis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrParseConnString, err)
	}

	attempts := max(cfg.RetryAttempts, 1)
	for i := range attempts {
		client := goredis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err == nil {
			return New(client, cfg.KeyPrefix), nil
		}
		_ = client.Close()

		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, ErrNotReady
}

func (c *Cache) key(k string) string { return c.prefix + k }

func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	v, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", cache.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key: %w", err)
	}
	return v, nil
}

func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}
	return nil
}

func (c *Cache) Close() error { return c.client.Close() }
