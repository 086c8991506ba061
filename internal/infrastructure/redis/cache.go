package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type envelope[V any] struct {
	Value     V         `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Cache stores JSON encoded values with a server side expiry. The expiry is
// also kept in the payload so reads honour the caller's clock. Redis
// failures degrade to cache misses.
type Cache[V any] struct {
	client    *Client
	namespace string
	logger    *slog.Logger
}

func NewCache[V any](client *Client, namespace string, logger *slog.Logger) *Cache[V] {
	return &Cache[V]{client: client, namespace: namespace, logger: logger}
}

func (c *Cache[V]) Get(ctx context.Context, key string, now time.Time) (V, bool) {
	var zero V
	raw, err := c.client.Get(ctx, c.client.key("cache", c.namespace, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false
	}
	if err != nil {
		c.logger.Warn("redis cache read failed", "namespace", c.namespace, "error", err)
		return zero, false
	}

	var e envelope[V]
	if err := json.Unmarshal(raw, &e); err != nil {
		c.logger.Warn("redis cache entry corrupt", "namespace", c.namespace, "error", err)
		return zero, false
	}
	if !now.Before(e.ExpiresAt) {
		return zero, false
	}
	return e.Value, true
}

func (c *Cache[V]) Put(ctx context.Context, key string, value V, expiresAt time.Time) {
	raw, err := json.Marshal(envelope[V]{Value: value, ExpiresAt: expiresAt})
	if err != nil {
		c.logger.Warn("redis cache encode failed", "namespace", c.namespace, "error", err)
		return
	}
	err = c.client.SetArgs(ctx, c.client.key("cache", c.namespace, key), raw, redis.SetArgs{ExpireAt: expiresAt}).Err()
	if err != nil {
		c.logger.Warn("redis cache write failed", "namespace", c.namespace, "error", err)
	}
}
