// Package memory holds process-local adapters for the application ports.
// They back the default single-instance deployment and every unit test.
package memory

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a bounded cache. When full, the least recently used entry is
// evicted. Expired entries are dropped lazily on Get.
type TTLCache[V any] struct {
	mu    sync.Mutex
	items *lru.Cache[string, entry[V]]
}

func NewTTLCache[V any](capacity int) (*TTLCache[V], error) {
	items, err := lru.New[string, entry[V]](capacity)
	if err != nil {
		return nil, err
	}
	return &TTLCache[V]{items: items}, nil
}

func (c *TTLCache[V]) Get(_ context.Context, key string, now time.Time) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items.Get(key)
	if !ok {
		return zero, false
	}
	if !now.Before(e.expiresAt) {
		c.items.Remove(key)
		return zero, false
	}
	return e.value, true
}

func (c *TTLCache[V]) Put(_ context.Context, key string, value V, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Add(key, entry[V]{value: value, expiresAt: expiresAt})
}

func (c *TTLCache[V]) Len() int {
	return c.items.Len()
}
