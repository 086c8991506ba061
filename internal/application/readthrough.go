package application

import (
	"context"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/DanielPopoola/openfinance-gateway/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// Lookup is a read result tagged with whether it was served from cache.
type Lookup[T any] struct {
	Value    T
	CacheHit bool
}

// ReadThrough memoizes loads in a Cache for ttl. Concurrent misses on the same
// key share a single load.
type ReadThrough[V any] struct {
	name    string
	cache   Cache[V]
	clock   domain.Clock
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
}

func NewReadThrough[V any](name string, cache Cache[V], clock domain.Clock, ttl time.Duration, m *metrics.Metrics) *ReadThrough[V] {
	return &ReadThrough[V]{
		name:    name,
		cache:   cache,
		clock:   clock,
		ttl:     ttl,
		metrics: m,
	}
}

func (r *ReadThrough[V]) Get(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (Lookup[V], error) {
	if v, ok := r.cache.Get(ctx, key, r.clock.Now()); ok {
		r.metrics.ObserveCacheLookup(r.name, true)
		return Lookup[V]{Value: v, CacheHit: true}, nil
	}
	r.metrics.ObserveCacheLookup(r.name, false)

	v, err, _ := r.group.Do(key, func() (any, error) {
		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		r.cache.Put(ctx, key, loaded, r.clock.Now().Add(r.ttl))
		return loaded, nil
	})
	if err != nil {
		var zero Lookup[V]
		return zero, err
	}
	return Lookup[V]{Value: v.(V)}, nil
}

// Refresh overwrites the cached value after a mutation so readers never see
// an older version for the rest of the ttl.
func (r *ReadThrough[V]) Refresh(ctx context.Context, key string, value V) {
	r.cache.Put(ctx, key, value, r.clock.Now().Add(r.ttl))
}
