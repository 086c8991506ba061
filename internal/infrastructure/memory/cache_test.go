package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/DanielPopoola/openfinance-gateway/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)

func TestTTLCache(t *testing.T) {
	ctx := context.Background()

	t.Run("entry is served until its expiry instant", func(t *testing.T) {
		cache, err := memory.NewTTLCache[string](10)
		require.NoError(t, err)

		cache.Put(ctx, "k", "v", t0.Add(time.Minute))

		got, ok := cache.Get(ctx, "k", t0.Add(59*time.Second))
		require.True(t, ok)
		assert.Equal(t, "v", got)

		_, ok = cache.Get(ctx, "k", t0.Add(time.Minute))
		assert.False(t, ok, "entry must not be returned at expiresAt")
		assert.Equal(t, 0, cache.Len(), "expired entry is dropped on read")
	})

	t.Run("put overwrites the previous value", func(t *testing.T) {
		cache, err := memory.NewTTLCache[int](10)
		require.NoError(t, err)

		cache.Put(ctx, "k", 1, t0.Add(time.Minute))
		cache.Put(ctx, "k", 2, t0.Add(time.Hour))

		got, ok := cache.Get(ctx, "k", t0.Add(30*time.Minute))
		require.True(t, ok)
		assert.Equal(t, 2, got)
	})

	t.Run("least recently used entry is evicted at capacity", func(t *testing.T) {
		cache, err := memory.NewTTLCache[string](2)
		require.NoError(t, err)

		cache.Put(ctx, "a", "A", t0.Add(time.Hour))
		cache.Put(ctx, "b", "B", t0.Add(time.Hour))
		_, _ = cache.Get(ctx, "a", t0)
		cache.Put(ctx, "c", "C", t0.Add(time.Hour))

		_, ok := cache.Get(ctx, "b", t0)
		assert.False(t, ok)
		_, ok = cache.Get(ctx, "a", t0)
		assert.True(t, ok)
		_, ok = cache.Get(ctx, "c", t0)
		assert.True(t, ok)
	})

	t.Run("rejects non-positive capacity", func(t *testing.T) {
		_, err := memory.NewTTLCache[string](0)
		assert.Error(t, err)
	})
}

func TestIdempotencyStore(t *testing.T) {
	ctx := context.Background()

	newRecord := func(t *testing.T, key, principal string) domain.IdempotencyRecord {
		t.Helper()
		rec, err := domain.NewIdempotencyRecord(key, principal, "hash-1", "PAY-1", t0, time.Hour)
		require.NoError(t, err)
		return rec
	}

	t.Run("records are scoped by principal", func(t *testing.T) {
		store, err := memory.NewIdempotencyStore(100)
		require.NoError(t, err)

		require.NoError(t, store.Save(ctx, newRecord(t, "key-1", "tpp-a")))

		_, found, err := store.Find(ctx, "key-1", "tpp-b", t0)
		require.NoError(t, err)
		assert.False(t, found)

		rec, found, err := store.Find(ctx, "key-1", "tpp-a", t0)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "PAY-1", rec.ResultRef)
	})

	t.Run("expired record is a miss and is removed", func(t *testing.T) {
		store, err := memory.NewIdempotencyStore(100)
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, newRecord(t, "key-1", "tpp-a")))

		_, found, err := store.Find(ctx, "key-1", "tpp-a", t0.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, found)

		_, found, err = store.Find(ctx, "key-1", "tpp-a", t0)
		require.NoError(t, err)
		assert.False(t, found, "lazy eviction removed the record")
	})

	t.Run("save replaces the record for the same pair", func(t *testing.T) {
		store, err := memory.NewIdempotencyStore(100)
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, newRecord(t, "key-1", "tpp-a")))

		replacement, err := domain.NewIdempotencyRecord("key-1", "tpp-a", "hash-2", "PAY-2", t0, time.Hour)
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, replacement))

		rec, found, err := store.Find(ctx, "key-1", "tpp-a", t0)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "PAY-2", rec.ResultRef)
	})

	t.Run("delete expired keeps live records", func(t *testing.T) {
		store, err := memory.NewIdempotencyStore(100)
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, newRecord(t, "key-old", "tpp-a")))

		live, err := domain.NewIdempotencyRecord("key-new", "tpp-a", "hash-3", "PAY-3", t0.Add(time.Hour), time.Hour)
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, live))

		deleted, err := store.DeleteExpired(ctx, t0.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		_, found, err := store.Find(ctx, "key-new", "tpp-a", t0.Add(time.Hour))
		require.NoError(t, err)
		assert.True(t, found)
	})
}
