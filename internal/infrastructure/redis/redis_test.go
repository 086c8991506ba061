package redis_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	ofredis "github.com/DanielPopoola/openfinance-gateway/internal/infrastructure/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupRedis(t *testing.T) *ofredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := goredis.ParseURL(url)
	require.NoError(t, err)

	client := goredis.NewClient(opts)
	require.NoError(t, client.Ping(ctx).Err())
	t.Cleanup(func() { _ = client.Close() })

	return ofredis.Wrap(client, "test:")
}

func TestRedisCacheAndLocker(t *testing.T) {
	client := setupRedis(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("cache honours the caller clock", func(t *testing.T) {
		cache := ofredis.NewCache[domain.Money](client, "money", logger)
		now := time.Now().UTC()
		value, err := domain.ParseMoney("12.50", "AED")
		require.NoError(t, err)

		cache.Put(ctx, "k", value, now.Add(time.Minute))

		got, ok := cache.Get(ctx, "k", now)
		require.True(t, ok)
		assert.Equal(t, value.String(), got.String())

		_, ok = cache.Get(ctx, "k", now.Add(time.Minute))
		assert.False(t, ok)

		_, ok = cache.Get(ctx, "missing", now)
		assert.False(t, ok)
	})

	t.Run("locker excludes a second holder until release", func(t *testing.T) {
		locker := ofredis.NewLocker(client, 5*time.Second, logger)

		unlock, err := locker.Lock(ctx, "idem:tpp-a:key-1")
		require.NoError(t, err)

		waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(waitCtx, "idem:tpp-a:key-1")
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		unlock()

		again, err := locker.Lock(ctx, "idem:tpp-a:key-1")
		require.NoError(t, err)
		again()
	})
}
