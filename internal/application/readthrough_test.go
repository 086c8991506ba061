package application_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/DanielPopoola/openfinance-gateway/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadThrough(t *testing.T) {
	ctx := context.Background()
	clock := domain.NewFixedClock(t0)
	cache, err := memory.NewTTLCache[string](10)
	require.NoError(t, err)
	reads := application.NewReadThrough[string]("test", cache, clock, time.Minute, nil)

	var loads atomic.Int32
	load := func(context.Context) (string, error) {
		loads.Add(1)
		return "value", nil
	}

	first, err := reads.Get(ctx, "k", load)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := reads.Get(ctx, "k", load)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, "value", second.Value)
	assert.Equal(t, int32(1), loads.Load())

	clock.Advance(time.Minute)
	third, err := reads.Get(ctx, "k", load)
	require.NoError(t, err)
	assert.False(t, third.CacheHit, "entry expired at ttl")
	assert.Equal(t, int32(2), loads.Load())

	reads.Refresh(ctx, "k", "updated")
	fourth, err := reads.Get(ctx, "k", load)
	require.NoError(t, err)
	assert.True(t, fourth.CacheHit)
	assert.Equal(t, "updated", fourth.Value)
}

func TestReadThrough_LoadErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	cache, err := memory.NewTTLCache[string](10)
	require.NoError(t, err)
	reads := application.NewReadThrough[string]("test", cache, domain.NewFixedClock(t0), time.Minute, nil)

	_, err = reads.Get(ctx, "k", func(context.Context) (string, error) {
		return "", errors.New("db down")
	})
	require.Error(t, err)

	got, err := reads.Get(ctx, "k", func(context.Context) (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.False(t, got.CacheHit)
	assert.Equal(t, "ok", got.Value)
}
