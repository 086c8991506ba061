package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/DanielPopoola/openfinance-gateway/internal/config"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_InMemoryDefaults(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	g, err := build(context.Background(), cfg, prometheus.NewRegistry(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer g.close()

	assert.NotNil(t, g.handlers)
	assert.Len(t, g.workers, 3)
}

func TestBuildSandbox(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds balances and payees", func(t *testing.T) {
		cfg := &config.Config{Sandbox: config.SandboxConfig{
			Balances: []string{"acc-1=100.00"},
			Payees:   []string{"GB82 WEST 1234 5698 7654 32=Ali Hassan Trading LLC"},
		}}
		funds, directory, err := buildSandbox(cfg)
		require.NoError(t, err)

		amount, err := domain.ParseMoney("60.00", "AED")
		require.NoError(t, err)
		_, err = funds.Reserve(ctx, "acc-1", amount, "k-1")
		require.NoError(t, err)
		_, err = funds.Reserve(ctx, "acc-1", amount, "k-2")
		assert.Error(t, err, "second reservation exceeds the seeded balance")

		holder, err := directory.Lookup(ctx, "GB82WEST12345698765432")
		require.NoError(t, err)
		assert.Equal(t, "Ali Hassan Trading LLC", holder.Name)
	})

	t.Run("rejects malformed entries", func(t *testing.T) {
		_, _, err := buildSandbox(&config.Config{Sandbox: config.SandboxConfig{Balances: []string{"acc-1"}}})
		assert.Error(t, err)

		_, _, err = buildSandbox(&config.Config{Sandbox: config.SandboxConfig{Balances: []string{"acc-1=lots"}}})
		assert.Error(t, err)

		_, _, err = buildSandbox(&config.Config{Sandbox: config.SandboxConfig{Payees: []string{"GB00WEST12345698765432=Nobody"}}})
		assert.Error(t, err)
	})
}
