// Package worker runs the background sweeps: releasing deferred payments,
// expiring stale quotes and purging old idempotency records.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// runEvery calls tick once immediately and then on every interval until ctx
// is cancelled. A failed tick is logged and the loop carries on.
func runEvery(ctx context.Context, name string, interval time.Duration, logger *slog.Logger, tick func(context.Context) error) {
	logger.Info(name+" worker started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := tick(ctx); err != nil && ctx.Err() == nil {
		logger.Error(name+" processing failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info(name + " worker stopping")
			return
		case <-ticker.C:
			if err := tick(ctx); err != nil && ctx.Err() == nil {
				logger.Error(name+" processing failed", "error", err)
			}
		}
	}
}
