package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
)

// ExpiredRecordPurger deletes idempotency records whose expiry has passed.
// Lookups already ignore them; purging only reclaims space.
type ExpiredRecordPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type IdempotencyPurgeWorker struct {
	store    ExpiredRecordPurger
	clock    domain.Clock
	interval time.Duration
	logger   *slog.Logger
}

func NewIdempotencyPurgeWorker(store ExpiredRecordPurger, clock domain.Clock, interval time.Duration, logger *slog.Logger) *IdempotencyPurgeWorker {
	return &IdempotencyPurgeWorker{
		store:    store,
		clock:    clock,
		interval: interval,
		logger:   logger,
	}
}

func (w *IdempotencyPurgeWorker) Start(ctx context.Context) {
	runEvery(ctx, "idempotency purge", w.interval, w.logger, func(ctx context.Context) error {
		_, err := w.RunOnce(ctx)
		return err
	})
}

func (w *IdempotencyPurgeWorker) RunOnce(ctx context.Context) (int64, error) {
	deleted, err := w.store.DeleteExpired(ctx, w.clock.Now())
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		w.logger.Info("purged expired idempotency records", "deleted", deleted)
	}
	return deleted, nil
}
