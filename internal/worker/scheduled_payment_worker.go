package worker

import (
	"context"
	"log/slog"
	"time"
)

// DuePaymentReleaser settles PENDING payments whose execution date has come.
type DuePaymentReleaser interface {
	ReleaseDue(ctx context.Context, batchSize int) (int, error)
}

type ScheduledPaymentWorker struct {
	payments  DuePaymentReleaser
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewScheduledPaymentWorker(
	payments DuePaymentReleaser,
	interval time.Duration,
	batchSize int,
	logger *slog.Logger,
) *ScheduledPaymentWorker {
	return &ScheduledPaymentWorker{
		payments:  payments,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (w *ScheduledPaymentWorker) Start(ctx context.Context) {
	runEvery(ctx, "scheduled payment", w.interval, w.logger, func(ctx context.Context) error {
		_, err := w.RunOnce(ctx)
		return err
	})
}

// RunOnce drains due payments batch by batch and returns how many it
// settled or rejected.
func (w *ScheduledPaymentWorker) RunOnce(ctx context.Context) (int, error) {
	total := 0
	for {
		released, err := w.payments.ReleaseDue(ctx, w.batchSize)
		total += released
		if err != nil {
			return total, err
		}
		if released < w.batchSize {
			break
		}
	}

	if total > 0 {
		w.logger.Info("processed due payments", "released", total)
	}
	return total, nil
}
