package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// StaleQuoteExpirer moves quotes past their validity window to EXPIRED.
type StaleQuoteExpirer interface {
	ExpireStale(ctx context.Context, batchSize int) (int, error)
}

// QuoteExpirationWorker sweeps every registered quote book. FX and
// insurance quotes share it.
type QuoteExpirationWorker struct {
	books     map[string]StaleQuoteExpirer
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewQuoteExpirationWorker(
	books map[string]StaleQuoteExpirer,
	interval time.Duration,
	batchSize int,
	logger *slog.Logger,
) *QuoteExpirationWorker {
	return &QuoteExpirationWorker{
		books:     books,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (w *QuoteExpirationWorker) Start(ctx context.Context) {
	runEvery(ctx, "quote expiration", w.interval, w.logger, func(ctx context.Context) error {
		_, err := w.RunOnce(ctx)
		return err
	})
}

// RunOnce expires stale quotes in every book. One failing book does not
// stop the others.
func (w *QuoteExpirationWorker) RunOnce(ctx context.Context) (map[string]int, error) {
	expired := make(map[string]int, len(w.books))
	var errs []error
	for name, book := range w.books {
		for {
			n, err := book.ExpireStale(ctx, w.batchSize)
			expired[name] += n
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				break
			}
			if n < w.batchSize {
				break
			}
		}
		if expired[name] > 0 {
			w.logger.Info("expired stale quotes", "book", name, "expired", expired[name])
		}
	}
	return expired, errors.Join(errs...)
}
