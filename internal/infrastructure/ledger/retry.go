package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/config"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
)

// RetryReserver retries transient ledger failures with exponential backoff.
// The idempotency key is forwarded unchanged so retries never double reserve.
type RetryReserver struct {
	inner      application.FundsReserver
	baseDelay  time.Duration
	maxRetries int
}

func NewRetryReserver(inner application.FundsReserver, cfg config.RetryConfig) *RetryReserver {
	return &RetryReserver{
		inner:      inner,
		baseDelay:  cfg.BaseDelay,
		maxRetries: int(cfg.MaxRetries),
	}
}

func (r *RetryReserver) Reserve(ctx context.Context, accountID string, amount domain.Money, idempotencyKey string) (*application.FundsReservation, error) {
	return retry(
		r,
		ctx,
		func(ctx context.Context) (*application.FundsReservation, error) {
			return r.inner.Reserve(ctx, accountID, amount, idempotencyKey)
		},
	)
}

// Generic retry helper
func retry[T any](r *RetryReserver, ctx context.Context, operation func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < r.maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.backoff(attempt)):
			}
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

// Helper: to check retryable errors
func isRetryable(err error) bool {
	if errors.Is(err, application.ErrInsufficientFunds) {
		return false
	}

	var ledgerErr *LedgerError
	if errors.As(err, &ledgerErr) {
		return ledgerErr.IsRetryable() || ledgerErr.Code == "internal_error"
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return false
	}

	return true
}

// Backoff calculation with exponential delay and jitter
func (r *RetryReserver) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)

	if r.baseDelay <= 0 {
		return 0
	}
	jitter := time.Duration(rand.Int63n(int64(r.baseDelay)))

	return base + jitter
}
