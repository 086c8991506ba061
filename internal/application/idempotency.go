package application

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/DanielPopoola/openfinance-gateway/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("openfinance/idempotency")

// Result is what every mutating operation returns. Replayed is set when the
// value came from an earlier execution with the same key and payload.
type Result[T any] struct {
	Value    T
	Replayed bool
}

// IdempotentRequest identifies one mutation attempt.
type IdempotentRequest struct {
	Operation   string
	Key         string
	PrincipalID string
	RequestHash string
}

// lockKey length-prefixes the principal so that no two (principal, key)
// pairs share a lock.
func (r IdempotentRequest) lockKey() string {
	return "idem:" + strconv.Itoa(len(r.PrincipalID)) + ":" + r.PrincipalID + ":" + r.Key
}

type IdempotencyConfig struct {
	TTL         time.Duration
	LockTimeout time.Duration
}

// Idempotency runs mutations at most once per (key, principal). The whole
// find, execute, save sequence happens under a lock keyed by that pair.
type Idempotency struct {
	store   IdempotencyStore
	locker  Locker
	clock   domain.Clock
	cfg     IdempotencyConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewIdempotency(
	store IdempotencyStore,
	locker Locker,
	clock domain.Clock,
	cfg IdempotencyConfig,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Idempotency {
	return &Idempotency{
		store:   store,
		locker:  locker,
		clock:   clock,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
	}
}

// Execute looks up the idempotency record for req. On a miss it runs execute,
// which returns the new value and a reference to it, and records the outcome.
// On a hit with the same request hash it rebuilds the stored value through
// replay. A hit with a different hash is an idempotency conflict. Failed
// executions are not recorded, so a corrected retry may reuse the key.
func Execute[T any](
	ctx context.Context,
	idem *Idempotency,
	req IdempotentRequest,
	replay func(ctx context.Context, resultRef string) (T, error),
	execute func(ctx context.Context) (T, string, error),
) (Result[T], error) {
	var zero Result[T]

	if strings.TrimSpace(req.Key) == "" {
		return zero, domain.NewMissingRequiredFieldError("idempotency key")
	}
	if req.PrincipalID == "" {
		return zero, domain.NewMissingRequiredFieldError("principal id")
	}
	if req.RequestHash == "" {
		return zero, domain.NewValidationError("request fingerprint is empty")
	}

	ctx, span := tracer.Start(ctx, "idempotency."+req.Operation)
	defer span.End()
	span.SetAttributes(
		attribute.String("idempotency.operation", req.Operation),
		attribute.String("idempotency.principal", req.PrincipalID),
	)

	lockCtx, cancel := context.WithTimeout(ctx, idem.cfg.LockTimeout)
	unlock, err := idem.locker.Lock(lockCtx, req.lockKey())
	cancel()
	if err != nil {
		idem.logger.Warn("idempotency lock not acquired",
			"operation", req.Operation,
			"idempotency_key", req.Key,
			"principal_id", req.PrincipalID,
			"error", err)
		span.SetStatus(codes.Error, "lock timeout")
		return zero, NewRequestProcessingError(err)
	}
	defer unlock()

	start := time.Now()
	defer func() {
		idem.metrics.ObserveExecution(req.Operation, time.Since(start))
	}()

	record, found, err := idem.store.Find(ctx, req.Key, req.PrincipalID, idem.clock.Now())
	if err != nil {
		span.RecordError(err)
		return zero, NewInternalError(fmt.Errorf("find idempotency record: %w", err))
	}

	if found {
		if !record.Matches(req.RequestHash) {
			idem.metrics.ObserveIdempotency(req.Operation, metrics.OutcomeConflict)
			idem.logger.Warn("idempotency key reused with different payload",
				"operation", req.Operation,
				"idempotency_key", req.Key,
				"principal_id", req.PrincipalID)
			span.SetAttributes(attribute.String("idempotency.outcome", metrics.OutcomeConflict))
			return zero, domain.NewIdempotencyConflictError(req.Key)
		}

		value, err := replay(ctx, record.ResultRef)
		if err != nil {
			span.RecordError(err)
			return zero, err
		}
		idem.metrics.ObserveIdempotency(req.Operation, metrics.OutcomeReplayed)
		idem.logger.Info("replaying idempotent request",
			"operation", req.Operation,
			"idempotency_key", req.Key,
			"principal_id", req.PrincipalID,
			"result_ref", record.ResultRef)
		span.SetAttributes(attribute.String("idempotency.outcome", metrics.OutcomeReplayed))
		return Result[T]{Value: value, Replayed: true}, nil
	}

	value, resultRef, err := execute(ctx)
	if err != nil {
		idem.metrics.ObserveIdempotency(req.Operation, metrics.OutcomeFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "execution failed")
		return zero, err
	}

	record, err = domain.NewIdempotencyRecord(req.Key, req.PrincipalID, req.RequestHash, resultRef, idem.clock.Now(), idem.cfg.TTL)
	if err != nil {
		return zero, NewInternalError(err)
	}
	if err := idem.store.Save(ctx, record); err != nil {
		// The mutation already happened; report it rather than inviting a retry.
		idem.logger.Error("failed to save idempotency record",
			"operation", req.Operation,
			"idempotency_key", req.Key,
			"principal_id", req.PrincipalID,
			"result_ref", resultRef,
			"error", err)
		span.RecordError(err)
	}

	idem.metrics.ObserveIdempotency(req.Operation, metrics.OutcomeExecuted)
	span.SetAttributes(attribute.String("idempotency.outcome", metrics.OutcomeExecuted))
	return Result[T]{Value: value}, nil
}
