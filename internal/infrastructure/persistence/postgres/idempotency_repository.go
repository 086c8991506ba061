package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/jackc/pgx/v5"
)

// IdempotencyRepository persists idempotency records keyed by (key, principal).
type IdempotencyRepository struct {
	db *DB
}

func NewIdempotencyRepository(db *DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Find returns the live record for the pair. An expired record is deleted and
// reported as a miss.
func (r *IdempotencyRepository) Find(ctx context.Context, key, principalID string, now time.Time) (domain.IdempotencyRecord, bool, error) {
	query := `
		SELECT key, principal_id, request_hash, result_ref, created_at, expires_at
		FROM idempotency_keys
		WHERE key = $1 AND principal_id = $2
	`
	var rec domain.IdempotencyRecord
	err := r.db.Pool.QueryRow(ctx, query, key, principalID).Scan(
		&rec.Key,
		&rec.PrincipalID,
		&rec.RequestHash,
		&rec.ResultRef,
		&rec.CreatedAt,
		&rec.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.IdempotencyRecord{}, false, nil
		}
		return domain.IdempotencyRecord{}, false, fmt.Errorf("failed to find idempotency key: %w", err)
	}

	if rec.IsExpired(now) {
		_, err := r.db.Pool.Exec(ctx,
			`DELETE FROM idempotency_keys WHERE key = $1 AND principal_id = $2 AND expires_at <= $3`,
			key, principalID, now)
		if err != nil {
			return domain.IdempotencyRecord{}, false, fmt.Errorf("failed to delete expired idempotency key: %w", err)
		}
		return domain.IdempotencyRecord{}, false, nil
	}
	return rec, true, nil
}

func (r *IdempotencyRepository) Save(ctx context.Context, rec domain.IdempotencyRecord) error {
	query := `
		INSERT INTO idempotency_keys (key, principal_id, request_hash, result_ref, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key, principal_id) DO UPDATE SET
			request_hash = EXCLUDED.request_hash,
			result_ref = EXCLUDED.result_ref,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`
	_, err := r.db.Pool.Exec(ctx, query,
		rec.Key,
		rec.PrincipalID,
		rec.RequestHash,
		rec.ResultRef,
		rec.CreatedAt,
		rec.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}

// DeleteExpired purges records whose expiry has passed.
func (r *IdempotencyRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
