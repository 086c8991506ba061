package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/jackc/pgx/v5"
)

// ResourceRepository stores the latest version of each resource of one kind.
type ResourceRepository[T domain.Entity] struct {
	db      *DB
	kind    string
	project func(T) columns
}

func newResourceRepository[T domain.Entity](db *DB, kind string, project func(T) columns) *ResourceRepository[T] {
	return &ResourceRepository[T]{db: db, kind: kind, project: project}
}

func (r *ResourceRepository[T]) Save(ctx context.Context, resource T) (T, error) {
	row, err := toRow(r.kind, resource, r.project, time.Now().UTC())
	if err != nil {
		var zero T
		return zero, err
	}

	query := `
		INSERT INTO resources (kind, id, owner_id, status, due_at, group_key, amount, payload, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, '')::numeric, $8, $9)
		ON CONFLICT (kind, id) DO UPDATE SET
			status = EXCLUDED.status,
			due_at = EXCLUDED.due_at,
			group_key = EXCLUDED.group_key,
			amount = EXCLUDED.amount,
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`
	_, err = r.db.Pool.Exec(ctx, query,
		row.Kind,
		row.ID,
		row.OwnerID,
		row.Columns.Status,
		row.Columns.DueAt,
		row.Columns.GroupKey,
		row.Columns.Amount,
		row.Payload,
		row.UpdatedAt,
	)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to save %s %s: %w", r.kind, row.ID, err)
	}
	return resource, nil
}

func (r *ResourceRepository[T]) FindByID(ctx context.Context, id string) (T, error) {
	var payload []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT payload FROM resources WHERE kind = $1 AND id = $2`,
		r.kind, id,
	).Scan(&payload)
	if err != nil {
		var zero T
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, fmt.Errorf("%s %s: %w", r.kind, id, application.ErrRecordNotFound)
		}
		return zero, fmt.Errorf("failed to load %s %s: %w", r.kind, id, err)
	}
	return fromPayload[T](r.kind, payload)
}

// query runs a select returning payload rows and decodes them.
func (r *ResourceRepository[T]) query(ctx context.Context, sql string, args ...any) ([]T, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.kind, err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (T, error) {
		var payload []byte
		if err := row.Scan(&payload); err != nil {
			var zero T
			return zero, err
		}
		return fromPayload[T](r.kind, payload)
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s rows: %w", r.kind, err)
	}
	return results, nil
}

// findStale returns resources still in status whose due_at has been reached.
func (r *ResourceRepository[T]) findStale(ctx context.Context, status string, now time.Time, limit int) ([]T, error) {
	query := `
		SELECT payload FROM resources
		WHERE kind = $1 AND status = $2 AND due_at <= $3
		ORDER BY due_at ASC, id ASC
		LIMIT $4
	`
	return r.query(ctx, query, r.kind, status, now, limit)
}

func NewConsentRepository(db *DB) *ResourceRepository[domain.ConsentContext] {
	return newResourceRepository[domain.ConsentContext](db, kindConsent, nil)
}

func NewDealRepository(db *DB) *ResourceRepository[domain.Deal] {
	return newResourceRepository[domain.Deal](db, kindDeal, nil)
}

func NewPayRequestRepository(db *DB) *ResourceRepository[domain.PayRequest] {
	return newResourceRepository[domain.PayRequest](db, kindPayRequest, nil)
}

func NewVrpConsentRepository(db *DB) *ResourceRepository[domain.VrpConsent] {
	return newResourceRepository[domain.VrpConsent](db, kindVrpConsent, nil)
}

func NewAccountRepository(db *DB) *ResourceRepository[domain.OnboardingAccount] {
	return newResourceRepository[domain.OnboardingAccount](db, kindAccount, nil)
}

func NewBulkFileRepository(db *DB) *ResourceRepository[domain.BulkFile] {
	return newResourceRepository[domain.BulkFile](db, kindBulkFile, nil)
}
