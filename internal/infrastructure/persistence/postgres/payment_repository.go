package postgres

import (
	"context"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/shopspring/decimal"
)

type PaymentRepository struct {
	*ResourceRepository[domain.Payment]
}

func NewPaymentRepository(db *DB) *PaymentRepository {
	return &PaymentRepository{ResourceRepository: newResourceRepository(db, kindPayment, projectPayment)}
}

// FindDue returns pending payments whose execution date is on or before the
// calendar day of asOf, earliest first.
func (r *PaymentRepository) FindDue(ctx context.Context, asOf time.Time, limit int) ([]domain.Payment, error) {
	query := `
		SELECT payload FROM resources
		WHERE kind = $1 AND status = $2 AND due_at <= $3
		ORDER BY due_at ASC, id ASC
		LIMIT $4
	`
	return r.query(ctx, query, kindPayment, string(domain.PaymentPending), domain.DateOf(asOf), limit)
}

type QuoteRepository struct {
	*ResourceRepository[domain.Quote]
}

func NewQuoteRepository(db *DB) *QuoteRepository {
	return &QuoteRepository{ResourceRepository: newResourceRepository(db, kindQuote, projectQuote)}
}

func (r *QuoteRepository) FindStale(ctx context.Context, now time.Time, limit int) ([]domain.Quote, error) {
	return r.findStale(ctx, string(domain.QuoteQuoted), now, limit)
}

type InsuranceQuoteRepository struct {
	*ResourceRepository[domain.InsuranceQuote]
}

func NewInsuranceQuoteRepository(db *DB) *InsuranceQuoteRepository {
	return &InsuranceQuoteRepository{ResourceRepository: newResourceRepository(db, kindInsuranceQuote, projectInsuranceQuote)}
}

func (r *InsuranceQuoteRepository) FindStale(ctx context.Context, now time.Time, limit int) ([]domain.InsuranceQuote, error) {
	return r.findStale(ctx, string(domain.InsuranceQuoted), now, limit)
}

type VrpPaymentRepository struct {
	*ResourceRepository[domain.VrpPayment]
}

func NewVrpPaymentRepository(db *DB) *VrpPaymentRepository {
	return &VrpPaymentRepository{ResourceRepository: newResourceRepository(db, kindVrpPayment, projectVrpPayment)}
}

// SumAccepted totals the accepted collections against a consent in one period.
func (r *VrpPaymentRepository) SumAccepted(ctx context.Context, consentID, periodKey string) (decimal.Decimal, error) {
	var total string
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::text FROM resources
		WHERE kind = $1 AND group_key = $2 AND status = $3
	`, kindVrpPayment, domain.Fingerprint(consentID, periodKey), string(domain.VrpPaymentAccepted)).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(total)
}
