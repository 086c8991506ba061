package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/shopspring/decimal"
)

// Repository stores the latest version of each resource by id.
type Repository[T domain.Entity] struct {
	mu    sync.RWMutex
	items map[string]T
	order []string
}

func NewRepository[T domain.Entity]() *Repository[T] {
	return &Repository[T]{items: make(map[string]T)}
}

func (r *Repository[T]) Save(_ context.Context, resource T) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := resource.ResourceID()
	if id == "" {
		var zero T
		return zero, fmt.Errorf("save %T: empty id", resource)
	}
	if _, exists := r.items[id]; !exists {
		r.order = append(r.order, id)
	}
	r.items[id] = resource
	return resource, nil
}

func (r *Repository[T]) FindByID(_ context.Context, id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: %w", id, application.ErrRecordNotFound)
	}
	return item, nil
}

// Filter returns up to limit resources matching keep, in insertion order.
// A limit <= 0 means no limit.
func (r *Repository[T]) Filter(keep func(T) bool, limit int) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []T
	for _, id := range r.order {
		item := r.items[id]
		if !keep(item) {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

type ConsentRepository struct {
	*Repository[domain.ConsentContext]
}

func NewConsentRepository() *ConsentRepository {
	return &ConsentRepository{Repository: NewRepository[domain.ConsentContext]()}
}

type PaymentRepository struct {
	*Repository[domain.Payment]
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{Repository: NewRepository[domain.Payment]()}
}

// FindDue returns pending payments whose execution date has been reached,
// earliest execution date first.
func (r *PaymentRepository) FindDue(_ context.Context, asOf time.Time, limit int) ([]domain.Payment, error) {
	due := r.Filter(func(p domain.Payment) bool { return p.IsDue(asOf) }, 0)
	slices.SortStableFunc(due, func(a, b domain.Payment) int {
		return a.RequestedExecutionDate.Compare(*b.RequestedExecutionDate)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

type QuoteRepository struct {
	*Repository[domain.Quote]
}

func NewQuoteRepository() *QuoteRepository {
	return &QuoteRepository{Repository: NewRepository[domain.Quote]()}
}

func (r *QuoteRepository) FindStale(_ context.Context, now time.Time, limit int) ([]domain.Quote, error) {
	return r.Filter(func(q domain.Quote) bool { return q.IsStale(now) }, limit), nil
}

type InsuranceQuoteRepository struct {
	*Repository[domain.InsuranceQuote]
}

func NewInsuranceQuoteRepository() *InsuranceQuoteRepository {
	return &InsuranceQuoteRepository{Repository: NewRepository[domain.InsuranceQuote]()}
}

func (r *InsuranceQuoteRepository) FindStale(_ context.Context, now time.Time, limit int) ([]domain.InsuranceQuote, error) {
	return r.Filter(func(q domain.InsuranceQuote) bool { return q.IsStale(now) }, limit), nil
}

type VrpPaymentRepository struct {
	*Repository[domain.VrpPayment]
}

func NewVrpPaymentRepository() *VrpPaymentRepository {
	return &VrpPaymentRepository{Repository: NewRepository[domain.VrpPayment]()}
}

// SumAccepted totals the accepted collections against a consent in one period.
func (r *VrpPaymentRepository) SumAccepted(_ context.Context, consentID, periodKey string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range r.Filter(func(p domain.VrpPayment) bool {
		return p.ConsentID == consentID && p.PeriodKey == periodKey && p.Status == domain.VrpPaymentAccepted
	}, 0) {
		total = total.Add(p.Amount.Amount)
	}
	return total, nil
}
