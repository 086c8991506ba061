package application

import (
	"context"
	"errors"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrRecordNotFound is returned by repositories when no record has the requested id.
var ErrRecordNotFound = errors.New("record not found")

// ErrInsufficientFunds is wrapped by FundsReserver adapters when the ledger
// declines a reservation.
var ErrInsufficientFunds = errors.New("insufficient funds")

// IdempotencyStore remembers mutation outcomes per (key, principal).
// Find lazily discards a record once now reaches its ExpiresAt and reports a miss.
// Save overwrites any existing record for the same pair.
type IdempotencyStore interface {
	Find(ctx context.Context, key, principalID string, now time.Time) (domain.IdempotencyRecord, bool, error)
	Save(ctx context.Context, record domain.IdempotencyRecord) error
}

// Cache is a size bounded TTL cache. Entries are never returned once now
// reaches their expiry. Misses are not errors.
type Cache[V any] interface {
	Get(ctx context.Context, key string, now time.Time) (V, bool)
	Put(ctx context.Context, key string, value V, expiresAt time.Time)
}

// Locker provides mutual exclusion per key. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Repository stores immutable resource versions; Save replaces the stored version.
type Repository[T domain.Entity] interface {
	Save(ctx context.Context, resource T) (T, error)
	FindByID(ctx context.Context, id string) (T, error)
}

type ConsentPort interface {
	FindByID(ctx context.Context, consentID string) (domain.ConsentContext, error)
}

type ConsentRepository interface {
	ConsentPort
	Save(ctx context.Context, consent domain.ConsentContext) (domain.ConsentContext, error)
}

type PaymentRepository interface {
	Repository[domain.Payment]
	FindDue(ctx context.Context, asOf time.Time, limit int) ([]domain.Payment, error)
}

type QuoteRepository interface {
	Repository[domain.Quote]
	FindStale(ctx context.Context, now time.Time, limit int) ([]domain.Quote, error)
}

type InsuranceQuoteRepository interface {
	Repository[domain.InsuranceQuote]
	FindStale(ctx context.Context, now time.Time, limit int) ([]domain.InsuranceQuote, error)
}

type VrpPaymentRepository interface {
	Repository[domain.VrpPayment]
	SumAccepted(ctx context.Context, consentID, periodKey string) (decimal.Decimal, error)
}

// Event is the outbound notification emitted after a resource version is stored.
type Event struct {
	Type        string    `json:"type"`
	Resource    string    `json:"resource"`
	ResourceID  string    `json:"resource_id"`
	PrincipalID string    `json:"principal_id"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// EventPublisher is fire and forget: delivery failures are logged by the adapter.
type EventPublisher interface {
	PublishCreated(ctx context.Context, event Event)
	PublishFinalized(ctx context.Context, event Event)
}

// Outbound collaborators. Production integrations are out of scope; the
// placeholder package provides deterministic adapters.

type RateProvider interface {
	Rate(ctx context.Context, source, target string) (decimal.Decimal, error)
}

type RiskAssessor interface {
	Assess(ctx context.Context, principalID string, details domain.PaymentDetails) (domain.RiskDecision, error)
}

type FundsReservation struct {
	ReservationID string
	AccountID     string
	Amount        domain.Money
}

// FundsReserver holds funds on the debtor account. The idempotency key is
// forwarded so a retried reservation is not taken twice.
type FundsReserver interface {
	Reserve(ctx context.Context, accountID string, amount domain.Money, idempotencyKey string) (*FundsReservation, error)
}

type KYCDecrypter interface {
	Decrypt(ctx context.Context, payload string) (domain.KYCProfile, error)
}

type SanctionsScreener interface {
	IsSanctioned(ctx context.Context, profile domain.KYCProfile) (bool, error)
}

type PremiumCalculator interface {
	Premium(ctx context.Context, productCode string, coverage domain.Money) (domain.Money, error)
}

type PolicyIssuer interface {
	Issue(ctx context.Context, quote domain.InsuranceQuote) (string, error)
}

type AccountHolder struct {
	IBAN string
	Name string
}

type AccountDirectory interface {
	Lookup(ctx context.Context, iban string) (AccountHolder, error)
}
