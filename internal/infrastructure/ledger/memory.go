package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InMemoryLedger is a sandbox ledger. Reservations are idempotent per key:
// repeating a key returns the first reservation without touching the balance.
type InMemoryLedger struct {
	mu           sync.Mutex
	balances     map[string]decimal.Decimal
	reservations map[string]application.FundsReservation
}

func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{
		balances:     make(map[string]decimal.Decimal),
		reservations: make(map[string]application.FundsReservation),
	}
}

func (l *InMemoryLedger) Credit(accountID string, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[accountID] = l.balances[accountID].Add(amount)
}

func (l *InMemoryLedger) Balance(accountID string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[accountID]
}

// Reservations counts distinct reservations taken.
func (l *InMemoryLedger) Reservations() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.reservations)
}

func (l *InMemoryLedger) Reserve(_ context.Context, accountID string, amount domain.Money, idempotencyKey string) (*application.FundsReservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if idempotencyKey != "" {
		if existing, ok := l.reservations[idempotencyKey]; ok {
			return &existing, nil
		}
	}

	balance, ok := l.balances[accountID]
	if !ok {
		return nil, &LedgerError{Code: "account_not_found", Message: "unknown account " + accountID, StatusCode: 404}
	}
	if balance.LessThan(amount.Amount) {
		return nil, fmt.Errorf("account %s: %w", accountID, &LedgerError{
			Code:       CodeInsufficientFunds,
			Message:    "balance below requested amount",
			StatusCode: 422,
		})
	}

	l.balances[accountID] = balance.Sub(amount.Amount)
	reservation := application.FundsReservation{
		ReservationID: "RSV-" + uuid.NewString(),
		AccountID:     accountID,
		Amount:        amount,
	}
	key := idempotencyKey
	if key == "" {
		key = reservation.ReservationID
	}
	l.reservations[key] = reservation
	return &reservation, nil
}
