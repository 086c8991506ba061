package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type QuoteStatus string

const (
	QuoteQuoted  QuoteStatus = "QUOTED"
	QuoteBooked  QuoteStatus = "BOOKED"
	QuoteExpired QuoteStatus = "EXPIRED"
)

var quoteLifecycle = lifecycle[QuoteStatus]{
	QuoteQuoted:  false,
	QuoteBooked:  true,
	QuoteExpired: true,
}

func (s QuoteStatus) IsTerminal() bool {
	return quoteLifecycle.terminal(s)
}

// Quote is a time boxed FX offer: sell Source, receive Target at Rate.
type Quote struct {
	Meta
	ConsentID  string
	Source     Money
	Target     Money
	Rate       decimal.Decimal
	ValidUntil time.Time
	Status     QuoteStatus
	DealID     string
}

// NewQuote prices source into targetCurrency. The target amount is rounded
// half-even to two decimal places.
func NewQuote(id, ownerID, consentID string, source Money, targetCurrency string, rate decimal.Decimal, now time.Time, validity time.Duration) (Quote, error) {
	meta, err := newMeta(id, ownerID, now)
	if err != nil {
		return Quote{}, err
	}
	target, err := NormalizeCurrency(targetCurrency)
	if err != nil {
		return Quote{}, err
	}
	if target == source.Currency {
		return Quote{}, NewValidationError("source and target currency are both %s", target)
	}
	if !rate.IsPositive() {
		return Quote{}, NewValidationError("rate must be positive")
	}
	if validity <= 0 {
		return Quote{}, NewValidationError("quote validity must be positive")
	}

	return Quote{
		Meta:       meta,
		ConsentID:  consentID,
		Source:     source,
		Target:     Money{Amount: source.Amount.Mul(rate).RoundBank(2), Currency: target},
		Rate:       rate,
		ValidUntil: now.Add(validity),
		Status:     QuoteQuoted,
	}, nil
}

// IsStale reports a quoted offer whose validity window has closed.
func (q Quote) IsStale(now time.Time) bool {
	return q.Status == QuoteQuoted && !now.Before(q.ValidUntil)
}

// Book accepts the quote. Booking at or after ValidUntil is refused; the
// caller should persist Expire(now) instead.
func (q Quote) Book(dealID string, now time.Time) (Quote, error) {
	if err := ensureOpen(quoteLifecycle, "quote", q.ID, q.Status); err != nil {
		return Quote{}, err
	}
	if !now.Before(q.ValidUntil) {
		return Quote{}, NewBusinessRuleError("quote " + q.ID + " has expired")
	}
	q.Status = QuoteBooked
	q.DealID = dealID
	q.Meta = q.touched(now)
	return q, nil
}

// Expire closes an offer whose window has passed. Expiring an expired quote
// returns it unchanged.
func (q Quote) Expire(now time.Time) (Quote, error) {
	if q.Status == QuoteExpired {
		return q, nil
	}
	if err := ensureOpen(quoteLifecycle, "quote", q.ID, q.Status); err != nil {
		return Quote{}, err
	}
	if now.Before(q.ValidUntil) {
		return Quote{}, NewBusinessRuleError("quote " + q.ID + " is still valid")
	}
	q.Status = QuoteExpired
	q.Meta = q.touched(now)
	return q, nil
}

type DealStatus string

const DealBooked DealStatus = "BOOKED"

// Deal is the executed side of a booked quote.
type Deal struct {
	Meta
	QuoteID string
	Sold    Money
	Bought  Money
	Rate    decimal.Decimal
	Status  DealStatus
}

func NewDeal(id string, quote Quote, now time.Time) (Deal, error) {
	meta, err := newMeta(id, quote.OwnerID, now)
	if err != nil {
		return Deal{}, err
	}
	return Deal{
		Meta:    meta,
		QuoteID: quote.ID,
		Sold:    quote.Source,
		Bought:  quote.Target,
		Rate:    quote.Rate,
		Status:  DealBooked,
	}, nil
}
