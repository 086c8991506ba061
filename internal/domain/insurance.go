package domain

import (
	"strings"
	"time"
)

type InsuranceQuoteStatus string

const (
	InsuranceQuoted   InsuranceQuoteStatus = "QUOTED"
	InsuranceAccepted InsuranceQuoteStatus = "ACCEPTED"
	InsuranceExpired  InsuranceQuoteStatus = "EXPIRED"
)

var insuranceLifecycle = lifecycle[InsuranceQuoteStatus]{
	InsuranceQuoted:   false,
	InsuranceAccepted: true,
	InsuranceExpired:  true,
}

func (s InsuranceQuoteStatus) IsTerminal() bool {
	return insuranceLifecycle.terminal(s)
}

type InsuranceQuote struct {
	Meta
	ConsentID    string
	ProductCode  string
	Coverage     Money
	Premium      Money
	ValidUntil   time.Time
	Status       InsuranceQuoteStatus
	PolicyNumber string
}

func NewInsuranceQuote(id, ownerID, consentID, productCode string, coverage, premium Money, now time.Time, validity time.Duration) (InsuranceQuote, error) {
	meta, err := newMeta(id, ownerID, now)
	if err != nil {
		return InsuranceQuote{}, err
	}
	product := strings.ToUpper(strings.TrimSpace(productCode))
	if product == "" {
		return InsuranceQuote{}, NewMissingRequiredFieldError("product code")
	}
	if premium.Currency != coverage.Currency {
		return InsuranceQuote{}, NewValidationError("premium and coverage currencies differ")
	}
	if validity <= 0 {
		return InsuranceQuote{}, NewValidationError("quote validity must be positive")
	}
	return InsuranceQuote{
		Meta:        meta,
		ConsentID:   consentID,
		ProductCode: product,
		Coverage:    coverage,
		Premium:     premium,
		ValidUntil:  now.Add(validity),
		Status:      InsuranceQuoted,
	}, nil
}

func (q InsuranceQuote) IsStale(now time.Time) bool {
	return q.Status == InsuranceQuoted && !now.Before(q.ValidUntil)
}

func (q InsuranceQuote) Accept(policyNumber string, now time.Time) (InsuranceQuote, error) {
	if err := ensureOpen(insuranceLifecycle, "insurance quote", q.ID, q.Status); err != nil {
		return InsuranceQuote{}, err
	}
	if !now.Before(q.ValidUntil) {
		return InsuranceQuote{}, NewBusinessRuleError("insurance quote " + q.ID + " has expired")
	}
	if strings.TrimSpace(policyNumber) == "" {
		return InsuranceQuote{}, NewMissingRequiredFieldError("policy number")
	}
	q.Status = InsuranceAccepted
	q.PolicyNumber = policyNumber
	q.Meta = q.touched(now)
	return q, nil
}

// Expire mirrors Quote.Expire: idempotent on an expired quote, refused while still valid.
func (q InsuranceQuote) Expire(now time.Time) (InsuranceQuote, error) {
	if q.Status == InsuranceExpired {
		return q, nil
	}
	if err := ensureOpen(insuranceLifecycle, "insurance quote", q.ID, q.Status); err != nil {
		return InsuranceQuote{}, err
	}
	if now.Before(q.ValidUntil) {
		return InsuranceQuote{}, NewBusinessRuleError("insurance quote " + q.ID + " is still valid")
	}
	q.Status = InsuranceExpired
	q.Meta = q.touched(now)
	return q, nil
}
