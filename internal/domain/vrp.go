package domain

import (
	"strings"
	"time"
)

type VrpConsentStatus string

const (
	VrpConsentAuthorised VrpConsentStatus = "AUTHORISED"
	VrpConsentRevoked    VrpConsentStatus = "REVOKED"
)

var vrpConsentLifecycle = lifecycle[VrpConsentStatus]{
	VrpConsentAuthorised: false,
	VrpConsentRevoked:    true,
}

func (s VrpConsentStatus) IsTerminal() bool {
	return vrpConsentLifecycle.terminal(s)
}

// VrpConsent is a standing authorisation for repeated collections capped per
// calendar month.
type VrpConsent struct {
	Meta
	PsuID              string
	MaxAmountPerPeriod Money
	ExpiresAt          time.Time
	Status             VrpConsentStatus
	RevokedAt          *time.Time
	RevocationReason   string
}

func NewVrpConsent(id, ownerID, psuID string, maxPerPeriod Money, expiresAt, now time.Time) (VrpConsent, error) {
	meta, err := newMeta(id, ownerID, now)
	if err != nil {
		return VrpConsent{}, err
	}
	if strings.TrimSpace(psuID) == "" {
		return VrpConsent{}, NewMissingRequiredFieldError("psu id")
	}
	if !expiresAt.After(now) {
		return VrpConsent{}, NewValidationError("consent expiry must be in the future")
	}
	return VrpConsent{
		Meta:               meta,
		PsuID:              psuID,
		MaxAmountPerPeriod: maxPerPeriod,
		ExpiresAt:          expiresAt,
		Status:             VrpConsentAuthorised,
	}, nil
}

// IsActive is false once revoked or once now reaches ExpiresAt. Expiry is
// evaluated lazily and never stored.
func (c VrpConsent) IsActive(now time.Time) bool {
	return c.Status == VrpConsentAuthorised && now.Before(c.ExpiresAt)
}

// Revoke is idempotent: revoking a revoked consent returns it unchanged.
func (c VrpConsent) Revoke(reason string, now time.Time) VrpConsent {
	if c.Status == VrpConsentRevoked {
		return c
	}
	c.Status = VrpConsentRevoked
	c.RevokedAt = &now
	c.RevocationReason = reason
	c.Meta = c.touched(now)
	return c
}

// EnsureCollectable runs the checks a collection must pass before the period
// limit is considered.
func (c VrpConsent) EnsureCollectable(principalID string, amount Money, now time.Time) error {
	if c.OwnerID != principalID {
		return NewForbiddenError("consent participant mismatch")
	}
	if c.Status == VrpConsentRevoked {
		return NewForbiddenError("consent revoked")
	}
	if !c.IsActive(now) {
		return NewForbiddenError("consent expired")
	}
	if amount.Currency != c.MaxAmountPerPeriod.Currency {
		return NewBusinessRuleError("currency mismatch: consent is in " + c.MaxAmountPerPeriod.Currency)
	}
	return nil
}

// PeriodKey identifies the calendar month an instant falls in.
func PeriodKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

type VrpPaymentStatus string

const VrpPaymentAccepted VrpPaymentStatus = "ACCEPTED"

type VrpPayment struct {
	Meta
	ConsentID string
	Amount    Money
	PeriodKey string
	Status    VrpPaymentStatus
}

func NewVrpPayment(id string, consent VrpConsent, amount Money, now time.Time) (VrpPayment, error) {
	meta, err := newMeta(id, consent.OwnerID, now)
	if err != nil {
		return VrpPayment{}, err
	}
	return VrpPayment{
		Meta:      meta,
		ConsentID: consent.ID,
		Amount:    amount,
		PeriodKey: PeriodKey(now),
		Status:    VrpPaymentAccepted,
	}, nil
}
