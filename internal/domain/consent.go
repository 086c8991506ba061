package domain

import (
	"slices"
	"strings"
	"time"
	"unicode"
)

// Well known scopes, already in canonical form.
const (
	ScopePayments            = "PAYMENTS"
	ScopeFX                  = "FX"
	ScopePayRequest          = "PAYREQUEST"
	ScopeBulkPayment         = "BULKPAYMENT"
	ScopeInsurance           = "INSURANCE"
	ScopeConfirmationOfPayee = "CONFIRMATIONOFPAYEE"
)

// NormalizeScope upper-cases a scope and strips every non alphanumeric rune,
// so "ReadAccounts", "READ-ACCOUNTS" and "read_accounts" all become "READACCOUNTS".
func NormalizeScope(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	if b.Len() == 0 {
		return "", NewValidationError("scope %q is blank", raw)
	}
	return b.String(), nil
}

// ConsentContext is the slice of a customer consent the core needs to authorize a call.
type ConsentContext struct {
	ConsentID   string
	PrincipalID string
	Scopes      []string
	ResourceIDs []string
	ExpiresAt   time.Time
}

func NewConsentContext(consentID, principalID string, scopes, resourceIDs []string, expiresAt time.Time) (ConsentContext, error) {
	if consentID == "" {
		return ConsentContext{}, NewMissingRequiredFieldError("consent id")
	}
	if principalID == "" {
		return ConsentContext{}, NewMissingRequiredFieldError("principal id")
	}

	normalized := make([]string, 0, len(scopes))
	for _, raw := range scopes {
		scope, err := NormalizeScope(raw)
		if err != nil {
			return ConsentContext{}, err
		}
		normalized = append(normalized, scope)
	}
	slices.Sort(normalized)
	normalized = slices.Compact(normalized)
	if len(normalized) == 0 {
		return ConsentContext{}, NewValidationError("consent must grant at least one scope")
	}

	resources := slices.Clone(resourceIDs)
	slices.Sort(resources)
	resources = slices.Compact(resources)

	return ConsentContext{
		ConsentID:   consentID,
		PrincipalID: principalID,
		Scopes:      normalized,
		ResourceIDs: resources,
		ExpiresAt:   expiresAt,
	}, nil
}

func (c ConsentContext) ResourceID() string { return c.ConsentID }

func (c ConsentContext) Owner() string { return c.PrincipalID }

// HasScope normalizes scope before comparing. Blank scopes are never granted.
func (c ConsentContext) HasScope(scope string) bool {
	normalized, err := NormalizeScope(scope)
	if err != nil {
		return false
	}
	return slices.Contains(c.Scopes, normalized)
}

// CoversScopes is trivially true for an empty requirement.
func (c ConsentContext) CoversScopes(required ...string) bool {
	for _, scope := range required {
		if !c.HasScope(scope) {
			return false
		}
	}
	return true
}

// CoversResource is true when the consent is not restricted to specific
// resources or lists the given id.
func (c ConsentContext) CoversResource(resourceID string) bool {
	if len(c.ResourceIDs) == 0 {
		return true
	}
	return slices.Contains(c.ResourceIDs, resourceID)
}

func (c ConsentContext) IsActive(now time.Time) bool {
	return now.Before(c.ExpiresAt)
}

// EnsureOwnership fails with a forbidden error when the caller does not own the resource.
func EnsureOwnership(resource Entity, principalID string) error {
	if resource.Owner() != principalID {
		return NewForbiddenError("resource does not belong to the calling participant")
	}
	return nil
}
