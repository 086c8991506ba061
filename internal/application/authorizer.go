package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
)

// ConsentAuthorizer checks that a consent lets the calling principal act.
type ConsentAuthorizer struct {
	consents ConsentPort
}

func NewConsentAuthorizer(consents ConsentPort) *ConsentAuthorizer {
	return &ConsentAuthorizer{consents: consents}
}

// ConsentCheck describes what a call needs from the consent.
type ConsentCheck struct {
	ConsentID   string
	PrincipalID string
	Scopes      []string
	ResourceIDs []string
}

// Authorize loads the consent and verifies, in order, that it exists, belongs
// to the caller, is active at now, grants every scope and covers every resource.
func (a *ConsentAuthorizer) Authorize(ctx context.Context, check ConsentCheck, now time.Time) (domain.ConsentContext, error) {
	if strings.TrimSpace(check.ConsentID) == "" {
		return domain.ConsentContext{}, domain.NewMissingRequiredFieldError("consent id")
	}

	consent, err := a.consents.FindByID(ctx, check.ConsentID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return domain.ConsentContext{}, domain.NewForbiddenError("consent not found")
		}
		return domain.ConsentContext{}, NewInternalError(fmt.Errorf("load consent %s: %w", check.ConsentID, err))
	}

	if consent.PrincipalID != check.PrincipalID {
		return domain.ConsentContext{}, domain.NewForbiddenError("consent participant mismatch")
	}
	if !consent.IsActive(now) {
		return domain.ConsentContext{}, domain.NewForbiddenError("consent expired")
	}
	for _, scope := range check.Scopes {
		if !consent.HasScope(scope) {
			return domain.ConsentContext{}, domain.NewForbiddenError("required scope missing: " + scope)
		}
	}
	for _, id := range check.ResourceIDs {
		if !consent.CoversResource(id) {
			return domain.ConsentContext{}, domain.NewForbiddenError("consent does not cover resource " + id)
		}
	}
	return consent, nil
}
