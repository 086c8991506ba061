package services

import (
	"context"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
)

type ConsentService struct {
	core     Core
	consents application.ConsentRepository
}

func NewConsentService(core Core, consents application.ConsentRepository) *ConsentService {
	return &ConsentService{core: core, consents: consents}
}

// Grant records a consent a PSU gave to the calling participant.
func (s *ConsentService) Grant(ctx context.Context, cmd GrantConsentCommand) (domain.ConsentContext, error) {
	if err := application.Validate(cmd); err != nil {
		return domain.ConsentContext{}, err
	}
	now := s.core.Clock.Now()
	if !cmd.ExpiresAt.After(now) {
		return domain.ConsentContext{}, domain.NewValidationError("consent expiry must be in the future")
	}

	consent, err := domain.NewConsentContext(newID("CNS"), cmd.PrincipalID, cmd.Scopes, cmd.ResourceIDs, cmd.ExpiresAt.UTC())
	if err != nil {
		return domain.ConsentContext{}, err
	}
	saved, err := save[domain.ConsentContext](ctx, s.core, s.consents, "consent", "AUTHORISED", consent)
	if err != nil {
		return domain.ConsentContext{}, err
	}

	s.core.Logger.Info("consent granted",
		"consent_id", saved.ConsentID,
		"principal_id", saved.PrincipalID,
		"scopes", saved.Scopes)
	return saved, nil
}

func (s *ConsentService) Get(ctx context.Context, consentID, principalID string) (domain.ConsentContext, error) {
	return loadOwned[domain.ConsentContext](ctx, s.consents, "consent", consentID, principalID)
}
