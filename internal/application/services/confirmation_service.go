package services

import (
	"context"
	"errors"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
)

// Confirmation is the outcome of a confirmation of payee check. AccountName
// is only disclosed on a close match.
type Confirmation struct {
	IBAN        string           `json:"iban"`
	Result      domain.NameMatch `json:"result"`
	Score       int              `json:"score"`
	AccountName string           `json:"account_name,omitempty"`
}

type ConfirmationService struct {
	core      Core
	directory application.AccountDirectory
	threshold int
	reads     *application.ReadThrough[Confirmation]
}

func NewConfirmationService(
	core Core,
	directory application.AccountDirectory,
	closeMatchThreshold int,
	cache application.Cache[Confirmation],
	cacheTTL time.Duration,
) *ConfirmationService {
	return &ConfirmationService{
		core:      core,
		directory: directory,
		threshold: closeMatchThreshold,
		reads:     application.NewReadThrough("payee_confirmation", cache, core.Clock, cacheTTL, core.Metrics),
	}
}

// Confirm compares the name a payer typed with the holder of iban.
func (s *ConfirmationService) Confirm(ctx context.Context, query ConfirmPayeeQuery) (application.Lookup[Confirmation], error) {
	var zero application.Lookup[Confirmation]
	if err := application.Validate(query); err != nil {
		return zero, err
	}
	iban, err := domain.NormalizeIBAN(query.IBAN)
	if err != nil {
		return zero, err
	}

	_, err = s.core.Authorizer.Authorize(ctx, application.ConsentCheck{
		ConsentID:   query.ConsentID,
		PrincipalID: query.PrincipalID,
		Scopes:      []string{domain.ScopeConfirmationOfPayee},
	}, s.core.Clock.Now())
	if err != nil {
		return zero, err
	}

	key := domain.Fingerprint(iban, domain.NormalizeName(query.Name))
	return s.reads.Get(ctx, key, func(ctx context.Context) (Confirmation, error) {
		holder, err := s.directory.Lookup(ctx, iban)
		if err != nil {
			if errors.Is(err, application.ErrRecordNotFound) {
				return Confirmation{}, domain.NewNotFoundError("account", iban)
			}
			return Confirmation{}, upstream("account directory", err)
		}

		score := domain.NameSimilarity(query.Name, holder.Name)
		result, err := domain.DecideNameMatch(score, s.threshold)
		if err != nil {
			return Confirmation{}, err
		}
		c := Confirmation{IBAN: iban, Result: result, Score: score}
		if result == domain.NameMatchClose {
			c.AccountName = holder.Name
		}
		return c, nil
	})
}
