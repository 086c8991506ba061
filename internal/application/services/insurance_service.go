package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
)

type InsuranceService struct {
	core     Core
	quotes   application.InsuranceQuoteRepository
	premiums application.PremiumCalculator
	issuer   application.PolicyIssuer
	validity time.Duration
}

func NewInsuranceService(
	core Core,
	quotes application.InsuranceQuoteRepository,
	premiums application.PremiumCalculator,
	issuer application.PolicyIssuer,
	validity time.Duration,
) *InsuranceService {
	return &InsuranceService{
		core:     core,
		quotes:   quotes,
		premiums: premiums,
		issuer:   issuer,
		validity: validity,
	}
}

func (s *InsuranceService) CreateQuote(ctx context.Context, cmd CreateInsuranceQuoteCommand) (application.Result[domain.InsuranceQuote], error) {
	var zero application.Result[domain.InsuranceQuote]
	if err := application.Validate(cmd); err != nil {
		return zero, err
	}
	coverage, err := domain.ParseMoney(cmd.CoverageAmount, cmd.Currency)
	if err != nil {
		return zero, err
	}

	req := application.IdempotentRequest{
		Operation:   "insurance.create_quote",
		Key:         cmd.IdempotencyKey,
		PrincipalID: cmd.PrincipalID,
		RequestHash: domain.RequestHash(cmd.ConsentID, cmd.ProductCode, coverage.Amount.StringFixed(2), coverage.Currency),
	}

	return application.Execute(ctx, s.core.Idempotency, req,
		replayOwned[domain.InsuranceQuote](s.quotes, "insurance quote", cmd.PrincipalID),
		func(ctx context.Context) (domain.InsuranceQuote, string, error) {
			now := s.core.Clock.Now()
			_, err := s.core.Authorizer.Authorize(ctx, application.ConsentCheck{
				ConsentID:   cmd.ConsentID,
				PrincipalID: cmd.PrincipalID,
				Scopes:      []string{domain.ScopeInsurance},
			}, now)
			if err != nil {
				return domain.InsuranceQuote{}, "", err
			}

			premium, err := s.premiums.Premium(ctx, cmd.ProductCode, coverage)
			if err != nil {
				return domain.InsuranceQuote{}, "", upstream("premium calculator", err)
			}
			quote, err := domain.NewInsuranceQuote(newID("INSQ"), cmd.PrincipalID, cmd.ConsentID, cmd.ProductCode, coverage, premium, now, s.validity)
			if err != nil {
				return domain.InsuranceQuote{}, "", err
			}
			saved, err := save[domain.InsuranceQuote](ctx, s.core, s.quotes, "insurance_quote", string(quote.Status), quote)
			if err != nil {
				return domain.InsuranceQuote{}, "", err
			}
			s.core.publish(ctx, EventCreated, "insurance_quote", saved, string(saved.Status))
			return saved, saved.ID, nil
		},
	)
}

// AcceptQuote issues the policy for a quote. The issuer is called at most
// once per idempotency key.
func (s *InsuranceService) AcceptQuote(ctx context.Context, cmd AcceptInsuranceQuoteCommand) (application.Result[domain.InsuranceQuote], error) {
	var zero application.Result[domain.InsuranceQuote]
	if err := application.Validate(cmd); err != nil {
		return zero, err
	}

	req := application.IdempotentRequest{
		Operation:   "insurance.accept_quote",
		Key:         cmd.IdempotencyKey,
		PrincipalID: cmd.PrincipalID,
		RequestHash: domain.RequestHash(cmd.QuoteID, "accept"),
	}

	return application.Execute(ctx, s.core.Idempotency, req,
		replayOwned[domain.InsuranceQuote](s.quotes, "insurance quote", cmd.PrincipalID),
		func(ctx context.Context) (domain.InsuranceQuote, string, error) {
			unlock, err := s.core.Locks.Lock(ctx, "insurance_quote", cmd.QuoteID)
			if err != nil {
				return domain.InsuranceQuote{}, "", err
			}
			defer unlock()

			now := s.core.Clock.Now()
			quote, err := loadOwned[domain.InsuranceQuote](ctx, s.quotes, "insurance quote", cmd.QuoteID, cmd.PrincipalID)
			if err != nil {
				return domain.InsuranceQuote{}, "", err
			}
			if quote.IsStale(now) {
				if _, err := s.expire(ctx, quote, now); err != nil {
					return domain.InsuranceQuote{}, "", err
				}
				return domain.InsuranceQuote{}, "", domain.NewBusinessRuleError("insurance quote " + quote.ID + " has expired")
			}
			if quote.Status.IsTerminal() {
				return domain.InsuranceQuote{}, "", domain.NewAlreadyFinalizedError("insurance quote", quote.ID, string(quote.Status))
			}

			policyNumber, err := s.issuer.Issue(ctx, quote)
			if err != nil {
				return domain.InsuranceQuote{}, "", upstream("policy issuer", err)
			}
			accepted, err := quote.Accept(policyNumber, now)
			if err != nil {
				return domain.InsuranceQuote{}, "", err
			}
			saved, err := save[domain.InsuranceQuote](ctx, s.core, s.quotes, "insurance_quote", string(accepted.Status), accepted)
			if err != nil {
				return domain.InsuranceQuote{}, "", err
			}
			s.core.publish(ctx, EventFinalized, "insurance_quote", saved, string(saved.Status))
			s.core.Logger.Info("insurance policy issued",
				"quote_id", saved.ID,
				"policy_number", saved.PolicyNumber,
				"principal_id", saved.OwnerID)
			return saved, saved.ID, nil
		},
	)
}

func (s *InsuranceService) GetQuote(ctx context.Context, quoteID, principalID string) (domain.InsuranceQuote, error) {
	return loadOwned[domain.InsuranceQuote](ctx, s.quotes, "insurance quote", quoteID, principalID)
}

func (s *InsuranceService) ExpireStale(ctx context.Context, batchSize int) (int, error) {
	now := s.core.Clock.Now()
	stale, err := s.quotes.FindStale(ctx, now, batchSize)
	if err != nil {
		return 0, fmt.Errorf("find stale insurance quotes: %w", err)
	}

	expired := 0
	for _, quote := range stale {
		ok, err := s.expireIfStale(ctx, quote.ID, now)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return expired, err
			}
			s.core.Logger.Error("failed to expire insurance quote",
				"quote_id", quote.ID,
				"error", err)
			continue
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

func (s *InsuranceService) expireIfStale(ctx context.Context, quoteID string, now time.Time) (bool, error) {
	unlock, err := s.core.Locks.Lock(ctx, "insurance_quote", quoteID)
	if err != nil {
		return false, err
	}
	defer unlock()

	quote, err := load[domain.InsuranceQuote](ctx, s.quotes, "insurance quote", quoteID)
	if err != nil {
		return false, err
	}
	if !quote.IsStale(now) {
		return false, nil
	}
	if _, err := s.expire(ctx, quote, now); err != nil {
		return false, err
	}
	return true, nil
}

func (s *InsuranceService) expire(ctx context.Context, quote domain.InsuranceQuote, now time.Time) (domain.InsuranceQuote, error) {
	next, err := quote.Expire(now)
	if err != nil {
		return domain.InsuranceQuote{}, err
	}
	if next.Status == quote.Status {
		return next, nil
	}
	saved, err := save[domain.InsuranceQuote](ctx, s.core, s.quotes, "insurance_quote", string(next.Status), next)
	if err != nil {
		return domain.InsuranceQuote{}, err
	}
	s.core.publish(ctx, EventFinalized, "insurance_quote", saved, string(saved.Status))
	return saved, nil
}
