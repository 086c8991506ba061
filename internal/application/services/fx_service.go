package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
)

type FXService struct {
	core     Core
	quotes   application.QuoteRepository
	deals    application.Repository[domain.Deal]
	rates    application.RateProvider
	reads    *application.ReadThrough[domain.Quote]
	validity time.Duration
}

func NewFXService(
	core Core,
	quotes application.QuoteRepository,
	deals application.Repository[domain.Deal],
	rates application.RateProvider,
	cache application.Cache[domain.Quote],
	cacheTTL time.Duration,
	validity time.Duration,
) *FXService {
	return &FXService{
		core:     core,
		quotes:   quotes,
		deals:    deals,
		rates:    rates,
		reads:    application.NewReadThrough("fx_quote", cache, core.Clock, cacheTTL, core.Metrics),
		validity: validity,
	}
}

// CreateQuote prices an FX conversion valid for the configured window.
func (s *FXService) CreateQuote(ctx context.Context, cmd CreateQuoteCommand) (application.Result[domain.Quote], error) {
	var zero application.Result[domain.Quote]
	if err := application.Validate(cmd); err != nil {
		return zero, err
	}
	source, err := domain.ParseMoney(cmd.Amount, cmd.SourceCurrency)
	if err != nil {
		return zero, err
	}
	target, err := domain.NormalizeCurrency(cmd.TargetCurrency)
	if err != nil {
		return zero, err
	}
	if target == source.Currency {
		return zero, domain.NewValidationError("source and target currency are both %s", target)
	}

	req := application.IdempotentRequest{
		Operation:   "fx.create_quote",
		Key:         cmd.IdempotencyKey,
		PrincipalID: cmd.PrincipalID,
		RequestHash: domain.RequestHash(cmd.ConsentID, source.Currency, target, source.Amount.StringFixed(2)),
	}

	return application.Execute(ctx, s.core.Idempotency, req,
		replayOwned[domain.Quote](s.quotes, "quote", cmd.PrincipalID),
		func(ctx context.Context) (domain.Quote, string, error) {
			now := s.core.Clock.Now()
			_, err := s.core.Authorizer.Authorize(ctx, application.ConsentCheck{
				ConsentID:   cmd.ConsentID,
				PrincipalID: cmd.PrincipalID,
				Scopes:      []string{domain.ScopeFX},
			}, now)
			if err != nil {
				return domain.Quote{}, "", err
			}

			rate, err := s.rates.Rate(ctx, source.Currency, target)
			if err != nil {
				return domain.Quote{}, "", upstream("rate provider", err)
			}

			quote, err := domain.NewQuote(newID("QT"), cmd.PrincipalID, cmd.ConsentID, source, target, rate, now, s.validity)
			if err != nil {
				return domain.Quote{}, "", err
			}
			saved, err := save[domain.Quote](ctx, s.core, s.quotes, "quote", string(quote.Status), quote)
			if err != nil {
				return domain.Quote{}, "", err
			}
			s.reads.Refresh(ctx, saved.ID, saved)
			s.core.publish(ctx, EventCreated, "quote", saved, string(saved.Status))
			return saved, saved.ID, nil
		},
	)
}

// ExecuteDeal books a quote. A quote whose window has closed is stored as
// EXPIRED and the booking fails.
func (s *FXService) ExecuteDeal(ctx context.Context, cmd ExecuteDealCommand) (application.Result[domain.Deal], error) {
	var zero application.Result[domain.Deal]
	if err := application.Validate(cmd); err != nil {
		return zero, err
	}

	req := application.IdempotentRequest{
		Operation:   "fx.execute_deal",
		Key:         cmd.IdempotencyKey,
		PrincipalID: cmd.PrincipalID,
		RequestHash: domain.RequestHash(cmd.QuoteID),
	}

	return application.Execute(ctx, s.core.Idempotency, req,
		replayOwned(s.deals, "deal", cmd.PrincipalID),
		func(ctx context.Context) (domain.Deal, string, error) {
			unlock, err := s.core.Locks.Lock(ctx, "quote", cmd.QuoteID)
			if err != nil {
				return domain.Deal{}, "", err
			}
			defer unlock()

			now := s.core.Clock.Now()
			quote, err := loadOwned[domain.Quote](ctx, s.quotes, "quote", cmd.QuoteID, cmd.PrincipalID)
			if err != nil {
				return domain.Deal{}, "", err
			}

			dealID := newID("DL")
			booked, err := quote.Book(dealID, now)
			if err != nil {
				if errors.Is(err, domain.ErrBusinessRule) && quote.IsStale(now) {
					if _, expireErr := s.expire(ctx, quote, now); expireErr != nil {
						return domain.Deal{}, "", expireErr
					}
				}
				return domain.Deal{}, "", err
			}

			deal, err := domain.NewDeal(dealID, booked, now)
			if err != nil {
				return domain.Deal{}, "", err
			}
			if _, err := save(ctx, s.core, s.deals, "deal", string(deal.Status), deal); err != nil {
				return domain.Deal{}, "", err
			}
			saved, err := save[domain.Quote](ctx, s.core, s.quotes, "quote", string(booked.Status), booked)
			if err != nil {
				return domain.Deal{}, "", err
			}
			s.reads.Refresh(ctx, saved.ID, saved)
			s.core.publish(ctx, EventFinalized, "quote", saved, string(saved.Status))
			s.core.publish(ctx, EventCreated, "deal", deal, string(deal.Status))
			return deal, deal.ID, nil
		},
	)
}

// ExpireQuote closes a quote whose window has passed. Expiring an already
// expired quote returns it unchanged.
func (s *FXService) ExpireQuote(ctx context.Context, quoteID, principalID string) (domain.Quote, error) {
	unlock, err := s.core.Locks.Lock(ctx, "quote", quoteID)
	if err != nil {
		return domain.Quote{}, err
	}
	defer unlock()

	quote, err := loadOwned[domain.Quote](ctx, s.quotes, "quote", quoteID, principalID)
	if err != nil {
		return domain.Quote{}, err
	}
	return s.expire(ctx, quote, s.core.Clock.Now())
}

// GetQuote is served from cache when possible.
func (s *FXService) GetQuote(ctx context.Context, quoteID, principalID string) (application.Lookup[domain.Quote], error) {
	return cachedOwned[domain.Quote](ctx, s.reads, s.quotes, "quote", quoteID, principalID)
}

// ExpireStale moves quotes past their window to EXPIRED.
func (s *FXService) ExpireStale(ctx context.Context, batchSize int) (int, error) {
	now := s.core.Clock.Now()
	stale, err := s.quotes.FindStale(ctx, now, batchSize)
	if err != nil {
		return 0, fmt.Errorf("find stale quotes: %w", err)
	}

	expired := 0
	for _, quote := range stale {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		ok, err := s.expireIfStale(ctx, quote.ID, now)
		if err != nil {
			s.core.Logger.Error("failed to expire quote",
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

// expireIfStale re-reads the quote under its lock, since a deal may have
// booked it after the stale scan.
func (s *FXService) expireIfStale(ctx context.Context, quoteID string, now time.Time) (bool, error) {
	unlock, err := s.core.Locks.Lock(ctx, "quote", quoteID)
	if err != nil {
		return false, err
	}
	defer unlock()

	quote, err := load[domain.Quote](ctx, s.quotes, "quote", quoteID)
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

func (s *FXService) expire(ctx context.Context, quote domain.Quote, now time.Time) (domain.Quote, error) {
	next, err := quote.Expire(now)
	if err != nil {
		return domain.Quote{}, err
	}
	if next.Status == quote.Status {
		return next, nil
	}
	saved, err := save[domain.Quote](ctx, s.core, s.quotes, "quote", string(next.Status), next)
	if err != nil {
		return domain.Quote{}, err
	}
	s.reads.Refresh(ctx, saved.ID, saved)
	s.core.publish(ctx, EventFinalized, "quote", saved, string(saved.Status))
	return saved, nil
}
