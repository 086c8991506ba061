package services

import (
	"context"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
)

type PayRequestService struct {
	core     Core
	requests application.Repository[domain.PayRequest]
}

func NewPayRequestService(core Core, requests application.Repository[domain.PayRequest]) *PayRequestService {
	return &PayRequestService{core: core, requests: requests}
}

func (s *PayRequestService) Create(ctx context.Context, cmd CreatePayRequestCommand) (application.Result[domain.PayRequest], error) {
	var zero application.Result[domain.PayRequest]
	if err := application.Validate(cmd); err != nil {
		return zero, err
	}
	amount, err := domain.ParseMoney(cmd.Amount, cmd.Currency)
	if err != nil {
		return zero, err
	}

	req := application.IdempotentRequest{
		Operation:   "payrequest.create",
		Key:         cmd.IdempotencyKey,
		PrincipalID: cmd.PrincipalID,
		RequestHash: domain.RequestHash(cmd.ConsentID, cmd.PayerIBAN, domain.NormalizeName(cmd.PayeeName), amount.Amount.StringFixed(2), amount.Currency),
	}

	return application.Execute(ctx, s.core.Idempotency, req,
		replayOwned(s.requests, "pay request", cmd.PrincipalID),
		func(ctx context.Context) (domain.PayRequest, string, error) {
			now := s.core.Clock.Now()
			_, err := s.core.Authorizer.Authorize(ctx, application.ConsentCheck{
				ConsentID:   cmd.ConsentID,
				PrincipalID: cmd.PrincipalID,
				Scopes:      []string{domain.ScopePayRequest},
			}, now)
			if err != nil {
				return domain.PayRequest{}, "", err
			}

			request, err := domain.NewPayRequest(newID("PRQ"), cmd.PrincipalID, cmd.ConsentID, cmd.PayeeName, cmd.PayerIBAN, amount, now)
			if err != nil {
				return domain.PayRequest{}, "", err
			}
			saved, err := save(ctx, s.core, s.requests, "pay_request", string(request.Status), request)
			if err != nil {
				return domain.PayRequest{}, "", err
			}
			s.core.publish(ctx, EventCreated, "pay_request", saved, string(saved.Status))
			return saved, saved.ID, nil
		},
	)
}

// Consume links the pay request to the payment that settled it.
func (s *PayRequestService) Consume(ctx context.Context, cmd ConsumePayRequestCommand) (application.Result[domain.PayRequest], error) {
	if err := application.Validate(cmd); err != nil {
		return application.Result[domain.PayRequest]{}, err
	}
	req := application.IdempotentRequest{
		Operation:   "payrequest.consume",
		Key:         cmd.IdempotencyKey,
		PrincipalID: cmd.PrincipalID,
		RequestHash: domain.RequestHash(cmd.PayRequestID, cmd.PaymentID),
	}
	return s.finalize(ctx, req, cmd.PayRequestID, func(r domain.PayRequest) (domain.PayRequest, error) {
		return r.Consume(cmd.PaymentID, s.core.Clock.Now())
	})
}

func (s *PayRequestService) Reject(ctx context.Context, cmd RejectPayRequestCommand) (application.Result[domain.PayRequest], error) {
	if err := application.Validate(cmd); err != nil {
		return application.Result[domain.PayRequest]{}, err
	}
	req := application.IdempotentRequest{
		Operation:   "payrequest.reject",
		Key:         cmd.IdempotencyKey,
		PrincipalID: cmd.PrincipalID,
		RequestHash: domain.RequestHash(cmd.PayRequestID, "reject"),
	}
	return s.finalize(ctx, req, cmd.PayRequestID, func(r domain.PayRequest) (domain.PayRequest, error) {
		return r.Reject(s.core.Clock.Now())
	})
}

func (s *PayRequestService) Get(ctx context.Context, payRequestID, principalID string) (domain.PayRequest, error) {
	return loadOwned(ctx, s.requests, "pay request", payRequestID, principalID)
}

func (s *PayRequestService) finalize(
	ctx context.Context,
	req application.IdempotentRequest,
	payRequestID string,
	transition func(domain.PayRequest) (domain.PayRequest, error),
) (application.Result[domain.PayRequest], error) {
	return application.Execute(ctx, s.core.Idempotency, req,
		replayOwned(s.requests, "pay request", req.PrincipalID),
		func(ctx context.Context) (domain.PayRequest, string, error) {
			unlock, err := s.core.Locks.Lock(ctx, "pay_request", payRequestID)
			if err != nil {
				return domain.PayRequest{}, "", err
			}
			defer unlock()

			current, err := loadOwned(ctx, s.requests, "pay request", payRequestID, req.PrincipalID)
			if err != nil {
				return domain.PayRequest{}, "", err
			}
			next, err := transition(current)
			if err != nil {
				return domain.PayRequest{}, "", err
			}
			saved, err := save(ctx, s.core, s.requests, "pay_request", string(next.Status), next)
			if err != nil {
				return domain.PayRequest{}, "", err
			}
			s.core.publish(ctx, EventFinalized, "pay_request", saved, string(saved.Status))
			return saved, saved.ID, nil
		},
	)
}
