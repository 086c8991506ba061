package services

import (
	"context"
	"strings"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
)

// VRPService manages variable recurring payment consents and the
// collections made against them.
type VRPService struct {
	core        Core
	consents    application.Repository[domain.VrpConsent]
	collections application.VrpPaymentRepository
	locker      application.Locker
	lockTimeout time.Duration
	reads       *application.ReadThrough[domain.VrpConsent]
}

func NewVRPService(
	core Core,
	consents application.Repository[domain.VrpConsent],
	collections application.VrpPaymentRepository,
	locker application.Locker,
	lockTimeout time.Duration,
	cache application.Cache[domain.VrpConsent],
	cacheTTL time.Duration,
) *VRPService {
	return &VRPService{
		core:        core,
		consents:    consents,
		collections: collections,
		locker:      locker,
		lockTimeout: lockTimeout,
		reads:       application.NewReadThrough("vrp_consent", cache, core.Clock, cacheTTL, core.Metrics),
	}
}

func (s *VRPService) CreateConsent(ctx context.Context, cmd CreateVrpConsentCommand) (application.Result[domain.VrpConsent], error) {
	var zero application.Result[domain.VrpConsent]
	if err := application.Validate(cmd); err != nil {
		return zero, err
	}
	limit, err := domain.ParseMoney(cmd.MaxAmountPerPeriod, cmd.Currency)
	if err != nil {
		return zero, err
	}
	expiresAt := cmd.ExpiresAt.UTC()

	req := application.IdempotentRequest{
		Operation:   "vrp.create_consent",
		Key:         cmd.IdempotencyKey,
		PrincipalID: cmd.PrincipalID,
		RequestHash: domain.RequestHash(strings.TrimSpace(cmd.PsuID), limit.Amount.StringFixed(2), limit.Currency, expiresAt.Format(time.RFC3339)),
	}

	return application.Execute(ctx, s.core.Idempotency, req,
		replayOwned(s.consents, "vrp consent", cmd.PrincipalID),
		func(ctx context.Context) (domain.VrpConsent, string, error) {
			consent, err := domain.NewVrpConsent(newID("VRP"), cmd.PrincipalID, strings.TrimSpace(cmd.PsuID), limit, expiresAt, s.core.Clock.Now())
			if err != nil {
				return domain.VrpConsent{}, "", err
			}
			saved, err := save(ctx, s.core, s.consents, "vrp_consent", string(consent.Status), consent)
			if err != nil {
				return domain.VrpConsent{}, "", err
			}
			s.reads.Refresh(ctx, saved.ID, saved)
			s.core.publish(ctx, EventCreated, "vrp_consent", saved, string(saved.Status))
			return saved, saved.ID, nil
		},
	)
}

// RevokeConsent is idempotent: revoking a revoked consent returns it as stored.
func (s *VRPService) RevokeConsent(ctx context.Context, cmd RevokeVrpConsentCommand) (domain.VrpConsent, error) {
	if err := application.Validate(cmd); err != nil {
		return domain.VrpConsent{}, err
	}

	unlock, err := s.lockConsent(ctx, cmd.ConsentID)
	if err != nil {
		return domain.VrpConsent{}, err
	}
	defer unlock()

	consent, err := loadOwned(ctx, s.consents, "vrp consent", cmd.ConsentID, cmd.PrincipalID)
	if err != nil {
		return domain.VrpConsent{}, err
	}
	revoked := consent.Revoke(cmd.Reason, s.core.Clock.Now())
	if revoked.Status == consent.Status {
		return consent, nil
	}

	saved, err := save(ctx, s.core, s.consents, "vrp_consent", string(revoked.Status), revoked)
	if err != nil {
		return domain.VrpConsent{}, err
	}
	s.reads.Refresh(ctx, saved.ID, saved)
	s.core.publish(ctx, EventFinalized, "vrp_consent", saved, string(saved.Status))
	s.core.Logger.Info("vrp consent revoked",
		"consent_id", saved.ID,
		"principal_id", saved.OwnerID,
		"reason", saved.RevocationReason)
	return saved, nil
}

// SubmitCollection takes a payment against a VRP consent. The period limit
// check and the save run under a per-consent lock so concurrent collections
// with different idempotency keys cannot overshoot the cap together.
func (s *VRPService) SubmitCollection(ctx context.Context, cmd SubmitCollectionCommand) (application.Result[domain.VrpPayment], error) {
	var zero application.Result[domain.VrpPayment]
	if err := application.Validate(cmd); err != nil {
		return zero, err
	}
	amount, err := domain.ParseMoney(cmd.Amount, cmd.Currency)
	if err != nil {
		return zero, err
	}

	req := application.IdempotentRequest{
		Operation:   "vrp.submit_collection",
		Key:         cmd.IdempotencyKey,
		PrincipalID: cmd.PrincipalID,
		RequestHash: domain.RequestHash(cmd.ConsentID, amount.Amount.StringFixed(2), amount.Currency),
	}

	return application.Execute(ctx, s.core.Idempotency, req,
		replayOwned[domain.VrpPayment](s.collections, "vrp payment", cmd.PrincipalID),
		func(ctx context.Context) (domain.VrpPayment, string, error) {
			unlock, err := s.lockConsent(ctx, cmd.ConsentID)
			if err != nil {
				return domain.VrpPayment{}, "", err
			}
			defer unlock()

			now := s.core.Clock.Now()
			consent, err := load(ctx, s.consents, "vrp consent", cmd.ConsentID)
			if err != nil {
				return domain.VrpPayment{}, "", err
			}
			if err := consent.EnsureCollectable(cmd.PrincipalID, amount, now); err != nil {
				return domain.VrpPayment{}, "", err
			}

			collected, err := s.collections.SumAccepted(ctx, consent.ID, domain.PeriodKey(now))
			if err != nil {
				return domain.VrpPayment{}, "", application.NewInternalError(err)
			}
			if collected.Add(amount.Amount).GreaterThan(consent.MaxAmountPerPeriod.Amount) {
				return domain.VrpPayment{}, "", domain.NewBusinessRuleError("limit exceeded")
			}

			payment, err := domain.NewVrpPayment(newID("VRPP"), consent, amount, now)
			if err != nil {
				return domain.VrpPayment{}, "", err
			}
			saved, err := save[domain.VrpPayment](ctx, s.core, s.collections, "vrp_payment", string(payment.Status), payment)
			if err != nil {
				return domain.VrpPayment{}, "", err
			}
			s.core.publish(ctx, EventCreated, "vrp_payment", saved, string(saved.Status))
			return saved, saved.ID, nil
		},
	)
}

func (s *VRPService) GetConsent(ctx context.Context, consentID, principalID string) (application.Lookup[domain.VrpConsent], error) {
	return cachedOwned(ctx, s.reads, s.consents, "vrp consent", consentID, principalID)
}

func (s *VRPService) GetCollection(ctx context.Context, paymentID, principalID string) (domain.VrpPayment, error) {
	return loadOwned[domain.VrpPayment](ctx, s.collections, "vrp payment", paymentID, principalID)
}

func (s *VRPService) lockConsent(ctx context.Context, consentID string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	unlock, err := s.locker.Lock(lockCtx, "vrp-consent:"+consentID)
	if err != nil {
		return nil, application.NewRequestProcessingError(err)
	}
	return unlock, nil
}
