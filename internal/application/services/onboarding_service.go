package services

import (
	"context"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
)

type OnboardingService struct {
	core      Core
	accounts  application.Repository[domain.OnboardingAccount]
	kyc       application.KYCDecrypter
	sanctions application.SanctionsScreener
	reads     *application.ReadThrough[domain.OnboardingAccount]
}

func NewOnboardingService(
	core Core,
	accounts application.Repository[domain.OnboardingAccount],
	kyc application.KYCDecrypter,
	sanctions application.SanctionsScreener,
	cache application.Cache[domain.OnboardingAccount],
	cacheTTL time.Duration,
) *OnboardingService {
	return &OnboardingService{
		core:      core,
		accounts:  accounts,
		kyc:       kyc,
		sanctions: sanctions,
		reads:     application.NewReadThrough("onboarding_account", cache, core.Clock, cacheTTL, core.Metrics),
	}
}

// CreateAccount decrypts the submitted KYC profile, screens it and opens an account.
func (s *OnboardingService) CreateAccount(ctx context.Context, cmd CreateAccountCommand) (application.Result[domain.OnboardingAccount], error) {
	var zero application.Result[domain.OnboardingAccount]
	if err := application.Validate(cmd); err != nil {
		return zero, err
	}
	currency, err := domain.NormalizeCurrency(cmd.Currency)
	if err != nil {
		return zero, err
	}

	req := application.IdempotentRequest{
		Operation:   "onboarding.create_account",
		Key:         cmd.IdempotencyKey,
		PrincipalID: cmd.PrincipalID,
		RequestHash: domain.RequestHash(cmd.EncryptedProfile, currency),
	}

	return application.Execute(ctx, s.core.Idempotency, req,
		replayOwned(s.accounts, "account", cmd.PrincipalID),
		func(ctx context.Context) (domain.OnboardingAccount, string, error) {
			profile, err := s.kyc.Decrypt(ctx, cmd.EncryptedProfile)
			if err != nil {
				s.core.Logger.Warn("kyc payload rejected",
					"principal_id", cmd.PrincipalID,
					"error", err)
				return domain.OnboardingAccount{}, "", domain.NewValidationError("decryption failed")
			}
			if err := profile.Validate(); err != nil {
				return domain.OnboardingAccount{}, "", err
			}

			hit, err := s.sanctions.IsSanctioned(ctx, profile)
			if err != nil {
				return domain.OnboardingAccount{}, "", upstream("sanctions screening", err)
			}
			if hit {
				s.core.Logger.Warn("onboarding rejected by sanctions screening",
					"principal_id", cmd.PrincipalID)
				return domain.OnboardingAccount{}, "", domain.NewBusinessRuleError("onboarding rejected")
			}

			account, err := domain.NewOnboardingAccount(newID("ACC"), cmd.PrincipalID, profile, currency, s.core.Clock.Now())
			if err != nil {
				return domain.OnboardingAccount{}, "", err
			}
			saved, err := save(ctx, s.core, s.accounts, "onboarding_account", string(account.Status), account)
			if err != nil {
				return domain.OnboardingAccount{}, "", err
			}
			s.reads.Refresh(ctx, saved.ID, saved)
			s.core.publish(ctx, EventCreated, "onboarding_account", saved, string(saved.Status))
			return saved, saved.ID, nil
		},
	)
}

func (s *OnboardingService) CloseAccount(ctx context.Context, accountID, principalID string) (domain.OnboardingAccount, error) {
	unlock, err := s.core.Locks.Lock(ctx, "onboarding_account", accountID)
	if err != nil {
		return domain.OnboardingAccount{}, err
	}
	defer unlock()

	account, err := loadOwned(ctx, s.accounts, "account", accountID, principalID)
	if err != nil {
		return domain.OnboardingAccount{}, err
	}
	closed, err := account.Close(s.core.Clock.Now())
	if err != nil {
		return domain.OnboardingAccount{}, err
	}
	saved, err := save(ctx, s.core, s.accounts, "onboarding_account", string(closed.Status), closed)
	if err != nil {
		return domain.OnboardingAccount{}, err
	}
	s.reads.Refresh(ctx, saved.ID, saved)
	s.core.publish(ctx, EventFinalized, "onboarding_account", saved, string(saved.Status))
	return saved, nil
}

func (s *OnboardingService) GetAccount(ctx context.Context, accountID, principalID string) (application.Lookup[domain.OnboardingAccount], error) {
	return cachedOwned(ctx, s.reads, s.accounts, "account", accountID, principalID)
}
