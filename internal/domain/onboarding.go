package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

type AccountStatus string

const (
	AccountOpened AccountStatus = "OPENED"
	AccountClosed AccountStatus = "CLOSED"
)

var accountLifecycle = lifecycle[AccountStatus]{
	AccountOpened: false,
	AccountClosed: true,
}

func (s AccountStatus) IsTerminal() bool {
	return accountLifecycle.terminal(s)
}

// KYCProfile is the decrypted identity a TPP submits during onboarding.
type KYCProfile struct {
	FullName   string
	NationalID string
	Country    string
}

func (p KYCProfile) Validate() error {
	if strings.TrimSpace(p.FullName) == "" {
		return NewMissingRequiredFieldError("full name")
	}
	if strings.TrimSpace(p.NationalID) == "" {
		return NewMissingRequiredFieldError("national id")
	}
	if len(strings.TrimSpace(p.Country)) != 2 {
		return NewValidationError("country %q is not a two letter code", p.Country)
	}
	return nil
}

type OnboardingAccount struct {
	Meta
	CustomerName   string
	NationalIDHash string
	Country        string
	Currency       string
	Status         AccountStatus
	ClosedAt       *time.Time
}

// NewOnboardingAccount opens an account. Only a digest of the national id is kept.
func NewOnboardingAccount(id, ownerID string, profile KYCProfile, currency string, now time.Time) (OnboardingAccount, error) {
	meta, err := newMeta(id, ownerID, now)
	if err != nil {
		return OnboardingAccount{}, err
	}
	if err := profile.Validate(); err != nil {
		return OnboardingAccount{}, err
	}
	code, err := NormalizeCurrency(currency)
	if err != nil {
		return OnboardingAccount{}, err
	}

	sum := sha256.Sum256([]byte(strings.TrimSpace(profile.NationalID)))
	return OnboardingAccount{
		Meta:           meta,
		CustomerName:   strings.TrimSpace(profile.FullName),
		NationalIDHash: hex.EncodeToString(sum[:]),
		Country:        strings.ToUpper(strings.TrimSpace(profile.Country)),
		Currency:       code,
		Status:         AccountOpened,
	}, nil
}

func (a OnboardingAccount) Close(now time.Time) (OnboardingAccount, error) {
	if err := ensureOpen(accountLifecycle, "account", a.ID, a.Status); err != nil {
		return OnboardingAccount{}, err
	}
	a.Status = AccountClosed
	a.ClosedAt = &now
	a.Meta = a.touched(now)
	return a, nil
}
