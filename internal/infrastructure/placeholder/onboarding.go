package placeholder

import (
	"context"
	"errors"
	"strings"

	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
)

const kycPrefix = "jwe:"

var ErrMalformedPayload = errors.New("malformed kyc payload")

// PrefixKYC decodes payloads of the form jwe:<full name>|<national id>|<country>.
type PrefixKYC struct{}

func (PrefixKYC) Decrypt(_ context.Context, payload string) (domain.KYCProfile, error) {
	body, ok := strings.CutPrefix(strings.TrimSpace(payload), kycPrefix)
	if !ok {
		return domain.KYCProfile{}, ErrMalformedPayload
	}
	parts := strings.Split(body, "|")
	if len(parts) != 3 {
		return domain.KYCProfile{}, ErrMalformedPayload
	}
	return domain.KYCProfile{
		FullName:   strings.TrimSpace(parts[0]),
		NationalID: strings.TrimSpace(parts[1]),
		Country:    strings.ToUpper(strings.TrimSpace(parts[2])),
	}, nil
}

// SanctionsList flags profiles whose national id or name is listed.
type SanctionsList struct {
	entries map[string]bool
}

func NewSanctionsList(entries ...string) *SanctionsList {
	list := &SanctionsList{entries: make(map[string]bool)}
	for _, e := range entries {
		list.entries[domain.NormalizeName(e)] = true
	}
	return list
}

// DefaultSanctionsList holds the fixed test entry used in sandbox environments.
func DefaultSanctionsList() *SanctionsList {
	return NewSanctionsList("TEST_BLOCKED")
}

func (l *SanctionsList) IsSanctioned(_ context.Context, profile domain.KYCProfile) (bool, error) {
	return l.entries[domain.NormalizeName(profile.NationalID)] || l.entries[domain.NormalizeName(profile.FullName)], nil
}
