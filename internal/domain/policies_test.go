package domain_test

import (
	"testing"

	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateIBAN(t *testing.T) {
	tests := []struct {
		iban  string
		valid bool
	}{
		{"GB82WEST12345698765432", true},
		{"GB82 WEST 1234 5698 7654 32", true},
		{"gb82west12345698765432", true},
		{"DE89370400440532013000", true},
		{"AE070331234567890123456", true},
		{"GB82WEST12345698765423", false},
		{"GB28WEST12345698765432", false},
		{"GB82WEST1234", false},
		{"1282WEST12345698765432", false},
		{"GB82-WEST-12345698765432", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.iban, func(t *testing.T) {
			assert.Equal(t, tt.valid, domain.ValidateIBAN(tt.iban))
		})
	}
}

func TestNameSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 100},
		{"Acme Trading", "ACME   trading", 100},
		{"John Smith", "Jon Smith", 90},
		{"Ahmed Al Mansouri", "Ahmed Al Mansoori", 94},
		{"Ahmed Al Mansouri", "Ahmed Al-Mansoori", 88},
		{"Acme Trading LLC", "Acme Trading", 75},
		{"John Smith", "Jane Doe", 20},
		{"abc", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.NameSimilarity(tt.a, tt.b))
		})
	}
}

func TestDecideNameMatch(t *testing.T) {
	tests := []struct {
		score int
		want  domain.NameMatch
	}{
		{100, domain.NameMatchExact},
		{99, domain.NameMatchClose},
		{85, domain.NameMatchClose},
		{84, domain.NameMatchNone},
		{0, domain.NameMatchNone},
	}

	for _, tt := range tests {
		got, err := domain.DecideNameMatch(tt.score, 85)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "score %d", tt.score)
	}

	t.Run("score outside range", func(t *testing.T) {
		_, err := domain.DecideNameMatch(101, 85)
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = domain.DecideNameMatch(-1, 85)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("threshold outside range", func(t *testing.T) {
		_, err := domain.DecideNameMatch(50, 100)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "", domain.Fingerprint())
	assert.Equal(t, "a|b|c", domain.Fingerprint("a", "b", "c"))
	assert.NotEqual(t, domain.Fingerprint("a", "b"), domain.Fingerprint("b", "a"))

	assert.Equal(t, "", domain.RequestHash())
	assert.Len(t, domain.RequestHash("a"), 64)
	assert.Equal(t, domain.RequestHash("a", "b"), domain.RequestHash("a", "b"))
	assert.NotEqual(t, domain.RequestHash("a", "b"), domain.RequestHash("a", "c"))
}
