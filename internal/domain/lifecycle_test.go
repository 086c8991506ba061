package domain_test

import (
	"testing"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayRequest_Lifecycle(t *testing.T) {
	newRequest := func(t *testing.T) domain.PayRequest {
		r, err := domain.NewPayRequest("PRQ-1", "TPP-1", "CONS-1", "Acme Trading", "", mustMoney(t, "99.50", "AED"), t0)
		require.NoError(t, err)
		return r
	}

	t.Run("consume", func(t *testing.T) {
		r := newRequest(t)
		assert.Equal(t, domain.PayRequestAwaitingAuthorisation, r.Status)

		consumed, err := r.Consume("PAY-1", t0.Add(time.Minute))

		require.NoError(t, err)
		assert.Equal(t, domain.PayRequestConsumed, consumed.Status)
		assert.Equal(t, "PAY-1", consumed.PaymentID)
		assert.Equal(t, domain.PayRequestAwaitingAuthorisation, r.Status)
	})

	t.Run("terminal requests reject every transition", func(t *testing.T) {
		rejected, err := newRequest(t).Reject(t0)
		require.NoError(t, err)

		_, err = rejected.Reject(t0)
		assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)

		_, err = rejected.Consume("PAY-1", t0)
		assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)
	})

	t.Run("payer iban must be valid when given", func(t *testing.T) {
		_, err := domain.NewPayRequest("PRQ-1", "TPP-1", "CONS-1", "Acme", "GB28WEST12345698765432", mustMoney(t, "1", "AED"), t0)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestVrpConsent(t *testing.T) {
	newConsent := func(t *testing.T) domain.VrpConsent {
		c, err := domain.NewVrpConsent("VRP-1", "TPP-1", "PSU-1", mustMoney(t, "5000.00", "AED"), t0.Add(24*time.Hour), t0)
		require.NoError(t, err)
		return c
	}

	t.Run("revoke is idempotent", func(t *testing.T) {
		c := newConsent(t)

		revoked := c.Revoke("customer request", t0.Add(time.Minute))
		again := revoked.Revoke("second call", t0.Add(2*time.Minute))

		assert.Equal(t, domain.VrpConsentRevoked, revoked.Status)
		assert.Equal(t, revoked, again)
		assert.Equal(t, "customer request", again.RevocationReason)
		assert.Equal(t, domain.VrpConsentAuthorised, c.Status)
	})

	t.Run("expiry is lazy", func(t *testing.T) {
		c := newConsent(t)

		assert.True(t, c.IsActive(t0))
		assert.False(t, c.IsActive(t0.Add(24*time.Hour)))
		assert.Equal(t, domain.VrpConsentAuthorised, c.Status)
	})

	t.Run("collection checks", func(t *testing.T) {
		c := newConsent(t)
		amount := mustMoney(t, "100.00", "AED")

		assert.NoError(t, c.EnsureCollectable("TPP-1", amount, t0))
		assert.ErrorIs(t, c.EnsureCollectable("TPP-2", amount, t0), domain.ErrForbidden)
		assert.ErrorIs(t, c.EnsureCollectable("TPP-1", amount, t0.Add(48*time.Hour)), domain.ErrForbidden)
		assert.ErrorIs(t, c.EnsureCollectable("TPP-1", mustMoney(t, "100.00", "USD"), t0), domain.ErrBusinessRule)

		err := c.Revoke("", t0).EnsureCollectable("TPP-1", amount, t0)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.Contains(t, err.Error(), "revoked")
	})

	t.Run("period key is calendar month", func(t *testing.T) {
		assert.Equal(t, "2026-02", domain.PeriodKey(t0))
	})
}

func TestOnboardingAccount(t *testing.T) {
	profile := domain.KYCProfile{FullName: "Fatima Khan", NationalID: "784-1990-1234567-1", Country: "ae"}

	account, err := domain.NewOnboardingAccount("ACC-1", "TPP-1", profile, "aed", t0)
	require.NoError(t, err)

	assert.Equal(t, domain.AccountOpened, account.Status)
	assert.Equal(t, "AE", account.Country)
	assert.Equal(t, "AED", account.Currency)
	assert.NotContains(t, account.NationalIDHash, "784")

	closed, err := account.Close(t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.AccountClosed, closed.Status)

	_, err = closed.Close(t0.Add(2 * time.Hour))
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)

	_, err = domain.NewOnboardingAccount("ACC-2", "TPP-1", domain.KYCProfile{FullName: "x", Country: "AE"}, "AED", t0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestInsuranceQuote(t *testing.T) {
	newQuote := func(t *testing.T) domain.InsuranceQuote {
		q, err := domain.NewInsuranceQuote("INS-1", "TPP-1", "CONS-1", "motor",
			mustMoney(t, "50000.00", "AED"), mustMoney(t, "1250.00", "AED"), t0, time.Hour)
		require.NoError(t, err)
		return q
	}

	t.Run("accept issues policy number", func(t *testing.T) {
		accepted, err := newQuote(t).Accept("POL-1", t0.Add(time.Minute))

		require.NoError(t, err)
		assert.Equal(t, domain.InsuranceAccepted, accepted.Status)
		assert.Equal(t, "POL-1", accepted.PolicyNumber)

		_, err = accepted.Accept("POL-2", t0.Add(time.Minute))
		assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)
	})

	t.Run("accept after validity is refused", func(t *testing.T) {
		_, err := newQuote(t).Accept("POL-1", t0.Add(time.Hour))
		assert.ErrorIs(t, err, domain.ErrBusinessRule)
	})

	t.Run("expire is idempotent", func(t *testing.T) {
		expired, err := newQuote(t).Expire(t0.Add(time.Hour))
		require.NoError(t, err)

		again, err := expired.Expire(t0.Add(2 * time.Hour))
		require.NoError(t, err)
		assert.Equal(t, expired, again)
	})
}

func TestIdempotencyRecord(t *testing.T) {
	rec, err := domain.NewIdempotencyRecord("key-1", "TPP-1", "hash", "PAY-1", t0, time.Hour)
	require.NoError(t, err)

	assert.True(t, rec.ExpiresAt.After(rec.CreatedAt))
	assert.False(t, rec.IsExpired(t0.Add(59*time.Minute)))
	assert.True(t, rec.IsExpired(t0.Add(time.Hour)))
	assert.True(t, rec.Matches("hash"))
	assert.False(t, rec.Matches("other"))

	_, err = domain.NewIdempotencyRecord("key-1", "TPP-1", "hash", "PAY-1", t0, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = domain.NewIdempotencyRecord(" ", "TPP-1", "hash", "PAY-1", t0, time.Hour)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
