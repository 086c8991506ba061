package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/application/services"
	"github.com/DanielPopoola/openfinance-gateway/internal/application/services/testhelpers"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createVrpConsent(t *testing.T, h *testhelpers.Harness, limit string) domain.VrpConsent {
	t.Helper()
	res, err := h.VRP.CreateConsent(context.Background(), services.CreateVrpConsentCommand{
		PrincipalID:        tppA,
		IdempotencyKey:     testhelpers.IdempotencyKey(),
		PsuID:              "psu-001",
		MaxAmountPerPeriod: limit,
		Currency:           "AED",
		ExpiresAt:          h.Clock.Now().AddDate(0, 6, 0),
	})
	require.NoError(t, err)
	return res.Value
}

func collect(h *testhelpers.Harness, consentID, amount string) error {
	_, err := h.VRP.SubmitCollection(context.Background(), services.SubmitCollectionCommand{
		PrincipalID:    tppA,
		IdempotencyKey: testhelpers.IdempotencyKey(),
		ConsentID:      consentID,
		Amount:         amount,
		Currency:       "AED",
	})
	return err
}

func TestVRPService(t *testing.T) {
	ctx := context.Background()

	t.Run("collections stop at the period limit", func(t *testing.T) {
		h := testhelpers.NewHarness(t)
		consent := createVrpConsent(t, h, "500.00")

		require.NoError(t, collect(h, consent.ID, "300.00"))
		require.NoError(t, collect(h, consent.ID, "200.00"))

		err := collect(h, consent.ID, "0.01")
		require.ErrorIs(t, err, domain.ErrBusinessRule)
		assert.Contains(t, err.Error(), "limit exceeded")
	})

	t.Run("the limit resets with the calendar month", func(t *testing.T) {
		h := testhelpers.NewHarness(t)
		consent := createVrpConsent(t, h, "100.00")
		require.NoError(t, collect(h, consent.ID, "100.00"))
		require.Error(t, collect(h, consent.ID, "1.00"))

		h.Clock.Set(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
		assert.NoError(t, collect(h, consent.ID, "100.00"))
	})

	t.Run("concurrent collections cannot overshoot the limit", func(t *testing.T) {
		h := testhelpers.NewHarness(t)
		consent := createVrpConsent(t, h, "500.00")

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted int
			limited  int
		)
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := collect(h, consent.ID, "100.00")
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					accepted++
					return
				}
				if assert.ErrorIs(t, err, domain.ErrBusinessRule) {
					limited++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 5, accepted)
		assert.Equal(t, 5, limited)
	})

	t.Run("collection replay does not count twice", func(t *testing.T) {
		h := testhelpers.NewHarness(t)
		consent := createVrpConsent(t, h, "150.00")
		cmd := services.SubmitCollectionCommand{
			PrincipalID:    tppA,
			IdempotencyKey: testhelpers.IdempotencyKey(),
			ConsentID:      consent.ID,
			Amount:         "100.00",
			Currency:       "AED",
		}

		first, err := h.VRP.SubmitCollection(ctx, cmd)
		require.NoError(t, err)
		second, err := h.VRP.SubmitCollection(ctx, cmd)
		require.NoError(t, err)
		assert.True(t, second.Replayed)
		assert.Equal(t, first.Value.ID, second.Value.ID)
		assert.NoError(t, collect(h, consent.ID, "50.00"))
	})

	t.Run("revoked and foreign consents refuse collections", func(t *testing.T) {
		h := testhelpers.NewHarness(t)
		consent := createVrpConsent(t, h, "500.00")

		_, err := h.VRP.SubmitCollection(ctx, services.SubmitCollectionCommand{
			PrincipalID:    tppB,
			IdempotencyKey: testhelpers.IdempotencyKey(),
			ConsentID:      consent.ID,
			Amount:         "10.00",
			Currency:       "AED",
		})
		assert.ErrorIs(t, err, domain.ErrForbidden)

		require.NoError(t, collect(h, consent.ID, "10.00"))

		revoked, err := h.VRP.RevokeConsent(ctx, services.RevokeVrpConsentCommand{PrincipalID: tppA, ConsentID: consent.ID, Reason: "customer request"})
		require.NoError(t, err)
		assert.Equal(t, domain.VrpConsentRevoked, revoked.Status)

		again, err := h.VRP.RevokeConsent(ctx, services.RevokeVrpConsentCommand{PrincipalID: tppA, ConsentID: consent.ID, Reason: "second"})
		require.NoError(t, err)
		assert.Equal(t, "customer request", again.RevocationReason)

		assert.ErrorIs(t, collect(h, consent.ID, "10.00"), domain.ErrForbidden)

		lookup, err := h.VRP.GetConsent(ctx, consent.ID, tppA)
		require.NoError(t, err)
		assert.True(t, lookup.CacheHit)
		assert.Equal(t, domain.VrpConsentRevoked, lookup.Value.Status)
	})

	t.Run("currency must match the consent", func(t *testing.T) {
		h := testhelpers.NewHarness(t)
		consent := createVrpConsent(t, h, "500.00")
		_, err := h.VRP.SubmitCollection(ctx, services.SubmitCollectionCommand{
			PrincipalID:    tppA,
			IdempotencyKey: testhelpers.IdempotencyKey(),
			ConsentID:      consent.ID,
			Amount:         "10.00",
			Currency:       "USD",
		})
		assert.ErrorIs(t, err, domain.ErrBusinessRule)
	})

	t.Run("expired consent is forbidden", func(t *testing.T) {
		h := testhelpers.NewHarness(t)
		consent := createVrpConsent(t, h, "500.00")
		h.Clock.Set(consent.ExpiresAt)
		assert.ErrorIs(t, collect(h, consent.ID, "10.00"), domain.ErrForbidden)
	})
}
