package worker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/application/services"
	"github.com/DanielPopoola/openfinance-gateway/internal/application/services/testhelpers"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/DanielPopoola/openfinance-gateway/internal/infrastructure/memory"
	"github.com/DanielPopoola/openfinance-gateway/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tpp = "tpp-alpha"

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduledPaymentWorker_DrainsAllDuePayments(t *testing.T) {
	ctx := context.Background()
	h := testhelpers.NewHarness(t)
	consent := h.GrantConsent(t, tpp, []string{domain.ScopePayments}, testhelpers.DebtorAccount)

	tomorrow := testhelpers.Epoch.AddDate(0, 0, 1).Format("2006-01-02")
	var ids []string
	for range 3 {
		cmd := testhelpers.DefaultPaymentCommand(tpp, consent.ConsentID)
		cmd.RequestedExecutionDate = tomorrow
		res, err := h.Payment.Submit(ctx, cmd)
		require.NoError(t, err)
		require.Equal(t, domain.PaymentPending, res.Value.Status)
		ids = append(ids, res.Value.ID)
	}

	w := worker.NewScheduledPaymentWorker(h.Payment, time.Minute, 2, discard())

	released, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, released, "nothing is due today")

	h.Clock.Advance(24 * time.Hour)
	released, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, released)

	for _, id := range ids {
		p, err := h.Payment.Get(ctx, id, tpp)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentAcceptedSettlementInProcess, p.Status)
	}
	assert.Equal(t, 3, h.Ledger.Reservations())
}

type failingBook struct{}

func (failingBook) ExpireStale(context.Context, int) (int, error) {
	return 0, errors.New("database unavailable")
}

func TestQuoteExpirationWorker(t *testing.T) {
	ctx := context.Background()
	h := testhelpers.NewHarness(t)
	consent := h.GrantConsent(t, tpp, []string{domain.ScopeFX, domain.ScopeInsurance})

	fx, err := h.FX.CreateQuote(ctx, services.CreateQuoteCommand{
		PrincipalID:    tpp,
		IdempotencyKey: testhelpers.IdempotencyKey(),
		ConsentID:      consent.ConsentID,
		SourceCurrency: "AED",
		TargetCurrency: "USD",
		Amount:         "1000.00",
	})
	require.NoError(t, err)
	insurance, err := h.Insurance.CreateQuote(ctx, services.CreateInsuranceQuoteCommand{
		PrincipalID:    tpp,
		IdempotencyKey: testhelpers.IdempotencyKey(),
		ConsentID:      consent.ConsentID,
		ProductCode:    "MOTOR",
		CoverageAmount: "50000.00",
		Currency:       "AED",
	})
	require.NoError(t, err)

	w := worker.NewQuoteExpirationWorker(map[string]worker.StaleQuoteExpirer{
		"fx":        h.FX,
		"insurance": h.Insurance,
		"broken":    failingBook{},
	}, time.Minute, 10, discard())

	h.Clock.Advance(testhelpers.QuoteValidity)
	expired, err := w.RunOnce(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, 1, expired["fx"])
	assert.Equal(t, 1, expired["insurance"])

	quote, err := h.Quotes.FindByID(ctx, fx.Value.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteExpired, quote.Status)

	policy, err := h.Insurance.GetQuote(ctx, insurance.Value.ID, tpp)
	require.NoError(t, err)
	assert.Equal(t, domain.InsuranceExpired, policy.Status)
}

func TestIdempotencyPurgeWorker(t *testing.T) {
	ctx := context.Background()
	store, err := memory.NewIdempotencyStore(10)
	require.NoError(t, err)
	clock := domain.NewFixedClock(testhelpers.Epoch)

	rec, err := domain.NewIdempotencyRecord("key-1", tpp, "hash", "PAY-1", clock.Now(), time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, rec))

	w := worker.NewIdempotencyPurgeWorker(store, clock, time.Minute, discard())

	deleted, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	clock.Advance(time.Hour)
	deleted, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

type countingReleaser struct {
	calls atomic.Int32
}

func (c *countingReleaser) ReleaseDue(context.Context, int) (int, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestWorkerStopsOnCancel(t *testing.T) {
	releaser := &countingReleaser{}
	w := worker.NewScheduledPaymentWorker(releaser, 10*time.Millisecond, 10, discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return releaser.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}
