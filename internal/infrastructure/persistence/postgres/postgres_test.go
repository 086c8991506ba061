package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/application/services/testhelpers"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/DanielPopoola/openfinance-gateway/internal/infrastructure/persistence/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)

func money(t *testing.T, amount, currency string) domain.Money {
	t.Helper()
	m, err := domain.ParseMoney(amount, currency)
	require.NoError(t, err)
	return m
}

func TestPostgresRepositories(t *testing.T) {
	testDB := testhelpers.SetupTestDatabase(t)
	ctx := context.Background()

	t.Run("idempotency records are scoped per principal and expire lazily", func(t *testing.T) {
		testDB.CleanTables(t)
		repo := postgres.NewIdempotencyRepository(testDB.DB)

		rec, err := domain.NewIdempotencyRecord("key-1", "tpp-a", "hash-1", "PAY-1", t0, time.Hour)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, rec))

		found, ok, err := repo.Find(ctx, "key-1", "tpp-a", t0.Add(time.Minute))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "PAY-1", found.ResultRef)
		assert.True(t, found.Matches("hash-1"))

		_, ok, err = repo.Find(ctx, "key-1", "tpp-b", t0)
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = repo.Find(ctx, "key-1", "tpp-a", t0.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, ok)

		purged, err := repo.DeleteExpired(ctx, t0.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Zero(t, purged, "expired record was already removed by Find")
	})

	t.Run("resources round trip and missing ids map to not found", func(t *testing.T) {
		testDB.CleanTables(t)
		repo := postgres.NewPayRequestRepository(testDB.DB)

		pr, err := domain.NewPayRequest("PR-1", "tpp-a", "consent-1", "Ali Hassan", "GB82WEST12345698765432", money(t, "150.00", "AED"), t0)
		require.NoError(t, err)
		_, err = repo.Save(ctx, pr)
		require.NoError(t, err)

		loaded, err := repo.FindByID(ctx, "PR-1")
		require.NoError(t, err)
		assert.Equal(t, pr.Status, loaded.Status)
		assert.Equal(t, "150.00 AED", loaded.Amount.String())

		_, err = repo.FindByID(ctx, "PR-404")
		assert.ErrorIs(t, err, application.ErrRecordNotFound)
	})

	t.Run("due payments are found by execution day", func(t *testing.T) {
		testDB.CleanTables(t)
		repo := postgres.NewPaymentRepository(testDB.DB)

		tomorrow := t0.Add(24 * time.Hour)
		later := t0.Add(72 * time.Hour)
		for id, date := range map[string]time.Time{"PAY-1": tomorrow, "PAY-2": later} {
			d := date
			p, err := domain.NewPayment(id, "tpp-a", domain.PaymentDetails{
				ConsentID:              "consent-1",
				InstructionID:          "instr-" + id,
				EndToEndID:             "e2e-" + id,
				DebtorAccountID:        "acc-1",
				Amount:                 money(t, "10.00", "AED"),
				CreditorIBAN:           "GB82WEST12345698765432",
				CreditorName:           "Ali Hassan",
				RequestedExecutionDate: &d,
			}, domain.RiskPass, t0)
			require.NoError(t, err)
			require.Equal(t, domain.PaymentPending, p.Status)
			_, err = repo.Save(ctx, p)
			require.NoError(t, err)
		}

		due, err := repo.FindDue(ctx, tomorrow.Add(time.Hour), 10)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, "PAY-1", due[0].ID)
	})

	t.Run("accepted collections are summed per consent period", func(t *testing.T) {
		testDB.CleanTables(t)
		consents := postgres.NewVrpConsentRepository(testDB.DB)
		collections := postgres.NewVrpPaymentRepository(testDB.DB)

		consent, err := domain.NewVrpConsent("VRP-1", "tpp-a", "psu-1", money(t, "500.00", "AED"), t0.Add(90*24*time.Hour), t0)
		require.NoError(t, err)
		_, err = consents.Save(ctx, consent)
		require.NoError(t, err)

		for i, amount := range []string{"120.00", "80.50"} {
			p, err := domain.NewVrpPayment("VRPPAY-"+string(rune('A'+i)), consent, money(t, amount, "AED"), t0)
			require.NoError(t, err)
			_, err = collections.Save(ctx, p)
			require.NoError(t, err)
		}

		total, err := collections.SumAccepted(ctx, "VRP-1", domain.PeriodKey(t0))
		require.NoError(t, err)
		assert.Equal(t, "200.50", total.StringFixed(2))

		other, err := collections.SumAccepted(ctx, "VRP-1", domain.PeriodKey(t0.AddDate(0, 1, 0)))
		require.NoError(t, err)
		assert.True(t, other.IsZero())
	})
}
