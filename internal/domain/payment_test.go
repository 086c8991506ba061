package domain_test

import (
	"testing"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)

func mustMoney(t *testing.T, amount, currency string) domain.Money {
	t.Helper()
	m, err := domain.ParseMoney(amount, currency)
	require.NoError(t, err)
	return m
}

func dateRef(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func paymentDetails(t *testing.T) domain.PaymentDetails {
	t.Helper()
	return domain.PaymentDetails{
		ConsentID:       "CONS-1",
		InstructionID:   "INSTR-1",
		EndToEndID:      "E2E-1",
		DebtorAccountID: "ACC-001",
		Amount:          mustMoney(t, "250.00", "AED"),
		CreditorIBAN:    "GB82 WEST 1234 5698 7654 32",
		CreditorName:    "Acme Trading",
	}
}

func TestDecidePaymentStatus(t *testing.T) {
	processing := time.Date(2026, 2, 9, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		requested *time.Time
		risk      domain.RiskDecision
		want      domain.PaymentStatus
	}{
		{"future dated is pending", dateRef(2026, 2, 10), domain.RiskPass, domain.PaymentPending},
		{"same day settles immediately", dateRef(2026, 2, 9), domain.RiskPass, domain.PaymentAcceptedSettlementInProcess},
		{"no date settles immediately", nil, domain.RiskPass, domain.PaymentAcceptedSettlementInProcess},
		{"risk reject wins over future date", dateRef(2026, 2, 10), domain.RiskReject, domain.PaymentRejected},
		{"risk reject wins without date", nil, domain.RiskReject, domain.PaymentRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.DecidePaymentStatus(processing, tt.requested, tt.risk))
		})
	}
}

func TestNewPayment(t *testing.T) {
	t.Run("creates immediate payment with normalized iban", func(t *testing.T) {
		p, err := domain.NewPayment("PAY-1", "TPP-1", paymentDetails(t), domain.RiskPass, t0)

		require.NoError(t, err)
		assert.Equal(t, domain.PaymentAcceptedSettlementInProcess, p.Status)
		assert.Equal(t, "GB82WEST12345698765432", p.CreditorIBAN)
		assert.Equal(t, "TPP-1", p.Owner())
		assert.Equal(t, t0, p.CreatedAt)
		assert.True(t, p.Status.IsTerminal())
	})

	t.Run("future date stays pending", func(t *testing.T) {
		details := paymentDetails(t)
		details.RequestedExecutionDate = dateRef(2026, 2, 10)

		p, err := domain.NewPayment("PAY-1", "TPP-1", details, domain.RiskPass, t0)

		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPending, p.Status)
		assert.False(t, p.Status.IsTerminal())
		assert.False(t, p.IsDue(t0))
		assert.True(t, p.IsDue(t0.Add(24*time.Hour)))
	})

	t.Run("rejects invalid creditor iban", func(t *testing.T) {
		details := paymentDetails(t)
		details.CreditorIBAN = "GB82WEST12345698765423"

		_, err := domain.NewPayment("PAY-1", "TPP-1", details, domain.RiskPass, t0)

		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("rejects past execution date", func(t *testing.T) {
		details := paymentDetails(t)
		details.RequestedExecutionDate = dateRef(2026, 2, 8)

		_, err := domain.NewPayment("PAY-1", "TPP-1", details, domain.RiskPass, t0)

		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("rejects missing instruction id", func(t *testing.T) {
		details := paymentDetails(t)
		details.InstructionID = " "

		_, err := domain.NewPayment("PAY-1", "TPP-1", details, domain.RiskPass, t0)

		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Contains(t, err.Error(), "instruction id is required")
	})
}

func TestPayment_StateTransitions(t *testing.T) {
	pending := func(t *testing.T) domain.Payment {
		details := paymentDetails(t)
		details.RequestedExecutionDate = dateRef(2026, 2, 10)
		p, err := domain.NewPayment("PAY-1", "TPP-1", details, domain.RiskPass, t0)
		require.NoError(t, err)
		return p
	}

	t.Run("release returns a new version", func(t *testing.T) {
		p := pending(t)
		later := t0.Add(24 * time.Hour)

		released, err := p.Release("RES-1", later)

		require.NoError(t, err)
		assert.Equal(t, domain.PaymentAcceptedSettlementInProcess, released.Status)
		assert.Equal(t, "RES-1", released.ReservationID)
		assert.Equal(t, later, released.UpdatedAt)
		assert.Equal(t, domain.PaymentPending, p.Status, "original version must be untouched")
	})

	t.Run("reject records the reason", func(t *testing.T) {
		rejected, err := pending(t).Reject("insufficient funds", t0)

		require.NoError(t, err)
		assert.Equal(t, domain.PaymentRejected, rejected.Status)
		assert.Equal(t, "insufficient funds", rejected.RejectionReason)
	})

	t.Run("terminal payments are finalized", func(t *testing.T) {
		released, err := pending(t).Release("RES-1", t0)
		require.NoError(t, err)

		_, err = released.Reject("late", t0)
		assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)

		_, err = released.Release("RES-2", t0)
		assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)
	})
}

func TestParsePaymentStatus(t *testing.T) {
	s, err := domain.ParsePaymentStatus("PENDING")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, s)

	_, err = domain.ParsePaymentStatus("AUTHORIZED")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestNewMoney(t *testing.T) {
	t.Run("parses and upper-cases currency", func(t *testing.T) {
		m, err := domain.ParseMoney("1000.00", "aed")

		require.NoError(t, err)
		assert.Equal(t, "AED", m.Currency)
		assert.Equal(t, "1000.00 AED", m.String())
	})

	t.Run("rejects non positive amount", func(t *testing.T) {
		_, err := domain.ParseMoney("0", "AED")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("rejects more than two decimals", func(t *testing.T) {
		_, err := domain.ParseMoney("10.001", "AED")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("rejects bad currency", func(t *testing.T) {
		_, err := domain.ParseMoney("10", "DIRHAM")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("add refuses mixed currencies", func(t *testing.T) {
		_, err := mustMoney(t, "1", "AED").Add(mustMoney(t, "1", "USD"))
		assert.ErrorIs(t, err, domain.ErrBusinessRule)
	})
}
