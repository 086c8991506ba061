package testhelpers

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/application/services"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/DanielPopoola/openfinance-gateway/internal/infrastructure/events"
	"github.com/DanielPopoola/openfinance-gateway/internal/infrastructure/ledger"
	"github.com/DanielPopoola/openfinance-gateway/internal/infrastructure/memory"
	"github.com/DanielPopoola/openfinance-gateway/internal/infrastructure/placeholder"
	"github.com/DanielPopoola/openfinance-gateway/internal/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Epoch is the instant every harness clock starts at.
var Epoch = time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)

const (
	// DebtorAccount is credited with DebtorBalance in every harness ledger.
	DebtorAccount = "acc-debtor-001"
	DebtorBalance = "10000.00"

	KnownIBAN = "GB82WEST12345698765432"
	KnownName = "Ali Hassan Trading LLC"

	QuoteValidity     = 5 * time.Minute
	CacheTTL          = 30 * time.Second
	CloseMatchPercent = 85
	PollsToComplete   = 2
	MaxFileBytes      = 4096
)

// Harness wires every service to in-memory adapters and a fixed clock.
type Harness struct {
	Clock    *domain.FixedClock
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Events   *events.Recorder
	Ledger   *ledger.InMemoryLedger
	Issuer   *placeholder.SequentialIssuer
	Locker   *memory.KeyedLocker
	Core     services.Core

	Consents        *memory.ConsentRepository
	Payments        *memory.PaymentRepository
	Quotes          *memory.QuoteRepository
	InsuranceQuotes *memory.InsuranceQuoteRepository

	Consent      *services.ConsentService
	Payment      *services.PaymentService
	FX           *services.FXService
	PayRequest   *services.PayRequestService
	VRP          *services.VRPService
	Onboarding   *services.OnboardingService
	Insurance    *services.InsuranceService
	Bulk         *services.BulkPaymentService
	Confirmation *services.ConfirmationService
}

func NewHarness(t *testing.T) *Harness {
	t.Helper()

	h := &Harness{
		Clock:           domain.NewFixedClock(Epoch),
		Registry:        prometheus.NewRegistry(),
		Events:          events.NewRecorder(),
		Ledger:          ledger.NewInMemoryLedger(),
		Issuer:          placeholder.NewSequentialIssuer("POL"),
		Locker:          memory.NewKeyedLocker(),
		Consents:        memory.NewConsentRepository(),
		Payments:        memory.NewPaymentRepository(),
		Quotes:          memory.NewQuoteRepository(),
		InsuranceQuotes: memory.NewInsuranceQuoteRepository(),
	}
	h.Metrics = metrics.New(h.Registry)
	h.Ledger.Credit(DebtorAccount, decimal.RequireFromString(DebtorBalance))

	store, err := memory.NewIdempotencyStore(1000)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.Core = services.Core{
		Clock: h.Clock,
		Idempotency: application.NewIdempotency(store, h.Locker, h.Clock, application.IdempotencyConfig{
			TTL:         24 * time.Hour,
			LockTimeout: time.Second,
		}, h.Metrics, logger),
		Authorizer: application.NewConsentAuthorizer(h.Consents),
		Locks:      application.NewResourceLocks(h.Locker, time.Second),
		Events:     h.Events,
		Metrics:    h.Metrics,
		Logger:     logger,
	}

	directory := placeholder.NewAccountDirectory()
	require.NoError(t, directory.Register(KnownIBAN, KnownName))

	h.Consent = services.NewConsentService(h.Core, h.Consents)
	h.Payment = services.NewPaymentService(h.Core, h.Payments,
		placeholder.NewThresholdRisk(decimal.RequireFromString("50000"), "Blocked Creditor Ltd"),
		h.Ledger)
	h.FX = services.NewFXService(h.Core, h.Quotes, memory.NewRepository[domain.Deal](),
		placeholder.NewStaticRates(), newCache[domain.Quote](t), CacheTTL, QuoteValidity)
	h.PayRequest = services.NewPayRequestService(h.Core, memory.NewRepository[domain.PayRequest]())
	h.VRP = services.NewVRPService(h.Core, memory.NewRepository[domain.VrpConsent](), memory.NewVrpPaymentRepository(),
		h.Locker, time.Second, newCache[domain.VrpConsent](t), CacheTTL)
	h.Onboarding = services.NewOnboardingService(h.Core, memory.NewRepository[domain.OnboardingAccount](),
		placeholder.PrefixKYC{}, placeholder.DefaultSanctionsList(), newCache[domain.OnboardingAccount](t), CacheTTL)
	h.Insurance = services.NewInsuranceService(h.Core, h.InsuranceQuotes, placeholder.NewRatedPremiums(), h.Issuer, QuoteValidity)
	h.Bulk = services.NewBulkPaymentService(h.Core, memory.NewRepository[domain.BulkFile](), newCache[domain.BulkReport](t),
		services.BulkConfig{MaxFileBytes: MaxFileBytes, PollsToComplete: PollsToComplete, ReportTTL: CacheTTL})
	h.Confirmation = services.NewConfirmationService(h.Core, directory, CloseMatchPercent,
		newCache[services.Confirmation](t), CacheTTL)

	return h
}

func newCache[V any](t *testing.T) *memory.TTLCache[V] {
	t.Helper()
	cache, err := memory.NewTTLCache[V](100)
	require.NoError(t, err)
	return cache
}

// GrantConsent stores a consent for principal valid for one day.
func (h *Harness) GrantConsent(t *testing.T, principalID string, scopes []string, resourceIDs ...string) domain.ConsentContext {
	t.Helper()
	consent, err := h.Consent.Grant(context.Background(), services.GrantConsentCommand{
		PrincipalID: principalID,
		Scopes:      scopes,
		ResourceIDs: resourceIDs,
		ExpiresAt:   h.Clock.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	return consent
}

// IdempotencyKey returns a fresh key.
func IdempotencyKey() string {
	return "idem-" + uuid.NewString()
}

// DefaultPaymentCommand returns a valid immediate payment from DebtorAccount.
func DefaultPaymentCommand(principalID, consentID string) services.SubmitPaymentCommand {
	return services.SubmitPaymentCommand{
		PrincipalID:     principalID,
		IdempotencyKey:  IdempotencyKey(),
		ConsentID:       consentID,
		InstructionID:   "instr-" + uuid.NewString()[:8],
		EndToEndID:      "e2e-001",
		DebtorAccountID: DebtorAccount,
		Amount:          "250.00",
		Currency:        "AED",
		CreditorIBAN:    KnownIBAN,
		CreditorName:    KnownName,
	}
}

// Money parses a fixture amount.
func Money(t *testing.T, amount, currency string) domain.Money {
	t.Helper()
	m, err := domain.ParseMoney(amount, currency)
	require.NoError(t, err)
	return m
}
