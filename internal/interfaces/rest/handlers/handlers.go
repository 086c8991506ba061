// Package handlers exposes the open finance services over HTTP. Handlers
// decode JSON, take the participant from the request context and translate
// results and errors; every rule lives in the services.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/DanielPopoola/openfinance-gateway/internal/application/services"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/DanielPopoola/openfinance-gateway/internal/interfaces/rest"
	"github.com/DanielPopoola/openfinance-gateway/internal/interfaces/rest/middleware"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 8 << 20

// HealthCheck reports whether a backing store is reachable.
type HealthCheck func(ctx context.Context) error

type Services struct {
	Consents     *services.ConsentService
	Payments     *services.PaymentService
	FX           *services.FXService
	PayRequests  *services.PayRequestService
	VRP          *services.VRPService
	Onboarding   *services.OnboardingService
	Insurance    *services.InsuranceService
	Bulk         *services.BulkPaymentService
	Confirmation *services.ConfirmationService
}

type Handlers struct {
	svc    Services
	health map[string]HealthCheck
	logger *slog.Logger
}

func NewHandlers(svc Services, health map[string]HealthCheck, logger *slog.Logger) *Handlers {
	return &Handlers{svc: svc, health: health, logger: logger}
}

// Register mounts the API routes on r. The caller is expected to have
// installed middleware.Authenticate on r.
func (h *Handlers) Register(r chi.Router) {
	r.Post("/consents", h.GrantConsent)
	r.Get("/consents/{consentID}", h.GetConsent)

	r.Post("/payments", h.SubmitPayment)
	r.Get("/payments/{paymentID}", h.GetPayment)

	r.Route("/fx", func(r chi.Router) {
		r.Post("/quotes", h.CreateQuote)
		r.Get("/quotes/{quoteID}", h.GetQuote)
		r.Post("/quotes/{quoteID}/expire", h.ExpireQuote)
		r.Post("/deals", h.ExecuteDeal)
	})

	r.Route("/pay-requests", func(r chi.Router) {
		r.Post("/", h.CreatePayRequest)
		r.Get("/{payRequestID}", h.GetPayRequest)
		r.Post("/{payRequestID}/consume", h.ConsumePayRequest)
		r.Post("/{payRequestID}/reject", h.RejectPayRequest)
	})

	r.Route("/vrp", func(r chi.Router) {
		r.Post("/consents", h.CreateVrpConsent)
		r.Get("/consents/{consentID}", h.GetVrpConsent)
		r.Post("/consents/{consentID}/revoke", h.RevokeVrpConsent)
		r.Post("/payments", h.SubmitCollection)
		r.Get("/payments/{paymentID}", h.GetCollection)
	})

	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", h.CreateAccount)
		r.Get("/{accountID}", h.GetAccount)
		r.Post("/{accountID}/close", h.CloseAccount)
	})

	r.Route("/insurance/quotes", func(r chi.Router) {
		r.Post("/", h.CreateInsuranceQuote)
		r.Get("/{quoteID}", h.GetInsuranceQuote)
		r.Post("/{quoteID}/accept", h.AcceptInsuranceQuote)
	})

	r.Route("/bulk-payments/files", func(r chi.Router) {
		r.Post("/", h.SubmitBulkFile)
		r.Get("/{fileID}", h.GetBulkFileStatus)
		r.Get("/{fileID}/report", h.GetBulkFileReport)
	})

	r.Post("/confirmation-of-payee", h.ConfirmPayee)
}

// Health answers 200 when every backing store responds.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{}
	healthy := true
	for name, check := range h.health {
		if err := check(r.Context()); err != nil {
			h.logger.Error("health check failed", "dependency", name, "error", err)
			status[name] = "unavailable"
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	if !healthy {
		rest.WriteErrorCode(w, http.StatusServiceUnavailable, "UNHEALTHY", "one or more dependencies are unavailable")
		return
	}
	rest.WriteJSON(w, http.StatusOK, status)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("request body is required")
		}
		return domain.NewValidationError("malformed request body: %v", err)
	}
	return nil
}

// idempotencyKey reads the mandatory Idempotency-Key header.
func idempotencyKey(r *http.Request) (string, error) {
	key := strings.TrimSpace(r.Header.Get(middleware.IdempotencyKeyHeader))
	if key == "" {
		return "", domain.NewMissingRequiredFieldError(middleware.IdempotencyKeyHeader + " header")
	}
	return key, nil
}

// mutation decodes the body of an idempotent POST and returns the caller and
// its key. It writes the error response itself and reports false on failure.
func mutation(w http.ResponseWriter, r *http.Request, body any) (principal, key string, ok bool) {
	key, err := idempotencyKey(r)
	if err != nil {
		rest.WriteError(w, err)
		return "", "", false
	}
	if body != nil {
		if err := decodeJSON(r, body); err != nil {
			rest.WriteError(w, err)
			return "", "", false
		}
	}
	return rest.Principal(r.Context()), key, true
}
