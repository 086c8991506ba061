package handlers

import (
	"net/http"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/application/services"
	"github.com/DanielPopoola/openfinance-gateway/internal/interfaces/rest"
	"github.com/go-chi/chi/v5"
)

type CreateVrpConsentRequest struct {
	PsuID              string    `json:"psu_id"`
	MaxAmountPerPeriod string    `json:"max_amount_per_period"`
	Currency           string    `json:"currency"`
	ExpiresAt          time.Time `json:"expires_at"`
}

type RevokeVrpConsentRequest struct {
	Reason string `json:"reason"`
}

type SubmitCollectionRequest struct {
	ConsentID string `json:"consent_id"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

func (h *Handlers) CreateVrpConsent(w http.ResponseWriter, r *http.Request) {
	var req CreateVrpConsentRequest
	principal, key, ok := mutation(w, r, &req)
	if !ok {
		return
	}

	result, err := h.svc.VRP.CreateConsent(r.Context(), services.CreateVrpConsentCommand{
		PrincipalID:        principal,
		IdempotencyKey:     key,
		PsuID:              req.PsuID,
		MaxAmountPerPeriod: req.MaxAmountPerPeriod,
		Currency:           req.Currency,
		ExpiresAt:          req.ExpiresAt,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteResult(w, true, result.Replayed, toVrpConsent(result.Value))
}

func (h *Handlers) GetVrpConsent(w http.ResponseWriter, r *http.Request) {
	lookup, err := h.svc.VRP.GetConsent(r.Context(), chi.URLParam(r, "consentID"), rest.Principal(r.Context()))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteLookup(w, lookup.CacheHit, toVrpConsent(lookup.Value))
}

// RevokeVrpConsent needs no Idempotency-Key: revoking a revoked consent
// returns it unchanged. The body is optional.
func (h *Handlers) RevokeVrpConsent(w http.ResponseWriter, r *http.Request) {
	var req RevokeVrpConsentRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			rest.WriteError(w, err)
			return
		}
	}

	consent, err := h.svc.VRP.RevokeConsent(r.Context(), services.RevokeVrpConsentCommand{
		PrincipalID: rest.Principal(r.Context()),
		ConsentID:   chi.URLParam(r, "consentID"),
		Reason:      req.Reason,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toVrpConsent(consent))
}

func (h *Handlers) SubmitCollection(w http.ResponseWriter, r *http.Request) {
	var req SubmitCollectionRequest
	principal, key, ok := mutation(w, r, &req)
	if !ok {
		return
	}

	result, err := h.svc.VRP.SubmitCollection(r.Context(), services.SubmitCollectionCommand{
		PrincipalID:    principal,
		IdempotencyKey: key,
		ConsentID:      req.ConsentID,
		Amount:         req.Amount,
		Currency:       req.Currency,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteResult(w, true, result.Replayed, toVrpPayment(result.Value))
}

func (h *Handlers) GetCollection(w http.ResponseWriter, r *http.Request) {
	payment, err := h.svc.VRP.GetCollection(r.Context(), chi.URLParam(r, "paymentID"), rest.Principal(r.Context()))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toVrpPayment(payment))
}
