package handlers

import (
	"net/http"

	"github.com/DanielPopoola/openfinance-gateway/internal/application/services"
	"github.com/DanielPopoola/openfinance-gateway/internal/interfaces/rest"
	"github.com/go-chi/chi/v5"
)

type CreatePayRequestRequest struct {
	ConsentID string `json:"consent_id"`
	PayerIBAN string `json:"payer_iban"`
	PayeeName string `json:"payee_name"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

type ConsumePayRequestRequest struct {
	PaymentID string `json:"payment_id"`
}

func (h *Handlers) CreatePayRequest(w http.ResponseWriter, r *http.Request) {
	var req CreatePayRequestRequest
	principal, key, ok := mutation(w, r, &req)
	if !ok {
		return
	}

	result, err := h.svc.PayRequests.Create(r.Context(), services.CreatePayRequestCommand{
		PrincipalID:    principal,
		IdempotencyKey: key,
		ConsentID:      req.ConsentID,
		PayerIBAN:      req.PayerIBAN,
		PayeeName:      req.PayeeName,
		Amount:         req.Amount,
		Currency:       req.Currency,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteResult(w, true, result.Replayed, toPayRequest(result.Value))
}

func (h *Handlers) GetPayRequest(w http.ResponseWriter, r *http.Request) {
	request, err := h.svc.PayRequests.Get(r.Context(), chi.URLParam(r, "payRequestID"), rest.Principal(r.Context()))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toPayRequest(request))
}

func (h *Handlers) ConsumePayRequest(w http.ResponseWriter, r *http.Request) {
	var req ConsumePayRequestRequest
	principal, key, ok := mutation(w, r, &req)
	if !ok {
		return
	}

	result, err := h.svc.PayRequests.Consume(r.Context(), services.ConsumePayRequestCommand{
		PrincipalID:    principal,
		IdempotencyKey: key,
		PayRequestID:   chi.URLParam(r, "payRequestID"),
		PaymentID:      req.PaymentID,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteResult(w, false, result.Replayed, toPayRequest(result.Value))
}

func (h *Handlers) RejectPayRequest(w http.ResponseWriter, r *http.Request) {
	principal, key, ok := mutation(w, r, nil)
	if !ok {
		return
	}

	result, err := h.svc.PayRequests.Reject(r.Context(), services.RejectPayRequestCommand{
		PrincipalID:    principal,
		IdempotencyKey: key,
		PayRequestID:   chi.URLParam(r, "payRequestID"),
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteResult(w, false, result.Replayed, toPayRequest(result.Value))
}
