package handlers

import (
	"net/http"

	"github.com/DanielPopoola/openfinance-gateway/internal/application/services"
	"github.com/DanielPopoola/openfinance-gateway/internal/interfaces/rest"
	"github.com/go-chi/chi/v5"
)

type SubmitPaymentRequest struct {
	ConsentID              string `json:"consent_id"`
	InstructionID          string `json:"instruction_id"`
	EndToEndID             string `json:"end_to_end_id"`
	DebtorAccountID        string `json:"debtor_account_id"`
	Amount                 string `json:"amount"`
	Currency               string `json:"currency"`
	CreditorIBAN           string `json:"creditor_iban"`
	CreditorName           string `json:"creditor_name"`
	RequestedExecutionDate string `json:"requested_execution_date"`
}

func (h *Handlers) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req SubmitPaymentRequest
	principal, key, ok := mutation(w, r, &req)
	if !ok {
		return
	}

	result, err := h.svc.Payments.Submit(r.Context(), services.SubmitPaymentCommand{
		PrincipalID:            principal,
		IdempotencyKey:         key,
		ConsentID:              req.ConsentID,
		InstructionID:          req.InstructionID,
		EndToEndID:             req.EndToEndID,
		DebtorAccountID:        req.DebtorAccountID,
		Amount:                 req.Amount,
		Currency:               req.Currency,
		CreditorIBAN:           req.CreditorIBAN,
		CreditorName:           req.CreditorName,
		RequestedExecutionDate: req.RequestedExecutionDate,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteResult(w, true, result.Replayed, toPayment(result.Value))
}

func (h *Handlers) GetPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := h.svc.Payments.Get(r.Context(), chi.URLParam(r, "paymentID"), rest.Principal(r.Context()))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toPayment(payment))
}
