package handlers

import (
	"net/http"

	"github.com/DanielPopoola/openfinance-gateway/internal/application/services"
	"github.com/DanielPopoola/openfinance-gateway/internal/interfaces/rest"
	"github.com/go-chi/chi/v5"
)

type CreateInsuranceQuoteRequest struct {
	ConsentID      string `json:"consent_id"`
	ProductCode    string `json:"product_code"`
	CoverageAmount string `json:"coverage_amount"`
	Currency       string `json:"currency"`
}

func (h *Handlers) CreateInsuranceQuote(w http.ResponseWriter, r *http.Request) {
	var req CreateInsuranceQuoteRequest
	principal, key, ok := mutation(w, r, &req)
	if !ok {
		return
	}

	result, err := h.svc.Insurance.CreateQuote(r.Context(), services.CreateInsuranceQuoteCommand{
		PrincipalID:    principal,
		IdempotencyKey: key,
		ConsentID:      req.ConsentID,
		ProductCode:    req.ProductCode,
		CoverageAmount: req.CoverageAmount,
		Currency:       req.Currency,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteResult(w, true, result.Replayed, toInsuranceQuote(result.Value))
}

func (h *Handlers) GetInsuranceQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.svc.Insurance.GetQuote(r.Context(), chi.URLParam(r, "quoteID"), rest.Principal(r.Context()))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toInsuranceQuote(quote))
}

func (h *Handlers) AcceptInsuranceQuote(w http.ResponseWriter, r *http.Request) {
	principal, key, ok := mutation(w, r, nil)
	if !ok {
		return
	}

	result, err := h.svc.Insurance.AcceptQuote(r.Context(), services.AcceptInsuranceQuoteCommand{
		PrincipalID:    principal,
		IdempotencyKey: key,
		QuoteID:        chi.URLParam(r, "quoteID"),
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteResult(w, false, result.Replayed, toInsuranceQuote(result.Value))
}
