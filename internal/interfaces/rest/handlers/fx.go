package handlers

import (
	"net/http"

	"github.com/DanielPopoola/openfinance-gateway/internal/application/services"
	"github.com/DanielPopoola/openfinance-gateway/internal/interfaces/rest"
	"github.com/go-chi/chi/v5"
)

type CreateQuoteRequest struct {
	ConsentID      string `json:"consent_id"`
	SourceCurrency string `json:"source_currency"`
	TargetCurrency string `json:"target_currency"`
	Amount         string `json:"amount"`
}

type ExecuteDealRequest struct {
	QuoteID string `json:"quote_id"`
}

func (h *Handlers) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var req CreateQuoteRequest
	principal, key, ok := mutation(w, r, &req)
	if !ok {
		return
	}

	result, err := h.svc.FX.CreateQuote(r.Context(), services.CreateQuoteCommand{
		PrincipalID:    principal,
		IdempotencyKey: key,
		ConsentID:      req.ConsentID,
		SourceCurrency: req.SourceCurrency,
		TargetCurrency: req.TargetCurrency,
		Amount:         req.Amount,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteResult(w, true, result.Replayed, toQuote(result.Value))
}

func (h *Handlers) GetQuote(w http.ResponseWriter, r *http.Request) {
	lookup, err := h.svc.FX.GetQuote(r.Context(), chi.URLParam(r, "quoteID"), rest.Principal(r.Context()))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteLookup(w, lookup.CacheHit, toQuote(lookup.Value))
}

func (h *Handlers) ExpireQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.svc.FX.ExpireQuote(r.Context(), chi.URLParam(r, "quoteID"), rest.Principal(r.Context()))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toQuote(quote))
}

func (h *Handlers) ExecuteDeal(w http.ResponseWriter, r *http.Request) {
	var req ExecuteDealRequest
	principal, key, ok := mutation(w, r, &req)
	if !ok {
		return
	}

	result, err := h.svc.FX.ExecuteDeal(r.Context(), services.ExecuteDealCommand{
		PrincipalID:    principal,
		IdempotencyKey: key,
		QuoteID:        req.QuoteID,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteResult(w, true, result.Replayed, toDeal(result.Value))
}
