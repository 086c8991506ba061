package handlers

import (
	"net/http"

	"github.com/DanielPopoola/openfinance-gateway/internal/application/services"
	"github.com/DanielPopoola/openfinance-gateway/internal/interfaces/rest"
	"github.com/go-chi/chi/v5"
)

type CreateAccountRequest struct {
	EncryptedProfile string `json:"encrypted_profile"`
	Currency         string `json:"currency"`
}

func (h *Handlers) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	principal, key, ok := mutation(w, r, &req)
	if !ok {
		return
	}

	result, err := h.svc.Onboarding.CreateAccount(r.Context(), services.CreateAccountCommand{
		PrincipalID:      principal,
		IdempotencyKey:   key,
		EncryptedProfile: req.EncryptedProfile,
		Currency:         req.Currency,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteResult(w, true, result.Replayed, toAccount(result.Value))
}

func (h *Handlers) GetAccount(w http.ResponseWriter, r *http.Request) {
	lookup, err := h.svc.Onboarding.GetAccount(r.Context(), chi.URLParam(r, "accountID"), rest.Principal(r.Context()))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteLookup(w, lookup.CacheHit, toAccount(lookup.Value))
}

func (h *Handlers) CloseAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.svc.Onboarding.CloseAccount(r.Context(), chi.URLParam(r, "accountID"), rest.Principal(r.Context()))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toAccount(account))
}
