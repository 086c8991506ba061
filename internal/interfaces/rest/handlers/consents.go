package handlers

import (
	"net/http"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/application/services"
	"github.com/DanielPopoola/openfinance-gateway/internal/interfaces/rest"
	"github.com/go-chi/chi/v5"
)

type GrantConsentRequest struct {
	Scopes      []string  `json:"scopes"`
	ResourceIDs []string  `json:"resource_ids"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (h *Handlers) GrantConsent(w http.ResponseWriter, r *http.Request) {
	var req GrantConsentRequest
	if err := decodeJSON(r, &req); err != nil {
		rest.WriteError(w, err)
		return
	}

	consent, err := h.svc.Consents.Grant(r.Context(), services.GrantConsentCommand{
		PrincipalID: rest.Principal(r.Context()),
		Scopes:      req.Scopes,
		ResourceIDs: req.ResourceIDs,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, toConsent(consent))
}

func (h *Handlers) GetConsent(w http.ResponseWriter, r *http.Request) {
	consent, err := h.svc.Consents.Get(r.Context(), chi.URLParam(r, "consentID"), rest.Principal(r.Context()))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toConsent(consent))
}
