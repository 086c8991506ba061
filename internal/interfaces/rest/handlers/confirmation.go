package handlers

import (
	"net/http"

	"github.com/DanielPopoola/openfinance-gateway/internal/application/services"
	"github.com/DanielPopoola/openfinance-gateway/internal/interfaces/rest"
)

type ConfirmPayeeRequest struct {
	ConsentID string `json:"consent_id"`
	IBAN      string `json:"iban"`
	Name      string `json:"name"`
}

// ConfirmPayee is a read: it takes no Idempotency-Key and repeated calls are
// served from cache.
func (h *Handlers) ConfirmPayee(w http.ResponseWriter, r *http.Request) {
	var req ConfirmPayeeRequest
	if err := decodeJSON(r, &req); err != nil {
		rest.WriteError(w, err)
		return
	}

	lookup, err := h.svc.Confirmation.Confirm(r.Context(), services.ConfirmPayeeQuery{
		PrincipalID: rest.Principal(r.Context()),
		ConsentID:   req.ConsentID,
		IBAN:        req.IBAN,
		Name:        req.Name,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteLookup(w, lookup.CacheHit, toConfirmation(lookup.Value))
}
