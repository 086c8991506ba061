package handlers

import (
	"net/http"

	"github.com/DanielPopoola/openfinance-gateway/internal/application/services"
	"github.com/DanielPopoola/openfinance-gateway/internal/interfaces/rest"
	"github.com/go-chi/chi/v5"
)

// SubmitBulkFileRequest carries the CSV payload base64 encoded in content.
// file_hash is the unpadded base64url SHA-256 of the decoded bytes.
type SubmitBulkFileRequest struct {
	ConsentID     string `json:"consent_id"`
	FileName      string `json:"file_name"`
	Content       []byte `json:"content"`
	FileHash      string `json:"file_hash"`
	IntegrityMode string `json:"integrity_mode"`
}

func (h *Handlers) SubmitBulkFile(w http.ResponseWriter, r *http.Request) {
	var req SubmitBulkFileRequest
	principal, key, ok := mutation(w, r, &req)
	if !ok {
		return
	}

	result, err := h.svc.Bulk.SubmitFile(r.Context(), services.SubmitBulkFileCommand{
		PrincipalID:    principal,
		IdempotencyKey: key,
		ConsentID:      req.ConsentID,
		FileName:       req.FileName,
		Content:        req.Content,
		FileHash:       req.FileHash,
		IntegrityMode:  req.IntegrityMode,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	w.Header().Set("Location", r.URL.Path+"/"+result.Value.ID)
	rest.WriteResult(w, true, result.Replayed, toBulkFile(result.Value))
}

func (h *Handlers) GetBulkFileStatus(w http.ResponseWriter, r *http.Request) {
	file, err := h.svc.Bulk.GetFileStatus(r.Context(), chi.URLParam(r, "fileID"), rest.Principal(r.Context()))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toBulkFile(file))
}

func (h *Handlers) GetBulkFileReport(w http.ResponseWriter, r *http.Request) {
	lookup, err := h.svc.Bulk.GetFileReport(r.Context(), chi.URLParam(r, "fileID"), rest.Principal(r.Context()))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteLookup(w, lookup.CacheHit, toBulkReport(lookup.Value))
}
