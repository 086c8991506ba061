package rest

import (
	"encoding/json"
	"net/http"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
)

type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Success  bool `json:"success"`
	Data     any  `json:"data"`
	Replayed bool `json:"replayed,omitempty"`
	CacheHit bool `json:"cache_hit,omitempty"`
}

// WriteError maps application errors to HTTP responses
func WriteError(w http.ResponseWriter, err error) {
	statusCode := application.ToHTTPStatus(err)
	errorCode := application.ToErrorCode(err)

	message := err.Error()
	if svcErr, ok := application.IsServiceError(err); ok {
		message = svcErr.Message
	}

	writeBody(w, statusCode, ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    errorCode,
			Message: message,
		},
	})
}

// WriteErrorCode writes an error that has no domain counterpart, such as a
// missing credential.
func WriteErrorCode(w http.ResponseWriter, statusCode int, code, message string) {
	writeBody(w, statusCode, ErrorResponse{
		Success: false,
		Error:   ErrorDetail{Code: code, Message: message},
	})
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	writeBody(w, statusCode, SuccessResponse{Success: true, Data: data})
}

// WriteResult is WriteJSON for idempotent mutations. Replays answer 200 and
// say so in the body and the Idempotent-Replayed header.
func WriteResult(w http.ResponseWriter, created bool, replayed bool, data any) {
	statusCode := http.StatusOK
	if created && !replayed {
		statusCode = http.StatusCreated
	}
	if replayed {
		w.Header().Set("Idempotent-Replayed", "true")
	}
	writeBody(w, statusCode, SuccessResponse{Success: true, Data: data, Replayed: replayed})
}

// WriteLookup is WriteJSON for cached reads.
func WriteLookup(w http.ResponseWriter, cacheHit bool, data any) {
	writeBody(w, http.StatusOK, SuccessResponse{Success: true, Data: data, CacheHit: cacheHit})
}

func writeBody(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
