package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/interfaces/rest"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// IdempotencyKeyHeader carries the client's retry key on mutating routes.
const IdempotencyKeyHeader = "Idempotency-Key"

// RequestLogger logs one line per request once the response is written.
// Server errors log at Error, client errors at Warn.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ctx, principal := rest.TrackPrincipal(r.Context())

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if id := chimw.GetReqID(r.Context()); id != "" {
				attrs = append(attrs, "request_id", id)
			}
			if id := principal(); id != "" {
				attrs = append(attrs, "principal_id", id)
			}
			if key := r.Header.Get(IdempotencyKeyHeader); key != "" {
				attrs = append(attrs, "idempotency_key", key)
			}

			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("request completed", attrs...)
			case status >= http.StatusBadRequest:
				logger.Warn("request completed", attrs...)
			default:
				logger.Info("request completed", attrs...)
			}
		})
	}
}
