package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/config"
	"github.com/DanielPopoola/openfinance-gateway/internal/interfaces/rest/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const APIPrefix = "/open-finance/v1"

type RouterOptions struct {
	Auth           config.AuthConfig
	RequestTimeout time.Duration
	Gatherer       prometheus.Gatherer
	Logger         *slog.Logger
}

// NewRouter builds the full HTTP surface: health and metrics outside auth,
// the API under APIPrefix behind it.
func NewRouter(h *Handlers, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(middleware.Recovery(opts.Logger))
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.Get("/healthz", h.Health)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route(APIPrefix, func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.Auth, opts.Logger))
		h.Register(r)
	})
	return r
}
