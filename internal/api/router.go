// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tagora/engine/internal/config"
	"github.com/tagora/engine/internal/middleware"
)

// chiAdapt adapts an http.HandlerFunc-style middleware (this repo's
// own internal/middleware package) to chi's func(http.Handler)
// http.Handler, the same bridge the teacher's chi_router.go uses.
func chiAdapt(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Router builds the chi mux for §6's three endpoints plus health and
// observability.
type Router struct {
	handler *Handler
	perfMon *middleware.PerformanceMonitor
	cfg     *config.ServerConfig
}

// NewRouter constructs a Router over handler, using cfg for CORS
// origins and the per-IP ingest rate limit.
func NewRouter(handler *Handler, cfg *config.ServerConfig) *Router {
	return &Router{
		handler: handler,
		perfMon: middleware.NewPerformanceMonitor(1000),
		cfg:     cfg,
	}
}

// Setup builds the full chi handler: global middleware stack, then
// §6's routes, then observability endpoints.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))
	r.Use(chiAdapt(middleware.RequestID))
	r.Use(chiAdapt(middleware.Compression))
	r.Use(chiAdapt(middleware.PrometheusMetrics))
	r.Use(router.perfMon.Middleware)

	r.Get("/healthz", router.handler.Healthz)
	r.Get("/readyz", router.handler.Readyz)

	if router.cfg.IngestRateLimitPerSec > 0 {
		r.With(httprate.LimitByIP(router.cfg.IngestRateLimitPerSec, time.Second)).Post("/user_tags", router.handler.IngestTags)
	} else {
		r.Post("/user_tags", router.handler.IngestTags)
	}
	r.Post("/user_profiles/{cookie}", router.handler.UserProfiles)
	r.Post("/aggregates", router.handler.Aggregates)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	return r
}
