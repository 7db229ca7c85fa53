package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rocketharbor/wdpay/internal/adapter/http/handler"
	"github.com/rocketharbor/wdpay/internal/adapter/http/middleware"
	"github.com/rocketharbor/wdpay/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	PaymentHandler   *handler.PaymentHandler
	HealthHandler    *handler.HealthHandler
	IdempotencyStore usecase.IdempotencyStore
	// RateLimiter throttles the anonymous payment API when non-nil.
	RateLimiter *middleware.RateLimiter
	Logger      zerolog.Logger
	// PublicDir serves the embeddable widget assets when non-empty.
	PublicDir string
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics)
	r.Use(middleware.NewRecoveryMiddleware(cfg.Logger).Wrap)

	// Health and metrics endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Payment API (paths match what the widget and the node call)
	r.Route("/api/payments", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Wrap)
		}

		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore)
			r.Use(idempotencyMiddleware.Wrap)
		}

		r.Post("/create", cfg.PaymentHandler.Create)
		r.Get("/status/{id}", cfg.PaymentHandler.Status)
		r.Post("/webhook", cfg.PaymentHandler.Webhook)
	})

	// Embeddable widget assets
	if cfg.PublicDir != "" {
		fs := http.FileServer(http.Dir(cfg.PublicDir))
		r.Handle("/*", fs)
	}

	return r
}
