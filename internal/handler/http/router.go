package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Flare200/natours/pkg/health"
	"github.com/Flare200/natours/pkg/middleware"

	"github.com/Flare200/natours/internal/booking"
	"github.com/Flare200/natours/internal/domain"
	"github.com/Flare200/natours/internal/review"
	"github.com/Flare200/natours/internal/tour"
)

// RouterConfig carries the cross-cutting dependencies the router wires in.
type RouterConfig struct {
	HealthHandler *health.Handler
	TokenAuth     middleware.TokenValidator

	// RedisClient backs the geo query response cache. Nil disables caching.
	RedisClient *redis.Client
	GeoCacheTTL time.Duration
}

// NewRouter creates a chi router with all natours API routes registered.
func NewRouter(
	tourService *tour.Service,
	reviewService *review.Service,
	bookingService *booking.Service,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("natours"))

	// Health check endpoints
	r.Get("/health/live", cfg.HealthHandler.LivenessHandler())
	r.Get("/health/ready", cfg.HealthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	tourHandler := NewTourHandler(tourService, logger)
	reviewHandler := NewReviewHandler(reviewService, logger)
	bookingHandler := NewBookingHandler(bookingService, logger)

	// The gateway posts the raw signed payload here; no auth, no JSON
	// content-type enforcement, signature verification is the gate.
	r.Post("/webhook/checkout", bookingHandler.Webhook)

	r.Route("/api/v1/tours", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		r.With(
			middleware.Auth(cfg.TokenAuth),
			middleware.RequireRole(domain.RoleAdmin, domain.RoleLeadGuide),
		).Post("/", tourHandler.CreateTour)

		r.Get("/top-5-cheap", tourHandler.TopTours)
		r.Get("/stats", tourHandler.Stats)

		// Planning data is for staff only.
		r.With(
			middleware.Auth(cfg.TokenAuth),
			middleware.RequireRole(domain.RoleAdmin, domain.RoleLeadGuide, domain.RoleGuide),
		).Get("/monthly-plan/{year}", tourHandler.MonthlyPlan)

		// Geo reads are pure functions of the URL, so they sit behind the
		// shared response cache when Redis is configured.
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(int(cfg.GeoCacheTTL.Seconds())))
			r.Use(middleware.ResponseCache(cfg.RedisClient, "natours:geo", cfg.GeoCacheTTL))

			r.Get("/tours-within/{distance}/center/{latlng}/unit/{unit}", tourHandler.ToursWithin)
			r.Get("/distances/{latlng}/unit/{unit}", tourHandler.Distances)
		})

		r.Get("/{tourId}/reviews", reviewHandler.ListByTour)
		r.Get("/{tourId}", tourHandler.GetTour)
	})

	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.Auth(cfg.TokenAuth))

		r.Post("/", reviewHandler.Create)
		r.Patch("/{id}", reviewHandler.Update)
		r.Delete("/{id}", reviewHandler.Delete)
	})

	r.Route("/api/v1/bookings", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.Auth(cfg.TokenAuth))

		r.Get("/checkout-session/{tourId}", bookingHandler.GetCheckoutSession)
		r.Get("/my-bookings", bookingHandler.MyBookings)
	})

	return r
}
