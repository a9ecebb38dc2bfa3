package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/babo/internal/service"
	"github.com/utafrali/babo/pkg/health"
	"github.com/utafrali/babo/pkg/middleware"
)

// RouterConfig collects what the local API router needs.
type RouterConfig struct {
	ServiceName           string
	RatingService         *service.RatingService
	RecommendationService *service.RecommendationService
	Health                *health.Handler
	CORS                  middleware.CORSConfig
	// RateLimit is applied to /api routes when set.
	RateLimit  func(http.Handler) http.Handler
	PprofCIDRs []string
	Logger     *slog.Logger
}

// NewRouter creates a chi router with all agent routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Identity)
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.CORS(cfg.CORS))

	// Health and metrics endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	if len(cfg.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	ratingHandler := NewRatingHandler(cfg.RatingService, logger)
	recommendationHandler := NewRecommendationHandler(cfg.RecommendationService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		if cfg.RateLimit != nil {
			r.Use(cfg.RateLimit)
		}

		// Pure computations and shared book data need no reader.
		r.Post("/ratings/aggregate", ratingHandler.Aggregate)
		r.Get("/books/{isbn}/breakdown", ratingHandler.GetBreakdown)
		r.Post("/books/{isbn}/breakdown/rebuild", ratingHandler.RebuildBreakdown)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUsername)

			r.Post("/ratings/validate", ratingHandler.Validate)
			r.Post("/ratings", ratingHandler.Submit)

			r.Route("/books/{isbn}/recommendations", func(r chi.Router) {
				r.Post("/session", recommendationHandler.OpenSession)
				r.Get("/session", recommendationHandler.GetSession)
				r.Delete("/session", recommendationHandler.CloseSession)
				r.Post("/selection", recommendationHandler.AddCandidate)
				r.Delete("/selection/{candidate}", recommendationHandler.RemoveCandidate)
				r.Post("/submit", recommendationHandler.Submit)
			})
		})
	})

	return r
}
