package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/mirageholidays/trip-planner-api/pkg/middleware"
	"github.com/mirageholidays/trip-planner-api/pkg/observability"
)

// SetupRouter configures all routes and returns the HTTP handler
func SetupRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	registerAPIRoutes(mux, deps)
	registerUtilityRoutes(mux, deps)

	var limiter *rate.Limiter
	if deps.Config.Server.RateLimitPerSecond > 0 && deps.Config.Server.RateLimitBurst > 0 {
		limiter = rate.NewLimiter(
			rate.Limit(float64(deps.Config.Server.RateLimitPerSecond)),
			deps.Config.Server.RateLimitBurst,
		)
	}

	handler := middleware.Chain(mux,
		middleware.RequestID("X-Request-ID"),
		middleware.Recovery(deps.Logger),
		middleware.Logging(deps.Logger),
		middleware.RateLimit(limiter),
		observability.MetricsMiddleware,
	)

	// Enable CORS for the marketing SPA
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: deps.Config.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept-Encoding",
			"Content-Type",
			"X-Request-ID",
		},
		AllowCredentials: true,
	})

	return corsHandler.Handler(handler)
}

// registerAPIRoutes registers the lead, planner and trip endpoints
func registerAPIRoutes(mux *http.ServeMux, deps *Dependencies) {
	// Lead capture gate
	mux.HandleFunc("POST /v1/leads", deps.LeadHandler.Create)
	mux.HandleFunc("GET /v1/leads/{id}", deps.LeadHandler.Get)

	// Planner wizard sessions
	mux.HandleFunc("POST /v1/planner/sessions", deps.PlannerHandler.CreateSession)
	mux.HandleFunc("GET /v1/planner/sessions/{id}", deps.PlannerHandler.GetSession)
	mux.HandleFunc("GET /v1/planner/sessions/{id}/status", deps.PlannerHandler.GetSession)
	mux.HandleFunc("PATCH /v1/planner/sessions/{id}/input", deps.PlannerHandler.UpdateInput)
	mux.HandleFunc("POST /v1/planner/sessions/{id}/continue", deps.PlannerHandler.Continue)
	mux.HandleFunc("POST /v1/planner/sessions/{id}/back", deps.PlannerHandler.Back)
	mux.HandleFunc("POST /v1/planner/sessions/{id}/jump", deps.PlannerHandler.Jump)
	mux.HandleFunc("POST /v1/planner/sessions/{id}/generate", deps.PlannerHandler.Generate)
	mux.HandleFunc("POST /v1/planner/sessions/{id}/retry", deps.PlannerHandler.Retry)
	mux.HandleFunc("POST /v1/planner/sessions/{id}/dismiss-combo", deps.PlannerHandler.DismissCombo)

	// Itinerary view
	mux.HandleFunc("GET /v1/trips/{id}/itinerary", deps.TripHandler.Itinerary)
	mux.HandleFunc("GET /v1/trips/{id}/export", deps.TripHandler.Export)

	deps.Logger.Info("API routes configured")
}

// registerUtilityRoutes registers health check, metrics, and other utility routes
func registerUtilityRoutes(mux *http.ServeMux, deps *Dependencies) {
	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.DB.Health(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("database unhealthy"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	deps.Logger.Info("registered health check", "path", "/health")

	// Readiness check endpoint
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})
	deps.Logger.Info("registered readiness check", "path", "/ready")

	// Metrics endpoint (Prometheus)
	if deps.Config.Observability.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.Handler())
		deps.Logger.Info("registered metrics endpoint", "path", "/metrics")
	}
}
