package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parentnote/backend/app"
	"github.com/parentnote/backend/handlers"
	"github.com/parentnote/backend/middleware"
	"github.com/parentnote/backend/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	if timeout := deps.Config.Server.RequestTimeout; timeout > 0 {
		r.Use(chimiddleware.Timeout(timeout))
	}

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var db handlers.HealthChecker
	if deps.DB != nil {
		db = deps.DB
	}
	health := handlers.NewHealthHandler(db, deps.Orchestrator.Backends, deps.Logger)
	analysisHandler := handlers.NewAnalysisHandler(deps.Orchestrator, deps.Config.Analysis.StatusTimeout, deps.Logger)
	childHandler := handlers.NewChildHandler(deps.RecordService, deps.Logger)
	recordHandler := handlers.NewRecordHandler(deps.RecordService, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	if deps.Config.Observability.MetricsEnabled && deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/analysis/backends", analysisHandler.HandleListBackends)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)

			r.With(deps.RateLimiter.Limit).Post("/analysis", analysisHandler.HandleAnalyze)

			r.Route("/children", func(r chi.Router) {
				r.Get("/", childHandler.HandleListChildren)
				r.Post("/", childHandler.HandleCreateChild)
				r.Get("/{childID}/records", recordHandler.HandleListRecords)
				r.With(deps.RateLimiter.Limit).Post("/{childID}/records", recordHandler.HandleCreateRecord)
			})

			r.Get("/records/{recordID}", recordHandler.HandleGetRecord)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
