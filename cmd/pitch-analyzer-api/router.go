package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spherical/pitch-analyzer/cmd/pitch-analyzer-api/handlers"
	"github.com/spherical/pitch-analyzer/cmd/pitch-analyzer-api/middleware"
	"github.com/spherical/pitch-analyzer/internal/config"
	"github.com/spherical/pitch-analyzer/internal/observability"
)

// Service is what the router needs from the insight service.
type Service interface {
	handlers.AnalysisService
	handlers.Pinger
}

// NewRouter creates the API router with all routes configured. Paths match
// with and without a trailing slash.
func NewRouter(logger *observability.Logger, cfg *config.Config, svc Service) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(chimiddleware.StripSlashes)
	r.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))

	health := handlers.NewHealthHandler(logger, svc, cfg.Observability.ServiceName)
	analysis := handlers.NewAnalysisHandler(logger, svc, handlers.Options{
		TempDir:        cfg.Media.TempDir,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})

	r.Get("/", health.Root)
	r.Get("/health", health.Health)
	r.Get("/ready", health.Ready)

	// Analysis routes
	r.Post("/analyze-text", analysis.AnalyzeText)
	r.Post("/analyze-file", analysis.AnalyzeFile)
	r.Post("/analyze-audio", analysis.AnalyzeAudio)
	r.Post("/analyze-video", analysis.AnalyzeVideo)
	r.Post("/analyze-video-url", analysis.AnalyzeVideoURL)
	r.Post("/analyze-pitch-deck", analysis.AnalyzePitchDeck)

	// History routes
	r.Route("/analyses", func(r chi.Router) {
		r.Get("/", analysis.ListAnalyses)
		r.Get("/{id}", analysis.GetAnalysis)
		r.Get("/{id}/markdown", analysis.GetMarkdown)
	})

	return r
}
