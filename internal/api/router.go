package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vidgrab/vidgrab/internal/api/handler"
	mw "github.com/vidgrab/vidgrab/internal/api/middleware"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	mediaHandler *handler.MediaHandler,
	previewHandler *handler.PreviewHandler,
	healthHandler *handler.HealthHandler,
	apiKey string,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// CORS for browser front-ends
	r.Use(mw.CORS)

	// Health endpoints (no auth)
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)

	r.Group(func(r chi.Router) {
		r.Use(mw.APIKeyAuth(apiKey))

		// Metadata resolution is quick; delivery streams large files and
		// only the write timeout on the server bounds it.
		r.With(middleware.Timeout(time.Minute)).Post("/api/video-info", mediaHandler.Resolve)
		r.Post("/api/download", mediaHandler.Download)
		r.Get("/api/preview", previewHandler.Serve)
	})

	return r
}
