package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Liveness probe (no auth required)
	r.Get("/healthz", s.handleHealthz)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Auth endpoint (no auth required)
		r.Post("/auth/token", s.handleToken)

		// WebSocket event stream. Browsers can't set an Authorization
		// header on the upgrade request, so the handler validates a JWT
		// passed as a token query parameter instead.
		r.Get("/stream", s.handleStream)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// Console connection lifecycle
			r.Route("/console", func(r chi.Router) {
				r.Get("/", s.handleGetConsole)
				r.Post("/connect", s.handleConnect)
				r.Post("/disconnect", s.handleDisconnect)
			})

			// Channel parameters
			r.Route("/channels/{channel}", func(r chi.Router) {
				r.Get("/fader", s.handleGetChannelFader)
				r.Put("/fader", s.handleSetChannelFader)
				r.Put("/mute", s.handleSetChannelMute)
				r.Put("/pan", s.handleSetChannelPan)
				r.Put("/config", s.handleSetChannelConfig)
				r.Get("/name", s.handleGetChannelName)
			})

			// Bus and main parameters
			r.Route("/buses/{bus}", func(r chi.Router) {
				r.Get("/fader", s.handleGetBusFader)
				r.Put("/fader", s.handleSetBusFader)
			})
			r.Route("/main", func(r chi.Router) {
				r.Get("/fader", s.handleGetMainFader)
				r.Put("/fader", s.handleSetMainFader)
			})

			// Parameter-change history
			r.Get("/journal", s.handleJournal)
		})
	})

	return r
}

// handleHealthz returns the server health status.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
