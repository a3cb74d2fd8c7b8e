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

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Device endpoints
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleCreateDevice)

			r.Route("/{mac}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Put("/", s.handleUpdateDevice)
				r.Delete("/", s.handleDeleteDevice)
				r.Put("/owner", s.handleSetDeviceOwner)
			})
		})

		// Owner endpoints
		r.Route("/owners", func(r chi.Router) {
			r.Get("/", s.handleListOwners)
			r.Post("/", s.handleCreateOwner)

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", s.handleUpdateOwner)
				r.Delete("/", s.handleDeleteOwner)
			})
		})

		// Presence endpoints
		r.Get("/presence", s.handlePresence)
		r.Get("/presence/last", s.handlePresenceLast)
	})

	return r
}
