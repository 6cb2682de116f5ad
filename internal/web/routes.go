package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NomadBuilder/facetrace/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	submitHandler := handlers.NewSubmitHandler(s.runner, s.logger)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/submit", submitHandler.Submit)
	})

	// Ephemeral publications, fetched by search engine crawlers.
	if s.store != nil {
		ephemeralHandler := handlers.NewEphemeralHandler(s.store, s.logger)
		s.router.Get("/ephemeral/{id}", ephemeralHandler.Get)
	} else {
		s.router.Get("/ephemeral/{id}", func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})
	}
}
