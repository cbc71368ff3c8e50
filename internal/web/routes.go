package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/suzWaks/frs-fyp-mobileApp/internal/metrics"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	facesHandler := handlers.NewFacesHandler(s.faces, int64(s.config.Web.MaxImageBytes), s.logger)

	s.router.Get("/", handlers.Home)
	s.router.Get("/api/v1/health", handlers.HealthCheck)
	s.router.Handle("/metrics", metrics.Handler())

	// Paths the mobile app has always called.
	s.router.Post("/recognize", facesHandler.Register)
	s.router.Post("/compare", facesHandler.Recognize)
	s.router.Get("/debug_embeddings", facesHandler.Debug)

	s.router.Route("/api/v1/faces", func(r chi.Router) {
		r.Post("/register", facesHandler.Register)
		r.Post("/recognize", facesHandler.Recognize)
		r.Get("/debug", facesHandler.Debug)
		r.Get("/stats", facesHandler.Stats)
	})
}
