package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facerec/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	facesHandler := handlers.NewFacesHandler(s.config, s.svc, s.labels)
	samplesHandler := handlers.NewSamplesHandler(s.svc, s.repo, s.labels)
	modelsHandler := handlers.NewModelsHandler(s.svc, s.config.Runtime.ModelDir)
	configHandler := handlers.NewConfigHandler(s.config, s.repo != nil)
	statsHandler := handlers.NewStatsHandler(s.svc, s.repo, s.trackers)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)

		// Config & stats
		r.Get("/config", configHandler.Get)
		r.Get("/stats", statsHandler.Get)

		// Faces
		r.Post("/detect", facesHandler.Detect)
		r.Post("/recognize", facesHandler.Recognize)
		r.Post("/gender", facesHandler.Gender)
		r.Post("/age", facesHandler.Age)

		// Samples & classification
		r.Get("/samples", samplesHandler.Get)
		r.Put("/samples", samplesHandler.Put)
		r.Post("/samples/reload", samplesHandler.Reload)
		r.Post("/samples/search", samplesHandler.Search)
		r.Post("/classify", samplesHandler.Classify)

		// Models
		r.Get("/models", modelsHandler.List)
		r.Put("/models/{kind}", modelsHandler.Reload)

		// Trackers
		r.Post("/trackers", s.trackers.Create)
		r.Put("/trackers/{id}", s.trackers.Update)
		r.Delete("/trackers/{id}", s.trackers.Delete)
	})
}
