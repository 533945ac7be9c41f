package dashboard

import "github.com/go-chi/chi/v5"

// SetupRoutes configures routes for the dashboard feature.
func SetupRoutes(router chi.Router, cfg Config) error {
	handlers := NewHandlers(cfg)

	router.Get("/", handlers.DashboardPage)
	router.Get("/updates", handlers.Updates)

	router.Route("/api", func(r chi.Router) {
		r.Post("/filter", handlers.Filter)
		r.Post("/layout", handlers.Layout)
		r.Post("/regenerate", handlers.Regenerate)
	})

	router.Route("/upload", func(r chi.Router) {
		r.Post("/dataset", handlers.UploadDataset)
		r.Post("/spec", handlers.UploadSpec)
	})

	return nil
}
