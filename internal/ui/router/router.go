// Package router sets up HTTP routes for the UI server.
package router

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/leapdash/internal/metrics"
	"github.com/leapstack-labs/leapdash/internal/specapi"
	dashboardFeature "github.com/leapstack-labs/leapdash/internal/ui/features/dashboard"
	"github.com/leapstack-labs/leapdash/internal/ui/resources"
)

// Config holds what the routes need.
type Config struct {
	Dashboard dashboardFeature.Config
	// SpecDir is served under /json/{name}. Empty disables the spec API.
	SpecDir string
	IsDev   bool
	Logger  *slog.Logger
}

// SetupRoutes configures all routes for the UI server. Routes hang off
// cfg.Dashboard.BasePath when it is set.
func SetupRoutes(router chi.Router, cfg Config) error {
	basePath := cfg.Dashboard.BasePath
	if basePath == "" || basePath == "/" {
		cfg.Dashboard.BasePath = ""
		return mount(router, cfg)
	}

	var err error
	router.Route(basePath, func(r chi.Router) {
		err = mount(r, cfg)
	})
	return err
}

func mount(router chi.Router, cfg Config) error {
	// Hot reload endpoint for dev mode
	if cfg.IsDev {
		setupReload(router)
	}

	router.Handle("/static/*", resources.Handler(cfg.Dashboard.BasePath))
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", metrics.Handler())

	if cfg.SpecDir != "" {
		specapi.SetupRoutes(router, cfg.SpecDir, cfg.Logger)
	}

	return dashboardFeature.SetupRoutes(router, cfg.Dashboard)
}

func setupReload(router chi.Router) {
	reloadChan := make(chan struct{}, 1)
	var hotReloadOnce sync.Once

	router.Get("/reload", func(w http.ResponseWriter, r *http.Request) {
		sse := datastar.NewSSE(w, r)
		reload := func() { _ = sse.ExecuteScript("window.location.reload()") }
		hotReloadOnce.Do(reload)
		select {
		case <-reloadChan:
			reload()
		case <-r.Context().Done():
		}
	})

	router.Get("/hotreload", func(w http.ResponseWriter, _ *http.Request) {
		select {
		case reloadChan <- struct{}{}:
		default:
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
