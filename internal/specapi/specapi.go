// Package specapi serves chart spec files from a directory as JSON.
//
// GET /json/{name} returns <dir>/<name>.json. The file must decode as JSON
// but is not normalized; clients receive what is on disk.
package specapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
)

// DefaultPort is the port of the standalone spec server.
const DefaultPort = 5000

// Handlers serves spec files from one directory.
type Handlers struct {
	dir    string
	logger *slog.Logger
}

// NewHandlers creates Handlers for dir. A nil logger discards output.
func NewHandlers(dir string, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{dir: dir, logger: logger}
}

// SetupRoutes registers the spec routes on router.
func SetupRoutes(router chi.Router, dir string, logger *slog.Logger) {
	h := NewHandlers(dir, logger)
	router.Get("/json/{name}", h.GetSpec)
}

// NewRouter returns a standalone router serving dir.
func NewRouter(dir string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	SetupRoutes(r, dir, logger)
	return r
}

// Serve serves dir on addr until ctx is cancelled. ready, when non-nil,
// receives the bound address once the listener is up.
func Serve(ctx context.Context, addr, dir string, logger *slog.Logger, ready chan<- string) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	logger.Info("serving specs", "dir", dir, "addr", ln.Addr().String())

	srv := &http.Server{
		Handler:           NewRouter(dir, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	if ready != nil {
		ready <- ln.Addr().String()
	}
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

// GetSpec returns the named spec file.
func (h *Handlers) GetSpec(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	file := name + ".json"

	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		writeError(w, http.StatusNotFound, file+" not found")
		return
	}

	data, err := os.ReadFile(filepath.Join(h.dir, file))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.logger.Warn("failed to read spec file", "file", file, "error", err)
		}
		writeError(w, http.StatusNotFound, file+" not found")
		return
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		h.logger.Debug("spec file is not valid JSON", "file", file, "error", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
