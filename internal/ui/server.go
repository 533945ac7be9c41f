// Package ui provides the web dashboard server for LeapDash.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapdash/internal/dashboard"
	"github.com/leapstack-labs/leapdash/internal/layout"
	"github.com/leapstack-labs/leapdash/internal/metrics"
	"github.com/leapstack-labs/leapdash/internal/session"
	dashboardFeature "github.com/leapstack-labs/leapdash/internal/ui/features/dashboard"
	"github.com/leapstack-labs/leapdash/internal/ui/notifier"
	"github.com/leapstack-labs/leapdash/internal/ui/resources"
	"github.com/leapstack-labs/leapdash/internal/ui/router"
)

// debounce is how long the watcher waits for a burst of writes to settle.
const debounce = 100 * time.Millisecond

// Session housekeeping.
const (
	defaultSessionIdle = 12 * time.Hour
	maxSweepInterval   = 10 * time.Minute
)

// Server is the dashboard server.
type Server struct {
	service      *dashboard.Service
	sessions     *session.Manager
	sessionStore *sessions.CookieStore
	notifier     *notifier.Hub
	defaults     session.Source
	host         string
	port         int
	basePath     string
	watch        bool
	specDir      string
	sessionIdle  time.Duration
	// watchReq carries directories opened sessions read from.
	watchReq chan string
	logger   *slog.Logger
}

// Config holds configuration for the UI server.
type Config struct {
	Service *dashboard.Service
	// Defaults are the inputs a fresh session opens.
	Defaults      session.Source
	Layout        layout.Mode
	Host          string
	Port          int
	BasePath      string
	Watch         bool
	SpecDir       string
	SessionSecret string
	// SessionIdle is how long an unused session is kept. Zero means 12h.
	SessionIdle time.Duration
	Logger      *slog.Logger
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	idle := cfg.SessionIdle
	if idle <= 0 {
		idle = defaultSessionIdle
	}

	return &Server{
		service:      cfg.Service,
		sessions:     session.NewManager(cfg.Layout),
		sessionStore: sessionStore,
		notifier:     notifier.New(),
		defaults:     cfg.Defaults,
		host:         cfg.Host,
		port:         cfg.Port,
		basePath:     NormalizeBasePath(cfg.BasePath),
		watch:        cfg.Watch,
		specDir:      cfg.SpecDir,
		sessionIdle:  idle,
		watchReq:     make(chan string, 16),
		logger:       logger,
	}
}

// NormalizeBasePath returns p with a leading slash and no trailing slash.
// The root path normalizes to "".
func NormalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

// URL returns the address of the dashboard.
func (s *Server) URL() string {
	host := s.host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s%s/", net.JoinHostPort(host, strconv.Itoa(s.port)), s.basePath)
}

// Handler builds the HTTP handler of the server.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	err := router.SetupRoutes(r, router.Config{
		Dashboard: dashboardFeature.Config{
			Service:      s.service,
			Sessions:     s.sessions,
			SessionStore: s.sessionStore,
			Notifier:     s.notifier,
			Watcher:      s,
			Defaults:     s.defaults,
			BasePath:     s.basePath,
			Logger:       s.logger,
		},
		SpecDir: s.specDir,
		IsDev:   resources.Dev,
		Logger:  s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve starts the UI server and blocks until the context is cancelled.
// ready, when non-nil, is closed once the listener is bound.
func (s *Server) Serve(ctx context.Context, ready chan<- struct{}) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.logger.Info("starting dashboard server", "addr", s.URL())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		eg.Go(func() error {
			return s.watchFiles(egctx)
		})
	}
	eg.Go(func() error {
		s.sweepSessions(egctx)
		return nil
	})

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	if ready != nil {
		close(ready)
	}

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down dashboard server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Notifier returns the hub that feeds the dashboard's SSE streams.
func (s *Server) Notifier() *notifier.Hub {
	return s.notifier
}

// Watch asks the file watcher to also cover the directories of paths. It
// does nothing when watching is off.
func (s *Server) Watch(paths ...string) {
	if !s.watch {
		return
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		select {
		case s.watchReq <- filepath.Dir(p):
		default:
			s.logger.Warn("file watcher is busy, not watching", "path", p)
		}
	}
}

// sweepSessions forgets idle sessions until ctx is done.
func (s *Server) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(min(s.sessionIdle/2, maxSweepInterval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Sweep(s.sessionIdle); n > 0 {
				s.logger.Debug("idle sessions removed", "count", n)
			}
			metrics.Sessions(s.sessions.Len())
		}
	}
}

// watchDirs returns the directories holding the default inputs and the
// spec directory, without duplicates.
func (s *Server) watchDirs() []string {
	seen := map[string]bool{}
	var dirs []string
	for _, p := range []string{s.defaults.DataPath, s.defaults.SpecPath} {
		if p == "" {
			continue
		}
		if d := filepath.Dir(p); !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	if s.specDir != "" && !seen[s.specDir] {
		dirs = append(dirs, s.specDir)
	}
	return dirs
}

// watchFiles publishes every written dataset or spec file to the SSE
// streams. Sessions decide for themselves whether the file is theirs.
func (s *Server) watchFiles(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	covered := map[string]bool{}
	add := func(dir string) {
		key := dir
		if abs, err := filepath.Abs(dir); err == nil {
			key = abs
		}
		if covered[key] {
			return
		}
		if err := watcher.Add(dir); err != nil {
			s.logger.Error("failed to watch directory", "dir", dir, "error", err)
			// Don't fail - continue without watching
			return
		}
		covered[key] = true
		s.logger.Debug("watching directory", "dir", dir)
	}
	for _, dir := range s.watchDirs() {
		add(dir)
	}

	// Writes settle for debounce before their files are published.
	pending := map[string]bool{}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 || !watched(event.Name) {
				continue
			}
			if len(pending) == 0 {
				timer.Reset(debounce)
			}
			pending[event.Name] = true

		case <-timer.C:
			for name := range pending {
				s.logger.Debug("input changed", "file", name)
				s.notifier.Publish(notifier.Change{Path: name})
			}
			clear(pending)

		case dir := <-s.watchReq:
			add(dir)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// watched reports whether a file name looks like a dataset or a spec.
func watched(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv", ".txt", ".json":
		return true
	}
	return false
}
