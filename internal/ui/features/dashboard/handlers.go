// Package dashboard provides the dashboard page and its live actions.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	dash "github.com/leapstack-labs/leapdash/internal/dashboard"
	"github.com/leapstack-labs/leapdash/internal/layout"
	"github.com/leapstack-labs/leapdash/internal/session"
	"github.com/leapstack-labs/leapdash/internal/ui/features/dashboard/pages"
	"github.com/leapstack-labs/leapdash/internal/ui/notifier"
)

const (
	cookieName = "leapdash"
	sessionKey = "id"

	maxUploadBytes = 64 << 20
)

// Watcher follows the files a session reads.
type Watcher interface {
	Watch(paths ...string)
}

// Config holds the dependencies of the dashboard feature.
type Config struct {
	Service      *dash.Service
	Sessions     *session.Manager
	SessionStore sessions.Store
	Notifier     *notifier.Hub
	// Watcher, when set, is told about the inputs of every opened session.
	Watcher Watcher
	// Defaults open a fresh session when the page has no csv/json query.
	Defaults session.Source
	BasePath string
	Logger   *slog.Logger
}

// Handlers provides HTTP handlers for the dashboard feature.
type Handlers struct {
	service      *dash.Service
	sessions     *session.Manager
	sessionStore sessions.Store
	notifier     *notifier.Hub
	watcher      Watcher
	defaults     session.Source
	basePath     string
	logger       *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg Config) *Handlers {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		service:      cfg.Service,
		sessions:     cfg.Sessions,
		sessionStore: cfg.SessionStore,
		notifier:     cfg.Notifier,
		watcher:      cfg.Watcher,
		defaults:     cfg.Defaults,
		basePath:     cfg.BasePath,
		logger:       logger,
	}
}

// DashboardPage renders the full dashboard. The csv, json and delim query
// parameters select the inputs; changing them resets the session, while
// repeating them reloads whatever changed on disk.
func (h *Handlers) DashboardPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := h.session(w, r)
	snap := s.Snapshot()

	q := r.URL.Query()
	switch {
	case q.Has("csv") || q.Has("json"):
		src := session.Source{DataPath: q.Get("csv"), SpecPath: q.Get("json"), Delimiter: q.Get("delim")}
		if src != s.Source() || snap.Table == nil {
			h.open(ctx, s, src)
		} else if _, err := h.service.Refresh(ctx, s); err != nil {
			h.logger.Warn("failed to reload dashboard", "session", s.ID(), "error", err)
		}
	case snap.Table == nil && snap.Err == nil && h.defaults.DataPath != "":
		h.open(ctx, s, h.defaults)
	default:
		if _, err := h.service.Refresh(ctx, s); err != nil {
			h.logger.Warn("failed to reload dashboard", "session", s.ID(), "error", err)
		}
	}

	h.renderPage(w, r, s, http.StatusOK, "")
}

func (h *Handlers) open(ctx context.Context, s *session.Session, src session.Source) {
	if h.watcher != nil {
		h.watcher.Watch(src.DataPath, src.SpecPath)
	}
	if err := h.service.Open(ctx, s, src); err != nil {
		h.logger.Warn("failed to open dashboard", "session", s.ID(), "error", err)
	}
}

// Updates is the long-lived SSE endpoint of the dashboard page. It reloads
// the session's inputs when one of its files changes and pushes the new
// view. It does not send initial state; DashboardPage renders that.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	sse := datastar.NewSSE(w, r)

	updates, cancel := h.notifier.Subscribe()
	defer cancel()
	defer h.sessions.Hold(s.ID())()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-updates:
			src := s.Source()
			if !c.Concerns(src.DataPath, src.SpecPath) {
				continue
			}
			changed, err := h.service.Refresh(ctx, s)
			if err != nil {
				h.logger.Warn("failed to reload dashboard", "session", s.ID(), "error", err)
			}
			if changed {
				h.patch(sse, s, "")
			}
		}
	}
}

// Filter records a filter selection and pushes the new view. Query:
// scope=global|chart, chart (for scope=chart), column, value.
func (h *Handlers) Filter(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	column := q.Get("column")
	if column == "" {
		http.Error(w, "missing column", http.StatusBadRequest)
		return
	}

	s := h.session(w, r)
	switch q.Get("scope") {
	case ScopeGlobal, "":
		s.SelectGlobal(column, q.Get("value"))
	case ScopeChart:
		chart := q.Get("chart")
		if chart == "" {
			http.Error(w, "missing chart", http.StatusBadRequest)
			return
		}
		s.SelectChart(chart, column, q.Get("value"))
	default:
		http.Error(w, fmt.Sprintf("unknown scope %q", q.Get("scope")), http.StatusBadRequest)
		return
	}

	h.patch(datastar.NewSSE(w, r), s, "")
}

// Layout changes the layout mode and pushes the new view. Unknown modes
// fall back to the two-per-row grid.
func (h *Handlers) Layout(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	if !layout.Valid(mode) {
		h.logger.Debug("unknown layout mode", "mode", mode)
	}
	s := h.session(w, r)
	s.SetLayout(layout.ParseMode(mode))

	h.patch(datastar.NewSSE(w, r), s, "")
}

// Regenerate asks the generation service for a new spec and pushes the new
// view. A failure keeps the current spec and shows a notice.
func (h *Handlers) Regenerate(w http.ResponseWriter, r *http.Request) {
	// Read signals BEFORE creating SSE (SSE consumes the request body)
	var signals RegenerateSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.ConsoleError(fmt.Errorf("failed to read signals: %w", err))
		return
	}

	s := h.session(w, r)
	sse := datastar.NewSSE(w, r)

	notice := ""
	if err := h.service.Regenerate(r.Context(), s, signals.Model); err != nil {
		h.logger.Error("spec regeneration failed", "session", s.ID(), "error", err)
		notice = "Spec generation failed: " + err.Error()
	}
	h.patch(sse, s, notice)
}

// UploadDataset replaces the session's dataset with the uploaded file.
func (h *Handlers) UploadDataset(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	file, name, err := h.formFile(w, r)
	if err != nil {
		h.renderPage(w, r, s, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	if err := h.service.UploadDataset(r.Context(), s, name, file); err != nil {
		h.logger.Warn("dataset upload rejected", "session", s.ID(), "name", name, "error", err)
		h.renderPage(w, r, s, http.StatusBadRequest, "Dataset upload failed: "+err.Error())
		return
	}
	h.redirectHome(w, r)
}

// UploadSpec replaces the session's spec with the uploaded file.
func (h *Handlers) UploadSpec(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	file, name, err := h.formFile(w, r)
	if err != nil {
		h.renderPage(w, r, s, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.renderPage(w, r, s, http.StatusBadRequest, "failed to read upload: "+err.Error())
		return
	}
	if err := h.service.UploadSpec(s, name, data); err != nil {
		h.logger.Warn("spec upload rejected", "session", s.ID(), "name", name, "error", err)
		h.renderPage(w, r, s, http.StatusBadRequest, "Spec upload failed: "+err.Error())
		return
	}
	h.redirectHome(w, r)
}

// session returns the caller's dashboard session, issuing a cookie on the
// first visit. It must run before any body is written.
func (h *Handlers) session(w http.ResponseWriter, r *http.Request) *session.Session {
	cs, err := h.sessionStore.Get(r, cookieName)
	if err != nil {
		h.logger.Debug("discarding unreadable session cookie", "error", err)
	}
	id, _ := cs.Values[sessionKey].(string)
	if id == "" {
		id = session.NewID()
		cs.Values[sessionKey] = id
		if err := cs.Save(r, w); err != nil {
			h.logger.Warn("failed to save session cookie", "error", err)
		}
	}
	s, created := h.sessions.Get(id)
	if created {
		h.logger.Debug("session started", "session", id)
	}
	return s
}

func (h *Handlers) formFile(w http.ResponseWriter, r *http.Request) (io.ReadCloser, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", errors.New("no file uploaded")
		}
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	return file, header.Filename, nil
}

func (h *Handlers) pageData(s *session.Session, notice string) pages.PageData {
	return pages.PageData{
		Title:    "Dashboard",
		BasePath: h.basePath,
		View:     h.service.View(s),
		Notice:   notice,
	}
}

func (h *Handlers) renderPage(w http.ResponseWriter, r *http.Request, s *session.Session, status int, notice string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.DashboardPage(h.pageData(s, notice)).Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render dashboard", "error", err)
	}
}

// patch sends the dashboard element over SSE.
func (h *Handlers) patch(sse *datastar.ServerSentEventGenerator, s *session.Session, notice string) {
	if err := sse.PatchElementTempl(pages.DashboardApp(h.pageData(s, notice))); err != nil {
		_ = sse.ConsoleError(err)
	}
}

func (h *Handlers) redirectHome(w http.ResponseWriter, r *http.Request) {
	target := h.basePath
	if target == "" || target[len(target)-1] != '/' {
		target += "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
