package dashboard

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdash/internal/session"
	"github.com/leapstack-labs/leapdash/internal/testutil"
	"github.com/leapstack-labs/leapdash/internal/ui/features"
	"github.com/leapstack-labs/leapdash/internal/ui/notifier"
)

// =============================================================================
// Test Setup Helpers
// =============================================================================

func setupTestHandlers(t *testing.T, defaults bool) (*Handlers, *features.TestFixture) {
	t.Helper()

	fixture := features.SetupTestFixture(t)
	cfg := Config{
		Service:      fixture.Service,
		Sessions:     fixture.Sessions,
		SessionStore: fixture.SessionStore,
		Notifier:     fixture.Notifier,
		Logger:       testutil.NewTestLogger(t),
	}
	if defaults {
		cfg.Defaults = session.Source{DataPath: fixture.DataPath, SpecPath: fixture.SpecPath}
	}
	return NewHandlers(cfg), fixture
}

// openPage loads the dashboard and returns the response carrying the
// session cookie.
func openPage(t *testing.T, h *Handlers) *http.Response {
	t.Helper()
	rec := httptest.NewRecorder()
	h.DashboardPage(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Result()
}

func post(t *testing.T, h http.HandlerFunc, target string, prev *http.Response) *httptest.ResponseRecorder {
	t.Helper()
	req := features.WithCookies(httptest.NewRequest(http.MethodPost, target, nil), prev)
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

// =============================================================================
// DashboardPage Tests
// =============================================================================

func TestDashboardPage(t *testing.T) {
	h, _ := setupTestHandlers(t, true)

	rec := httptest.NewRecorder()
	h.DashboardPage(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Result().Cookies(), "first visit issues a session cookie")

	body := rec.Body.String()
	for _, want := range []string{
		"<!doctype html>",
		"<title>Dashboard - LeapDash</title>",
		"data-init",
		"/updates",
		`id="dashboard"`,
		"Total Sales",
		"60.00",
		`id="chart-bar_0"`,
		"Rows: 3 of 3",
	} {
		assert.Contains(t, body, want, "response should contain %q", want)
	}
}

func TestDashboardPage_QuerySelectsInputs(t *testing.T) {
	h, fixture := setupTestHandlers(t, false)

	target := "/?" + url.Values{"csv": {fixture.DataPath}, "json": {"missing.json"}}.Encode()
	rec := httptest.NewRecorder()
	h.DashboardPage(rec, httptest.NewRequest(http.MethodGet, target, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "spec: generated", "an unusable spec falls back to generation")
	assert.Contains(t, body, `id="chart-line_0"`)
	assert.Len(t, fixture.Provider.Calls(), 1)
}

type recordingWatcher struct {
	paths []string
}

func (w *recordingWatcher) Watch(paths ...string) {
	w.paths = append(w.paths, paths...)
}

func TestDashboardPage_QueryInputsReloadOnRevisit(t *testing.T) {
	h, fixture := setupTestHandlers(t, false)
	watcher := &recordingWatcher{}
	h.watcher = watcher

	dir := t.TempDir()
	data := filepath.Join(dir, "other.csv")
	spec := filepath.Join(dir, "other.json")
	fixture.Touch(t, data, features.SalesCSV)
	fixture.Touch(t, spec, features.SalesSpec)
	target := "/?" + url.Values{"csv": {data}, "json": {spec}}.Encode()

	rec := httptest.NewRecorder()
	h.DashboardPage(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rows: 3 of 3")
	assert.Equal(t, []string{data, spec}, watcher.paths)

	fixture.Touch(t, data, features.SalesCSV+"B,West,40\n")
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(data, later, later))

	again := httptest.NewRecorder()
	h.DashboardPage(again, features.WithCookies(httptest.NewRequest(http.MethodGet, target, nil), rec.Result()))
	assert.Contains(t, again.Body.String(), "Rows: 4 of 4", "a repeated query reloads the rewritten dataset")
	assert.Equal(t, []string{data, spec}, watcher.paths, "the same inputs are not opened again")
}

func TestDashboardPage_NothingLoaded(t *testing.T) {
	h, _ := setupTestHandlers(t, false)

	rec := httptest.NewRecorder()
	h.DashboardPage(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Nothing to show")
	assert.Contains(t, rec.Body.String(), "no dataset loaded")
}

func TestDashboardPage_MissingDataset(t *testing.T) {
	h, _ := setupTestHandlers(t, false)

	rec := httptest.NewRecorder()
	h.DashboardPage(rec, httptest.NewRequest(http.MethodGet, "/?csv=/nonexistent/data.csv", nil))

	assert.Contains(t, rec.Body.String(), "Nothing to show")
	assert.Contains(t, rec.Body.String(), "not found")
}

// =============================================================================
// Action Tests - SSE responses
// =============================================================================

func TestFilter(t *testing.T) {
	h, _ := setupTestHandlers(t, true)
	page := openPage(t, h)

	rec := post(t, h.Filter, "/api/filter?scope=global&column=Segment&value=A", page)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.GreaterOrEqual(t, strings.Count(body, "event:"), 1)
	assert.Contains(t, body, "30.00")
	assert.Contains(t, body, "Rows: 2 of 3")

	rec = post(t, h.Filter, "/api/filter?scope=chart&chart=bar_0&column=Region&value=West", page)
	assert.Contains(t, rec.Body.String(), "30.00", "chart filters leave KPIs alone")

	rec = post(t, h.Filter, "/api/filter?scope=global&column=Segment&value=All", page)
	assert.Contains(t, rec.Body.String(), "60.00")
}

func TestFilter_BadRequest(t *testing.T) {
	h, _ := setupTestHandlers(t, true)
	page := openPage(t, h)

	tests := []struct {
		name   string
		target string
	}{
		{"missing column", "/api/filter?scope=global&value=A"},
		{"missing chart", "/api/filter?scope=chart&column=Region&value=A"},
		{"unknown scope", "/api/filter?scope=page&column=Region&value=A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h.Filter, tt.target, page)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLayout(t *testing.T) {
	h, fixture := setupTestHandlers(t, true)
	page := openPage(t, h)

	rec := post(t, h.Layout, "/api/layout?mode=full-width", page)
	assert.Contains(t, rec.Body.String(), "span-2")

	require.Equal(t, 1, fixture.Sessions.Len())
	s := h.session(httptest.NewRecorder(), features.WithCookies(httptest.NewRequest(http.MethodGet, "/", nil), page))
	assert.Equal(t, "full-width", string(s.Snapshot().Layout))

	post(t, h.Layout, "/api/layout?mode=bogus", page)
	assert.Equal(t, "auto-grid-2", string(s.Snapshot().Layout))
}

func TestRegenerate(t *testing.T) {
	h, fixture := setupTestHandlers(t, true)
	page := openPage(t, h)

	req := httptest.NewRequest(http.MethodPost, "/api/regenerate", strings.NewReader(`{"model": "llama3"}`))
	req.Header.Set("Content-Type", "application/json")
	req = features.WithCookies(req, page)
	rec := httptest.NewRecorder()
	h.Regenerate(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, "spec: generated")
	assert.Contains(t, body, "chart-line_0")
	require.Len(t, fixture.Provider.Calls(), 1)
	assert.Equal(t, "llama3", fixture.Provider.Calls()[0].Model)

	history, err := fixture.History.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

// =============================================================================
// Upload Tests
// =============================================================================

func multipartRequest(t *testing.T, target, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadSpec(t *testing.T) {
	h, _ := setupTestHandlers(t, true)
	page := openPage(t, h)

	req := features.WithCookies(multipartRequest(t, "/upload/spec", "mine.json", `[{"chart": "pie", "labels": "Region", "values": "Sales"}]`), page)
	rec := httptest.NewRecorder()
	h.UploadSpec(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	h.DashboardPage(rec, features.WithCookies(httptest.NewRequest(http.MethodGet, "/", nil), page))
	assert.Contains(t, rec.Body.String(), "chart-pie_0")
	assert.Contains(t, rec.Body.String(), "spec: upload")
}

func TestUploadSpec_Rejected(t *testing.T) {
	h, _ := setupTestHandlers(t, true)
	page := openPage(t, h)

	req := features.WithCookies(multipartRequest(t, "/upload/spec", "bad.json", `{"charts": 1}`), page)
	rec := httptest.NewRecorder()
	h.UploadSpec(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Spec upload failed")
	assert.Contains(t, body, "chart-bar_0", "the current spec stays")
}

func TestUploadDataset(t *testing.T) {
	h, _ := setupTestHandlers(t, true)
	page := openPage(t, h)

	csv := "Segment,Region,Sales\nA,East,100\nB,West,200\n"
	req := features.WithCookies(multipartRequest(t, "/upload/dataset", "new.csv", csv), page)
	rec := httptest.NewRecorder()
	h.UploadDataset(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = httptest.NewRecorder()
	h.DashboardPage(rec, features.WithCookies(httptest.NewRequest(http.MethodGet, "/", nil), page))
	body := rec.Body.String()
	assert.Contains(t, body, "new.csv")
	assert.Contains(t, body, "300.00")
}

func TestUploadDataset_NoFile(t *testing.T) {
	h, _ := setupTestHandlers(t, true)

	rec := httptest.NewRecorder()
	h.UploadDataset(rec, multipartRequest(t, "/upload/dataset", "", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no file uploaded")
}

// =============================================================================
// Updates Tests - SSE endpoint for live updates only
// =============================================================================

func TestUpdates_PushesOnChange(t *testing.T) {
	h, fixture := setupTestHandlers(t, true)
	page := openPage(t, h)

	req := features.WithCookies(httptest.NewRequest(http.MethodGet, "/updates", nil), page)
	ctx, cancel := context.WithTimeout(req.Context(), 300*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.Updates(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	fixture.Touch(t, fixture.SpecPath, `[{"chart": "treemap", "x": "Region", "y": "Sales"}]`)
	fixture.Notifier.Publish(notifier.Change{Path: fixture.SpecPath})

	<-done

	body := rec.Body.String()
	assert.GreaterOrEqual(t, strings.Count(body, "event:"), 1)
	assert.Contains(t, body, "chart-treemap_0")
}

func TestUpdates_NoChangeNoEvent(t *testing.T) {
	h, fixture := setupTestHandlers(t, true)
	page := openPage(t, h)

	req := features.WithCookies(httptest.NewRequest(http.MethodGet, "/updates", nil), page)
	ctx, cancel := context.WithTimeout(req.Context(), 150*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.Updates(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	fixture.Notifier.Publish(notifier.Change{})
	<-done

	assert.Equal(t, 0, strings.Count(rec.Body.String(), "event:"), "nothing changed on disk")
}

func TestUpdates_IgnoresOtherFiles(t *testing.T) {
	h, fixture := setupTestHandlers(t, true)
	page := openPage(t, h)

	req := features.WithCookies(httptest.NewRequest(http.MethodGet, "/updates", nil), page)
	ctx, cancel := context.WithTimeout(req.Context(), 150*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.Updates(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	other := filepath.Join(fixture.Dir, "other.json")
	fixture.Touch(t, other, `[{"chart": "treemap", "x": "Region", "y": "Sales"}]`)
	fixture.Touch(t, fixture.SpecPath, `[{"chart": "treemap", "x": "Region", "y": "Sales"}]`)
	fixture.Notifier.Publish(notifier.Change{Path: other})
	<-done

	assert.Equal(t, 0, strings.Count(rec.Body.String(), "event:"), "the session does not read other.json")
}
