// Package features provides shared test utilities for UI feature tests.
package features

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdash/internal/dashboard"
	"github.com/leapstack-labs/leapdash/internal/dataset"
	"github.com/leapstack-labs/leapdash/internal/layout"
	"github.com/leapstack-labs/leapdash/internal/llm"
	"github.com/leapstack-labs/leapdash/internal/session"
	"github.com/leapstack-labs/leapdash/internal/specsource"
	"github.com/leapstack-labs/leapdash/internal/state"
	"github.com/leapstack-labs/leapdash/internal/testutil"
	"github.com/leapstack-labs/leapdash/internal/ui/notifier"
)

// SalesCSV is the default fixture dataset.
const SalesCSV = "Segment,Region,Sales\nA,East,10\nA,West,20\nB,East,30\n"

// SalesSpec is the default fixture spec.
const SalesSpec = `{
  "charts": [
    {"chart": "kpi", "metric": "Sales", "label": "Total Sales"},
    {"chart": "bar", "x": "Region", "y": "Sales", "filters": ["Region"]}
  ],
  "global_filters": ["Segment"]
}`

// GeneratedSpec is what the fixture's mock generation service replies.
const GeneratedSpec = "```json\n[{\"chart\": \"line\", \"x\": \"Region\", \"y\": \"Sales\"}]\n```"

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Service      *dashboard.Service
	Sessions     *session.Manager
	Notifier     *notifier.Hub
	SessionStore *sessions.CookieStore
	Provider     *llm.MockProvider
	History      *state.SQLiteStore

	Dir      string
	DataPath string
	SpecPath string
}

// SetupTestFixture writes the fixture dataset and spec to a temp directory
// and wires a dashboard service backed by a mock generation service and an
// in-memory history store.
func SetupTestFixture(t *testing.T) *TestFixture {
	t.Helper()

	logger := testutil.NewTestLogger(t)
	dir := t.TempDir()

	dataPath := filepath.Join(dir, "sales.csv")
	specPath := filepath.Join(dir, "sales.json")
	require.NoError(t, os.WriteFile(dataPath, []byte(SalesCSV), 0600))
	require.NoError(t, os.WriteFile(specPath, []byte(SalesSpec), 0600))

	history := state.NewSQLiteStore()
	require.NoError(t, history.Open(":memory:"))
	t.Cleanup(func() {
		_ = history.Close()
	})

	provider := llm.NewMockProvider(llm.MockResponse{Content: GeneratedSpec})
	specs := specsource.New(specsource.Config{
		Provider: provider,
		History:  history,
		Logger:   logger,
	})

	return &TestFixture{
		Service:      dashboard.NewService(dataset.NewLoader(logger), specs, logger),
		Sessions:     session.NewManager(layout.AutoGrid2),
		Notifier:     notifier.New(),
		SessionStore: NewTestSessionStore(),
		Provider:     provider,
		History:      history,
		Dir:          dir,
		DataPath:     dataPath,
		SpecPath:     specPath,
	}
}

// Touch rewrites a fixture file and moves its mtime forward so that
// sessions see it as changed.
func (f *TestFixture) Touch(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
}

// WithCookies copies the cookies set on a previous response onto r.
func WithCookies(r *http.Request, resp *http.Response) *http.Request {
	for _, c := range resp.Cookies() {
		r.AddCookie(c)
	}
	return r
}

// NewTestSessionStore creates a session store for testing.
func NewTestSessionStore() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
}
