// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
)

// SalesCSV is the dataset of the test project.
const SalesCSV = `Segment,Region,Sales,Profit
Consumer,East,100,10
Consumer,West,200,-5
Corporate,East,300,30
Corporate,West,400,40
`

// SalesSpec is the chart spec of the test project.
const SalesSpec = `{
  "charts": [
    {"chart": "kpi", "metric": "Sales", "label": "Total Sales"},
    {"chart": "bar", "x": "Region", "y": "Sales", "filters": ["Segment"]},
    {"chart": "pie", "labels": "Segment", "values": "Sales"}
  ],
  "global_filters": {"Segment": []}
}`

// GeneratedSpec is what the fake generation service replies, wrapped in
// the markup models tend to add.
const GeneratedSpec = "```json\n{\"charts\": [{\"chart\": \"line\", \"x\": \"Region\", \"y\": \"Profit\"}]}\n```"

// Project is a temporary LeapDash project.
type Project struct {
	Dir      string
	DataPath string
	SpecPath string
	Config   string
}

// SetupTestProject creates a temporary project with a dataset, a spec and
// a leapdash.yaml pointing at both.
func SetupTestProject(t *testing.T) *Project {
	t.Helper()

	dir := t.TempDir()
	p := &Project{
		Dir:      dir,
		DataPath: filepath.Join(dir, "data", "sales.csv"),
		SpecPath: filepath.Join(dir, "specs", "sales.json"),
		Config:   filepath.Join(dir, "leapdash.yaml"),
	}

	write(t, p.DataPath, SalesCSV)
	write(t, p.SpecPath, SalesSpec)
	write(t, p.Config, `data: data/sales.csv
spec: specs/sales.json
spec_dir: specs
state_path: .leapdash/history.db
`)
	return p
}

// Write creates or replaces a file of the project.
func (p *Project) Write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(p.Dir, name)
	write(t, path, content)
	return path
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// OllamaServer is a fake Ollama /api/generate endpoint.
type OllamaServer struct {
	*httptest.Server
	calls atomic.Int32
}

// NewOllamaServer replies to every generate call with reply, or with
// status when it is not 200.
func NewOllamaServer(t *testing.T, status int, reply string) *OllamaServer {
	t.Helper()
	s := &OllamaServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": reply})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":    req.Model,
			"response": reply,
			"done":     true,
		})
	}))
	t.Cleanup(s.Close)
	return s
}

// Calls returns the number of requests served.
func (s *OllamaServer) Calls() int {
	return int(s.calls.Load())
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertContains checks that the string contains every expected substring.
func AssertContains(t *testing.T, s string, expected ...string) {
	t.Helper()
	for _, e := range expected {
		if !strings.Contains(s, e) {
			t.Errorf("string %q does not contain expected %q", s, e)
		}
	}
}
