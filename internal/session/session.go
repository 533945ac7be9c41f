// Package session holds the per-browser dashboard state: the loaded
// dataset and spec, the filter selections and the layout mode.
//
// Loading a new dataset or a new spec clears every selection.
package session

import (
	"os"
	"sync"
	"time"

	"github.com/leapstack-labs/leapdash/internal/chartspec"
	"github.com/leapstack-labs/leapdash/internal/dataset"
	"github.com/leapstack-labs/leapdash/internal/filter"
	"github.com/leapstack-labs/leapdash/internal/layout"
)

// Source describes where a session's inputs come from.
type Source struct {
	DataPath  string
	SpecPath  string
	Delimiter string
}

// Snapshot is a consistent copy of a session's state. Tables and documents
// are immutable and shared; filter state is copied.
type Snapshot struct {
	ID         string
	Source     Source
	Table      *dataset.Table
	DataName   string
	Document   *chartspec.Document
	SpecOrigin string
	Filters    *filter.State
	Layout     layout.Mode
	// Err is the last load failure, cleared by the next successful load.
	Err     error
	Version uint64
}

// Session is one browser's dashboard state. Methods are safe for
// concurrent use.
type Session struct {
	id string

	mu         sync.Mutex
	source     Source
	table      *dataset.Table
	dataName   string
	dataMod    time.Time
	doc        *chartspec.Document
	specOrigin string
	specMod    time.Time
	filters    *filter.State
	layout     layout.Mode
	err        error
	version    uint64
}

// New creates an empty session.
func New(id string, mode layout.Mode) *Session {
	return &Session{
		id:      id,
		filters: filter.NewState(),
		layout:  mode,
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Source returns the current inputs.
func (s *Session) Source() Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// SetDataset replaces the dataset and clears all selections. path is the
// file the table was read from, empty for uploads; name labels the data.
func (s *Session) SetDataset(path, name, delimiter string, t *dataset.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.source.DataPath = path
	s.source.Delimiter = delimiter
	s.dataName = name
	s.dataMod = modTime(path)
	s.table = t
	s.err = nil
	s.resetLocked()
}

// SetDocument replaces the spec and clears all selections. path is the
// file the spec was read from, empty for uploads and generated specs.
func (s *Session) SetDocument(path, origin string, doc *chartspec.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.source.SpecPath = path
	s.specOrigin = origin
	s.specMod = modTime(path)
	s.doc = doc
	s.err = nil
	s.resetLocked()
}

// SetError records a load failure that halts rendering.
func (s *Session) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	s.version++
}

// SelectGlobal records a global filter selection.
func (s *Session) SelectGlobal(column, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters.SetGlobal(column, value)
	s.version++
}

// SelectChart records a selection scoped to one chart identity.
func (s *Session) SelectChart(id, column, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters.SetChart(id, column, value)
	s.version++
}

// SetLayout changes the layout mode.
func (s *Session) SetLayout(mode layout.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layout = mode
	s.version++
}

// Stale reports which file-backed inputs changed on disk since they were
// loaded. Uploaded inputs are never stale.
func (s *Session) Stale() (data, spec bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return changed(s.source.DataPath, s.dataMod), changed(s.source.SpecPath, s.specMod)
}

// Snapshot returns a consistent copy of the state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:         s.id,
		Source:     s.source,
		Table:      s.table,
		DataName:   s.dataName,
		Document:   s.doc,
		SpecOrigin: s.specOrigin,
		Filters:    s.filters.Clone(),
		Layout:     s.layout,
		Err:        s.err,
		Version:    s.version,
	}
}

func (s *Session) resetLocked() {
	s.filters.Reset()
	s.version++
}

func modTime(path string) time.Time {
	if path == "" {
		return time.Time{}
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func changed(path string, loaded time.Time) bool {
	if path == "" {
		return false
	}
	return !modTime(path).Equal(loaded)
}
