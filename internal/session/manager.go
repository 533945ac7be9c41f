package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapdash/internal/layout"
)

type entry struct {
	s        *Session
	lastSeen time.Time
	// holds counts open live streams; a held session is never swept.
	holds int
}

// Manager owns the sessions of a server, keyed by id.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	layout   layout.Mode
	now      func() time.Time
}

// NewManager creates a Manager whose new sessions start in mode.
func NewManager(mode layout.Mode) *Manager {
	return &Manager{
		sessions: make(map[string]*entry),
		layout:   mode,
		now:      time.Now,
	}
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// Get returns the session for id, creating it if needed, and marks it as
// used. The second result is true when the session was created by this
// call.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.sessions[id]; ok {
		e.lastSeen = m.now()
		return e.s, false
	}
	e := &entry{s: New(id, m.layout), lastSeen: m.now()}
	m.sessions[id] = e
	return e.s, true
}

// Hold keeps the session alive until release is called, however long it
// stays idle. Live update streams hold their session.
func (m *Manager) Hold(id string) (release func()) {
	m.mu.Lock()
	if e, ok := m.sessions[id]; ok {
		e.holds++
	}
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if e, ok := m.sessions[id]; ok && e.holds > 0 {
				e.holds--
				e.lastSeen = m.now()
			}
		})
	}
}

// Sweep forgets the sessions unused for longer than idle and not held.
// It returns how many were removed.
func (m *Manager) Sweep(idle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-idle)
	n := 0
	for id, e := range m.sessions {
		if e.holds == 0 && e.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
