// Package notifier fans out input file changes to live dashboard streams.
package notifier

import (
	"path/filepath"
	"sync"
)

// Change names a dataset or spec file that was written. An empty Path
// means changes were coalesced and any input may be affected.
type Change struct {
	Path string
}

// Concerns reports whether the change may affect a session reading paths.
func (c Change) Concerns(paths ...string) bool {
	if c.Path == "" {
		return true
	}
	target := absPath(c.Path)
	for _, p := range paths {
		if p != "" && absPath(p) == target {
			return true
		}
	}
	return false
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// Hub delivers changes to every subscribed stream. Each subscriber holds at
// most one pending change; a slow subscriber sees a coalesced Change{}.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Change]struct{}
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{subs: make(map[chan Change]struct{})}
}

// Subscribe registers a stream. The returned cancel func must be called
// when the stream ends; it closes the channel.
func (h *Hub) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of open streams.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish hands the change to every subscriber without blocking.
func (h *Hub) Publish(c Change) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- c:
			continue
		default:
		}
		// Pending change not consumed yet: widen it.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- Change{}:
		default:
		}
	}
}
