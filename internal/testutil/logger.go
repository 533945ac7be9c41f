// Package testutil provides logging helpers for tests.
package testutil

import (
	"context"
	"log/slog"
	"sync"
	"testing"
)

// NewTestLogger returns a debug-level logger writing to t.Log, so output
// only shows for failing tests or under -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(tbWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type tbWriter struct {
	t testing.TB
}

func (w tbWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// Entry is one recorded log call with its attributes flattened to strings.
type Entry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// Recorder keeps every record it handles. It also forwards them to t.Log.
type Recorder struct {
	next slog.Handler

	mu      *sync.Mutex
	entries *[]Entry
	attrs   []slog.Attr
}

// NewRecorder returns a recording logger and its recorder.
func NewRecorder(t testing.TB) (*slog.Logger, *Recorder) {
	t.Helper()
	r := &Recorder{
		next:    NewTestLogger(t).Handler(),
		mu:      &sync.Mutex{},
		entries: &[]Entry{},
	}
	return slog.New(r), r
}

// Enabled implements slog.Handler.
func (r *Recorder) Enabled(context.Context, slog.Level) bool { return true }

// Handle implements slog.Handler.
func (r *Recorder) Handle(ctx context.Context, rec slog.Record) error {
	e := Entry{Level: rec.Level, Message: rec.Message, Attrs: map[string]string{}}
	for _, a := range r.attrs {
		e.Attrs[a.Key] = a.Value.String()
	}
	rec.Attrs(func(a slog.Attr) bool {
		e.Attrs[a.Key] = a.Value.String()
		return true
	})

	r.mu.Lock()
	*r.entries = append(*r.entries, e)
	r.mu.Unlock()
	return r.next.Handle(ctx, rec)
}

// WithAttrs implements slog.Handler.
func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *r
	c.next = r.next.WithAttrs(attrs)
	c.attrs = append(append([]slog.Attr{}, r.attrs...), attrs...)
	return &c
}

// WithGroup implements slog.Handler. Groups are not tracked.
func (r *Recorder) WithGroup(name string) slog.Handler {
	c := *r
	c.next = r.next.WithGroup(name)
	return &c
}

// Entries returns the records handled so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), *r.entries...)
}

// Find returns the first entry with the message.
func (r *Recorder) Find(msg string) (Entry, bool) {
	for _, e := range r.Entries() {
		if e.Message == msg {
			return e, true
		}
	}
	return Entry{}, false
}
