// Package state persists the history of generated chart specs in SQLite.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// Generation outcomes.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("generated spec not found")

var errNotOpened = errors.New("database not opened")

// timeLayout keeps created_at fixed-width in UTC so string order is time
// order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// GeneratedSpec is one call to the generation service.
type GeneratedSpec struct {
	ID        string
	CreatedAt time.Time
	Model     string
	// Source is the dataset the prompt was built from.
	Source string
	Status string
	Prompt string
	// Response is the raw model reply.
	Response string
	// Document is the normalized spec JSON when Status is StatusOK.
	Document string
	Error    string
}

// SQLiteStore records generated specs in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a store. Call Open before use.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// NewWithDB wraps an existing connection. The schema is not migrated.
func NewWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Open opens the database at path and migrates it.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// every new connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path

	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the path the store was opened with.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Record inserts g, assigning its ID and CreatedAt when empty.
func (s *SQLiteStore) Record(ctx context.Context, g *GeneratedSpec) error {
	if s.db == nil {
		return errNotOpened
	}
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	if g.Status == "" {
		g.Status = StatusOK
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generated_specs (id, created_at, model, source, status, prompt, response, document, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.CreatedAt.UTC().Format(timeLayout), g.Model, g.Source, g.Status,
		g.Prompt, g.Response, g.Document, g.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record generated spec: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, created_at, model, source, status, prompt, response, document, error FROM generated_specs`

// List returns the most recent entries first. limit <= 0 means no limit.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*GeneratedSpec, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list generated specs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*GeneratedSpec
	for rows.Next() {
		g, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list generated specs: %w", err)
	}
	return out, nil
}

// Get returns one entry by id, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*GeneratedSpec, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	g, err := scan(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*GeneratedSpec, error) {
	g := &GeneratedSpec{}
	var created string
	err := row.Scan(&g.ID, &created, &g.Model, &g.Source, &g.Status, &g.Prompt, &g.Response, &g.Document, &g.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read generated spec: %w", err)
	}
	g.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", created, err)
	}
	return g, nil
}
