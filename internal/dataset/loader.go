package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// LoadOptions controls how a delimited file is read.
type LoadOptions struct {
	// Delimiter forces a field separator. Empty means auto-detect.
	Delimiter string
}

// Loader reads delimited text files into tables using DuckDB's CSV sniffer
// for delimiter and type detection.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a Loader. A nil logger discards output.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{logger: logger}
}

// LoadFile loads the file at path.
func (l *Loader) LoadFile(ctx context.Context, path string, opts LoadOptions) (*Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, &ParseError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("is a directory")}
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("failed to get absolute path: %w", err)}
	}

	start := time.Now()
	t, err := l.read(ctx, absPath, opts)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	l.logger.Debug("dataset loaded",
		"path", path,
		"rows", t.Len(),
		"columns", len(t.Columns()),
		"duration", time.Since(start))
	return t, nil
}

// LoadReader loads an uploaded file. The content is spooled to a temporary
// file so DuckDB can sniff it; name is only used in error messages.
func (l *Loader) LoadReader(ctx context.Context, name string, r io.Reader, opts LoadOptions) (*Table, error) {
	tmp, err := os.CreateTemp("", "leapdash-upload-*"+filepath.Ext(name))
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return nil, &ParseError{Path: name, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return nil, &ParseError{Path: name, Err: err}
	}

	t, err := l.LoadFile(ctx, tmp.Name(), opts)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			return nil, &ParseError{Path: name, Err: pe.Err}
		}
		return nil, err
	}
	return t, nil
}

func (l *Loader) read(ctx context.Context, absPath string, opts LoadOptions) (*Table, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	defer func() { _ = db.Close() }()

	//nolint:rowserrcheck // checked after iteration
	rows, err := db.QueryContext(ctx, readQuery(absPath, opts))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	types := make([]ColumnType, len(colTypes))
	for i, ct := range colTypes {
		types[i] = columnTypeFor(ct.DatabaseTypeName())
	}

	cells := make([][]any, len(colTypes))
	for rows.Next() {
		values := make([]any, len(colTypes))
		ptrs := make([]any, len(colTypes))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			cells[i] = append(cells[i], convertCell(types[i], v))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	names := CleanHeaders(columnNames(colTypes))
	columns := make([]*Column, len(colTypes))
	for i := range colTypes {
		columns[i] = &Column{Name: names[i], Type: types[i], values: cells[i]}
		if columns[i].values == nil {
			columns[i].values = []any{}
		}
	}
	return New(columns...)
}

func readQuery(absPath string, opts LoadOptions) string {
	args := []string{quoteLiteral(absPath), "header=true"}
	if opts.Delimiter != "" {
		args = append(args, "delim="+quoteLiteral(opts.Delimiter))
	}
	return fmt.Sprintf("SELECT * FROM read_csv_auto(%s)", strings.Join(args, ", "))
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func columnNames(cts []*sql.ColumnType) []string {
	names := make([]string, len(cts))
	for i, ct := range cts {
		names[i] = ct.Name()
	}
	return names
}

// CleanHeaders trims whitespace and byte-order marks from header cells and
// makes the resulting names unique.
func CleanHeaders(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]int, len(names))
	for i, n := range names {
		name := strings.TrimSpace(strings.ReplaceAll(n, "\ufeff", ""))
		if c := seen[name]; c > 0 {
			seen[name] = c + 1
			name = name + "_" + strconv.Itoa(c)
		} else {
			seen[name] = 1
		}
		out[i] = name
	}
	return out
}

func columnTypeFor(dbType string) ColumnType {
	t := strings.ToUpper(dbType)
	switch {
	case strings.HasPrefix(t, "DECIMAL"),
		strings.HasSuffix(t, "INT"),
		strings.HasSuffix(t, "INTEGER"),
		t == "FLOAT", t == "DOUBLE", t == "REAL":
		return Numeric
	case strings.HasPrefix(t, "DATE"), strings.HasPrefix(t, "TIME"):
		return Temporal
	default:
		return Text
	}
}

type floater interface {
	Float64() float64
}

func convertCell(typ ColumnType, v any) any {
	if v == nil {
		return nil
	}
	switch typ {
	case Numeric:
		if f, ok := toFloat(v); ok {
			return f
		}
		return nil
	case Temporal:
		if tv, ok := v.(time.Time); ok {
			return tv
		}
		return nil
	default:
		switch val := v.(type) {
		case string:
			return val
		case []byte:
			return string(val)
		case bool:
			return strconv.FormatBool(val)
		default:
			return fmt.Sprint(val)
		}
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case *big.Int:
		f, _ := new(big.Float).SetInt(n).Float64()
		return f, true
	case floater:
		return n.Float64(), true
	}
	return 0, false
}
