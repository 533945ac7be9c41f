// Package dataset holds the immutable in-memory tables that dashboards are
// built from, and loads them from delimited text files.
package dataset

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// ColumnType is the inferred type of every value in a column.
type ColumnType int

// Column types.
const (
	Text ColumnType = iota
	Numeric
	Temporal
)

// String returns the lower-case type name.
func (t ColumnType) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case Temporal:
		return "temporal"
	default:
		return "text"
	}
}

// Column is a named, typed sequence of cells.
// Cells are float64 (Numeric), string (Text), time.Time (Temporal) or nil
// for a missing value.
type Column struct {
	Name   string
	Type   ColumnType
	values []any
}

// NewColumn creates a column from a copy of values.
func NewColumn(name string, typ ColumnType, values []any) *Column {
	vals := make([]any, len(values))
	copy(vals, values)
	return &Column{Name: name, Type: typ, values: vals}
}

// Len returns the number of cells.
func (c *Column) Len() int {
	return len(c.values)
}

// Value returns the cell at row i (nil when missing).
func (c *Column) Value(i int) any {
	return c.values[i]
}

// Values returns a copy of all cells.
func (c *Column) Values() []any {
	out := make([]any, len(c.values))
	copy(out, c.values)
	return out
}

// Float returns the numeric cell at row i.
func (c *Column) Float(i int) (float64, bool) {
	f, ok := c.values[i].(float64)
	return f, ok
}

// Key returns the string form of the cell at row i used for equality
// matching. The second result is false for a missing cell.
func (c *Column) Key(i int) (string, bool) {
	v := c.values[i]
	if v == nil {
		return "", false
	}
	return Key(v), true
}

// NonMissing counts cells that are not missing.
func (c *Column) NonMissing() int {
	n := 0
	for _, v := range c.values {
		if v != nil {
			n++
		}
	}
	return n
}

// Key formats a cell value as its canonical string.
func Key(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return val
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format(time.DateOnly)
		}
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}

// Compare orders two non-missing cells of the same column type.
// Missing cells sort after everything else.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	}

	ak, bk := Key(a), Key(b)
	switch {
	case ak < bk:
		return -1
	case ak > bk:
		return 1
	}
	return 0
}

// Table is an immutable set of equal-length columns.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New builds a table. Column names must be unique and all columns must
// have the same length.
func New(columns ...*Column) (*Table, error) {
	t := &Table{
		columns: make([]*Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name, c.Len(), t.rows)
		}
		t.index[c.Name] = i
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// MustNew is like New but panics on error. Intended for fixtures.
func MustNew(columns ...*Column) *Table {
	t, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return t.rows
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Has reports whether the table has a column with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Select returns a derived table holding the given rows, in order.
func (t *Table) Select(rows []int) *Table {
	out := &Table{
		columns: make([]*Column, len(t.columns)),
		index:   make(map[string]int, len(t.columns)),
		rows:    len(rows),
	}
	for i, c := range t.columns {
		vals := make([]any, len(rows))
		for j, r := range rows {
			vals[j] = c.values[r]
		}
		out.columns[i] = &Column{Name: c.Name, Type: c.Type, values: vals}
		out.index[c.Name] = i
	}
	return out
}

// Filter returns a derived table with the rows for which keep is true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	rows := make([]int, 0, t.rows)
	for r := 0; r < t.rows; r++ {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	return t.Select(rows)
}

// SortBy returns a derived table stably sorted ascending by the named
// column. Missing cells sort last. An unknown column returns a copy.
func (t *Table) SortBy(name string) *Table {
	rows := make([]int, t.rows)
	for i := range rows {
		rows[i] = i
	}
	if c, ok := t.Column(name); ok {
		sort.SliceStable(rows, func(i, j int) bool {
			return Compare(c.values[rows[i]], c.values[rows[j]]) < 0
		})
	}
	return t.Select(rows)
}

// Head returns the first n rows.
func (t *Table) Head(n int) *Table {
	if n > t.rows {
		n = t.rows
	}
	if n < 0 {
		n = 0
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return t.Select(rows)
}

// Records returns up to n rows as column name to value maps.
func (t *Table) Records(n int) []map[string]any {
	head := t.Head(n)
	out := make([]map[string]any, head.rows)
	for r := 0; r < head.rows; r++ {
		rec := make(map[string]any, len(head.columns))
		for _, c := range head.columns {
			v := c.values[r]
			switch val := v.(type) {
			case time.Time:
				v = Key(val)
			case float64:
				// JSON has no NaN or infinity.
				if math.IsNaN(val) || math.IsInf(val, 0) {
					v = nil
				}
			}
			rec[c.Name] = v
		}
		out[r] = rec
	}
	return out
}
