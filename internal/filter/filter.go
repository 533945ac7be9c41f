// Package filter applies categorical single-select filters to tables.
//
// A dashboard runs two passes: the global pass over the columns named in
// the document's global_filters, then a per-chart pass over each entry's
// own filters. Both passes use the same mechanics and compose by AND.
package filter

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/leapdash/internal/chartspec"
	"github.com/leapstack-labs/leapdash/internal/dataset"
)

// All is the option that disables a filter.
const All = "All"

// Selections maps a column name to the selected value.
type Selections map[string]string

// Clone returns an independent copy.
func (s Selections) Clone() Selections {
	out := make(Selections, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Active reports whether column has a concrete selection.
func (s Selections) Active(column string) (string, bool) {
	v, ok := s[column]
	if !ok || v == "" || v == All {
		return "", false
	}
	return v, true
}

// Control is the state of one filter widget.
type Control struct {
	Column   string
	Options  []string
	Selected string
}

// Identity returns the key that isolates a chart's filter state. index is
// the chart's position among entries of the same group (KPIs or the other
// charts), so two charts of the same kind never share selections.
func Identity(kind chartspec.Kind, index int) string {
	return fmt.Sprintf("%s_%d", kind, index)
}

// Options returns All followed by the distinct non-missing values of
// column, in natural order. A column absent from t yields nil.
func Options(t *dataset.Table, column string) []string {
	col, ok := t.Column(column)
	if !ok {
		return nil
	}

	seen := make(map[string]bool)
	var values []any
	for i := 0; i < col.Len(); i++ {
		key, ok := col.Key(i)
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		values = append(values, col.Value(i))
	}
	sort.SliceStable(values, func(i, j int) bool {
		return dataset.Compare(values[i], values[j]) < 0
	})

	out := make([]string, 0, len(values)+1)
	out = append(out, All)
	for _, v := range values {
		out = append(out, dataset.Key(v))
	}
	return out
}

// Apply keeps the rows that match every active selection on columns, in
// column order. Columns missing from t and inactive selections are
// skipped. t is never modified; when nothing is selected t itself is
// returned.
func Apply(t *dataset.Table, columns []string, sel Selections) *dataset.Table {
	type match struct {
		col   *dataset.Column
		value string
	}
	var matches []match
	for _, name := range columns {
		value, ok := sel.Active(name)
		if !ok {
			continue
		}
		col, ok := t.Column(name)
		if !ok {
			continue
		}
		matches = append(matches, match{col: col, value: value})
	}
	if len(matches) == 0 {
		return t
	}

	return t.Filter(func(row int) bool {
		for _, m := range matches {
			key, ok := m.col.Key(row)
			if !ok || key != m.value {
				return false
			}
		}
		return true
	})
}

// Controls builds the widgets for columns against the current table.
// A selection that no longer appears among the options shows as All.
func Controls(t *dataset.Table, columns []string, sel Selections) []Control {
	var out []Control
	for _, name := range columns {
		opts := Options(t, name)
		if opts == nil {
			continue
		}
		selected := All
		if v, ok := sel.Active(name); ok && contains(opts, v) {
			selected = v
		}
		out = append(out, Control{Column: name, Options: opts, Selected: selected})
	}
	return out
}

// Effective returns the selections on columns whose value is still among
// the options of t. A vanished value behaves like All, matching what
// Controls shows.
func Effective(t *dataset.Table, columns []string, sel Selections) Selections {
	out := Selections{}
	for _, name := range columns {
		v, ok := sel.Active(name)
		if !ok {
			continue
		}
		if contains(Options(t, name), v) {
			out[name] = v
		}
	}
	return out
}

func contains(opts []string, v string) bool {
	for _, o := range opts {
		if o == v {
			return true
		}
	}
	return false
}
