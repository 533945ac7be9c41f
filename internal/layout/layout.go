// Package layout places dashboard tiles on a two-column grid.
package layout

// Mode names an arrangement.
type Mode string

// Arrangements.
const (
	AutoGrid2 Mode = "auto-grid-2"
	FullWidth Mode = "full-width"
	Top1Plus2 Mode = "top1-plus-2"
	Grid2x2   Mode = "grid-2x2"
)

// Modes lists every arrangement in display order.
var Modes = []Mode{AutoGrid2, FullWidth, Top1Plus2, Grid2x2}

// Label returns the human readable name of m.
func (m Mode) Label() string {
	switch m {
	case FullWidth:
		return "All Full Width"
	case Top1Plus2:
		return "1 Top + 2 Below"
	case Grid2x2:
		return "2x2 Grid"
	default:
		return "Auto Grid (2 per row)"
	}
}

// ParseMode returns the mode named s, or AutoGrid2 when s is unknown.
func ParseMode(s string) Mode {
	for _, m := range Modes {
		if string(m) == s {
			return m
		}
	}
	return AutoGrid2
}

// Valid reports whether s names a mode.
func Valid(s string) bool {
	for _, m := range Modes {
		if string(m) == s {
			return true
		}
	}
	return false
}

// Placement is the grid position of one item. Span is 2 for an item that
// takes the full row.
type Placement[T any] struct {
	Item T
	Row  int
	Col  int
	Span int
}

// Rows returns the number of rows the placements occupy.
func Rows[T any](ps []Placement[T]) int {
	if len(ps) == 0 {
		return 0
	}
	return ps[len(ps)-1].Row + 1
}

// Arrange places items according to mode. Unknown modes arrange as
// AutoGrid2.
func Arrange[T any](items []T, mode Mode) []Placement[T] {
	out := make([]Placement[T], 0, len(items))
	switch mode {
	case FullWidth:
		for i, it := range items {
			out = append(out, Placement[T]{Item: it, Row: i, Col: 0, Span: 2})
		}
	case Top1Plus2:
		for i, it := range items {
			if i == 0 {
				out = append(out, Placement[T]{Item: it, Row: 0, Col: 0, Span: 2})
				continue
			}
			j := i - 1
			out = append(out, Placement[T]{Item: it, Row: 1 + j/2, Col: j % 2, Span: 1})
		}
	default:
		// AutoGrid2, Grid2x2: two per row, ceil(n/2) rows.
		for i, it := range items {
			out = append(out, Placement[T]{Item: it, Row: i / 2, Col: i % 2, Span: 1})
		}
	}
	return out
}
