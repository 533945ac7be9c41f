// Package charts maps chart spec entries onto render descriptors.
//
// A Descriptor carries Plotly-compatible traces and layout, built from the
// table the entry is evaluated against. Mapping is a pure function of the
// entry, the table and the session font.
package charts

import (
	"errors"
	"math"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapdash/internal/chartspec"
	"github.com/leapstack-labs/leapdash/internal/dataset"
)

// ErrUnsupported is returned for entries whose kind has no mapping.
var ErrUnsupported = errors.New("unsupported chart kind")

// Trace is one Plotly trace.
type Trace map[string]any

// Descriptor is a render-ready chart.
type Descriptor struct {
	ID         string         `json:"id"`
	Kind       chartspec.Kind `json:"kind"`
	Title      string         `json:"title"`
	Font       chartspec.Font `json:"font"`
	ShowLegend bool           `json:"showLegend"`
	Traces     []Trace        `json:"traces"`
	Layout     map[string]any `json:"layout"`
}

// Rendering defaults.
const (
	DefaultOpacity = 0.7
	maxBubbleSize  = 20.0
)

var titleCaser = cases.Title(language.English)

// DefaultTitle is the title of an entry that does not set one.
func DefaultTitle(kind chartspec.Kind) string {
	return titleCaser.String(string(kind)) + " Chart"
}

// Map builds the descriptor for c evaluated against t. id is the chart
// identity; font is the session font that entries inherit.
//
// A required column missing from t returns a *chartspec.MissingColumnError
// and no descriptor. An unsupported kind returns ErrUnsupported. A missing
// group column degrades to an ungrouped chart.
func Map(t *dataset.Table, c chartspec.Chart, id string, font chartspec.Font) (*Descriptor, error) {
	var (
		traces []Trace
		layout = map[string]any{}
		err    error
	)

	switch e := c.(type) {
	case *chartspec.Bar:
		traces, err = mapXY(t, id, e.XY, func() Trace { return Trace{"type": "bar"} })
		layout["barmode"] = "relative"
	case *chartspec.Line:
		traces, err = mapXY(t, id, e.XY, func() Trace { return Trace{"type": "scatter", "mode": "lines"} })
	case *chartspec.Pie:
		traces, err = mapPie(t, id, e)
	case *chartspec.Treemap:
		traces, err = mapTreemap(t, id, e)
	case *chartspec.Bubble:
		traces, err = mapBubble(t, id, e)
	case *chartspec.Waterfall:
		traces, err = mapWaterfall(t, id, e)
	case *chartspec.Area:
		traces, err = mapArea(t, id, e)
	default:
		return nil, ErrUnsupported
	}
	if err != nil {
		return nil, err
	}

	base := c.Base()
	d := &Descriptor{
		ID:         id,
		Kind:       c.Kind(),
		Title:      base.Title,
		Font:       font,
		ShowLegend: base.Legend(),
		Traces:     traces,
		Layout:     layout,
	}
	if d.Title == "" {
		d.Title = DefaultTitle(c.Kind())
	}
	if base.Font != nil {
		d.Font = base.Font.Or(font)
	}

	layout["title"] = map[string]any{"text": d.Title}
	layout["font"] = d.Font
	layout["showlegend"] = d.ShowLegend
	return d, nil
}

// columns looks up every named column and fails on the first absent one.
func columns(t *dataset.Table, chart string, refs ...[2]string) ([]*dataset.Column, error) {
	cols := make([]*dataset.Column, len(refs))
	for i, ref := range refs {
		field, name := ref[0], ref[1]
		col, ok := t.Column(name)
		if !ok {
			return nil, &chartspec.MissingColumnError{Chart: chart, Field: field, Column: name}
		}
		cols[i] = col
	}
	return cols, nil
}

// optional returns the named column if t has it.
func optional(t *dataset.Table, name string) *dataset.Column {
	if name == "" {
		return nil
	}
	col, _ := t.Column(name)
	return col
}

// cells returns JSON-ready values for the given rows. Temporal cells are
// written as their string key.
func cells(col *dataset.Column, rows []int) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = jsonValue(col.Value(r))
	}
	return out
}

func jsonValue(v any) any {
	switch val := v.(type) {
	case nil, string:
		return val
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return val
	default:
		return dataset.Key(val)
	}
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// group is a named subset of rows.
type group struct {
	name string
	rows []int
}

// split partitions the rows of t by the key of col in order of first
// appearance. A nil col yields one unnamed group. Rows whose group cell
// is missing are dropped.
func split(t *dataset.Table, col *dataset.Column) []group {
	if col == nil {
		return []group{{rows: allRows(t.Len())}}
	}
	var groups []group
	index := map[string]int{}
	for r := 0; r < t.Len(); r++ {
		key, ok := col.Key(r)
		if !ok {
			continue
		}
		i, seen := index[key]
		if !seen {
			i = len(groups)
			index[key] = i
			groups = append(groups, group{name: key})
		}
		groups[i].rows = append(groups[i].rows, r)
	}
	return groups
}

func mapXY(t *dataset.Table, id string, xy chartspec.XY, newTrace func() Trace) ([]Trace, error) {
	cols, err := columns(t, id, [2]string{"x", xy.X}, [2]string{"y", xy.Y})
	if err != nil {
		return nil, err
	}
	x, y := cols[0], cols[1]
	palette := ResolveSequence(xy.ColorSequence)

	groups := split(t, optional(t, xy.Group))
	traces := make([]Trace, 0, len(groups))
	for i, g := range groups {
		tr := newTrace()
		tr["x"] = cells(x, g.rows)
		tr["y"] = cells(y, g.rows)
		tr["name"] = g.name
		if g.name == "" {
			tr["name"] = xy.Y
		}
		color := palette[i%len(palette)]
		tr["marker"] = map[string]any{"color": color}
		if tr["type"] == "scatter" {
			tr["line"] = map[string]any{"color": color}
		}
		traces = append(traces, tr)
	}
	return traces, nil
}

func mapPie(t *dataset.Table, id string, e *chartspec.Pie) ([]Trace, error) {
	cols, err := columns(t, id, [2]string{"labels", e.Labels}, [2]string{"values", e.Values})
	if err != nil {
		return nil, err
	}
	rows := allRows(t.Len())
	return []Trace{{
		"type":   "pie",
		"labels": cells(cols[0], rows),
		"values": cells(cols[1], rows),
	}}, nil
}

func mapTreemap(t *dataset.Table, id string, e *chartspec.Treemap) ([]Trace, error) {
	cols, err := columns(t, id, [2]string{"x", e.X}, [2]string{"y", e.Y})
	if err != nil {
		return nil, err
	}
	x, y := cols[0], cols[1]
	parent := optional(t, e.Group)

	var (
		ids, labels, parents []string
		values               []float64
	)
	index := map[string]int{}
	groups := map[string]string{}
	leaves := map[[2]string]string{}
	add := func(id, label, parentID string, v float64) {
		i, ok := index[id]
		if !ok {
			i = len(ids)
			index[id] = i
			ids = append(ids, id)
			labels = append(labels, label)
			parents = append(parents, parentID)
			values = append(values, 0)
		}
		values[i] += v
	}

	for r := 0; r < t.Len(); r++ {
		leaf, ok := x.Key(r)
		if !ok {
			continue
		}
		v, _ := y.Float(r)
		if parent == nil {
			add(leaf, leaf, "", v)
			continue
		}
		p, ok := parent.Key(r)
		if !ok {
			continue
		}
		// Grouped node ids are positional so no cell text can make two
		// nodes collide.
		gid, ok := groups[p]
		if !ok {
			gid = "g" + strconv.Itoa(len(groups))
			groups[p] = gid
		}
		lid, ok := leaves[[2]string{p, leaf}]
		if !ok {
			lid = gid + "/" + strconv.Itoa(len(leaves))
			leaves[[2]string{p, leaf}] = lid
		}
		add(gid, p, "", v)
		add(lid, leaf, gid, v)
	}

	return []Trace{{
		"type":         "treemap",
		"ids":          ids,
		"labels":       labels,
		"parents":      parents,
		"values":       values,
		"branchvalues": "total",
	}}, nil
}

func mapBubble(t *dataset.Table, id string, e *chartspec.Bubble) ([]Trace, error) {
	cols, err := columns(t, id, [2]string{"x", e.X}, [2]string{"y", e.Y}, [2]string{"size", e.Size})
	if err != nil {
		return nil, err
	}
	x, y, size := cols[0], cols[1], cols[2]
	palette := ResolveSequence(e.ColorSequence)

	maxSize := 0.0
	for r := 0; r < size.Len(); r++ {
		if f, ok := size.Float(r); ok && f > maxSize {
			maxSize = f
		}
	}
	sizeref := 1.0
	if maxSize > 0 {
		sizeref = 2 * maxSize / (maxBubbleSize * maxBubbleSize)
	}

	groups := split(t, optional(t, e.Group))
	traces := make([]Trace, 0, len(groups))
	for i, g := range groups {
		name := g.name
		if name == "" {
			name = e.Y
		}
		traces = append(traces, Trace{
			"type": "scatter",
			"mode": "markers",
			"name": name,
			"x":    cells(x, g.rows),
			"y":    cells(y, g.rows),
			"marker": map[string]any{
				"color":    palette[i%len(palette)],
				"size":     cells(size, g.rows),
				"sizemode": "area",
				"sizeref":  sizeref,
			},
		})
	}
	return traces, nil
}

// Waterfall measures.
const (
	MeasureRelative = "relative"
	MeasureTotal    = "total"
	MeasureAbsolute = "absolute"
)

func mapWaterfall(t *dataset.Table, id string, e *chartspec.Waterfall) ([]Trace, error) {
	x, err := seriesValues(t, id, "x", e.X)
	if err != nil {
		return nil, err
	}
	y, err := seriesValues(t, id, "y", e.Y)
	if err != nil {
		return nil, err
	}
	return []Trace{{
		"type":    "waterfall",
		"x":       x,
		"y":       y,
		"measure": Measures(e.Measure, len(x)),
	}}, nil
}

// seriesValues resolves a literal list or a column reference.
func seriesValues(t *dataset.Table, id, field string, s chartspec.Series) ([]any, error) {
	if s.Values != nil {
		return s.Values, nil
	}
	cols, err := columns(t, id, [2]string{field, s.Column})
	if err != nil {
		return nil, err
	}
	return cells(cols[0], allRows(t.Len())), nil
}

// Measures returns n waterfall measures. Missing or unknown entries are
// relative; extra entries are dropped.
func Measures(given []string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = MeasureRelative
		if i < len(given) {
			switch m := given[i]; m {
			case MeasureTotal, MeasureAbsolute, MeasureRelative:
				out[i] = m
			}
		}
	}
	return out
}

func mapArea(t *dataset.Table, id string, e *chartspec.Area) ([]Trace, error) {
	if _, err := columns(t, id, [2]string{"x", e.X}, [2]string{"y", e.Y}); err != nil {
		return nil, err
	}
	if e.SortX {
		t = t.SortBy(e.X)
	}
	x, _ := t.Column(e.X)
	y, _ := t.Column(e.Y)

	opacity := DefaultOpacity
	if e.Opacity != nil {
		opacity = math.Min(1, math.Max(0, *e.Opacity))
	}
	shape := "linear"
	if e.LineSmoothing {
		shape = "spline"
	}
	palette := ResolveSequence(e.ColorSequence)

	groups := split(t, optional(t, e.Group))
	traces := make([]Trace, 0, len(groups))
	for i, g := range groups {
		name := g.name
		if name == "" {
			name = e.Y
		}
		color := palette[i%len(palette)]
		tr := Trace{
			"type":       "scatter",
			"mode":       "lines",
			"name":       name,
			"x":          cells(x, g.rows),
			"y":          cells(y, g.rows),
			"stackgroup": "one",
			"opacity":    opacity,
			"line":       map[string]any{"shape": shape, "color": color},
			"fillcolor":  color,
		}
		if i == 0 && e.Mode == "percent" {
			tr["groupnorm"] = "percent"
		}
		traces = append(traces, tr)
	}
	return traces, nil
}
