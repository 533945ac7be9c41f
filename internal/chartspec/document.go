// Package chartspec reads and writes declarative chart spec documents.
//
// A document lists chart entries, the columns that get a dashboard-wide
// filter and the default font. Entries are decoded into a closed set of
// chart types; unknown kinds decode to *Unsupported and render to nothing.
package chartspec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Font is a text style. Zero fields inherit from the enclosing font.
type Font struct {
	Family string `json:"family,omitempty"`
	Size   int    `json:"size,omitempty"`
	Color  string `json:"color,omitempty"`
}

// DefaultFont is used when a document does not set global_font.
func DefaultFont() Font {
	return Font{Family: "Arial", Size: 14, Color: "black"}
}

// Or fills the zero fields of f from fallback.
func (f Font) Or(fallback Font) Font {
	if f.Family == "" {
		f.Family = fallback.Family
	}
	if f.Size <= 0 {
		f.Size = fallback.Size
	}
	if f.Color == "" {
		f.Color = fallback.Color
	}
	return f
}

// Document is a normalized chart spec.
type Document struct {
	Charts []Chart
	// GlobalFilters is sorted and free of duplicates.
	GlobalFilters []string
	GlobalFont    Font
}

// Partition splits the entries into KPIs and everything else, preserving
// document order within each group.
func (d *Document) Partition() (kpis []*KPI, charts []Chart) {
	for _, c := range d.Charts {
		if k, ok := c.(*KPI); ok {
			kpis = append(kpis, k)
			continue
		}
		charts = append(charts, c)
	}
	return kpis, charts
}

type documentWire struct {
	Charts        []Chart             `json:"charts"`
	GlobalFilters map[string][]string `json:"global_filters,omitempty"`
	GlobalFont    Font                `json:"global_font"`
}

// MarshalJSON writes the document in object form. global_filters is
// written as a mapping to empty lists.
func (d *Document) MarshalJSON() ([]byte, error) {
	w := documentWire{
		Charts:     d.Charts,
		GlobalFont: d.GlobalFont.Or(DefaultFont()),
	}
	if w.Charts == nil {
		w.Charts = []Chart{}
	}
	if len(d.GlobalFilters) > 0 {
		w.GlobalFilters = make(map[string][]string, len(d.GlobalFilters))
		for _, col := range d.GlobalFilters {
			w.GlobalFilters[col] = []string{}
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON normalizes data into d.
func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := Normalize(data)
	if err != nil {
		return err
	}
	*d = *doc
	return nil
}

// Marshal writes doc as indented JSON.
func Marshal(doc *Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// ReadFile reads and normalizes the spec at path. Every failure, including a
// missing file, is a *SpecInvalidError.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &SpecInvalidError{Source: path, Err: err}
	}
	doc, err := Normalize(data)
	if err != nil {
		var sie *SpecInvalidError
		if errors.As(err, &sie) {
			sie.Source = path
		}
		return nil, err
	}
	return doc, nil
}

// Normalize parses a spec document.
//
// A top-level array is the chart list. A top-level object supplies charts,
// global_filters (an object whose keys name columns, or a list of names)
// and global_font. An object that has a "chart" key but none of the
// container keys is read as a single entry.
func Normalize(data []byte) (*Document, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, invalid(errors.New("empty document"))
	}
	if !json.Valid(data) {
		return nil, invalid(errors.New("malformed JSON"))
	}

	doc := &Document{GlobalFont: DefaultFont()}

	switch data[0] {
	case '[':
		charts, err := decodeCharts(data)
		if err != nil {
			return nil, err
		}
		doc.Charts = charts
		return doc, nil
	case '{':
	default:
		return nil, invalid(errors.New("document must be an object or an array"))
	}

	var top fields
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, invalid(err)
	}

	if top.has("chart") && !top.has("charts") && !top.has("global_filters") && !top.has("global_font") {
		c, err := decodeChart(top)
		if err != nil {
			return nil, invalid(fmt.Errorf("charts[0]: %w", err))
		}
		doc.Charts = []Chart{c}
		return doc, nil
	}

	if top.has("charts") {
		charts, err := decodeCharts(top["charts"])
		if err != nil {
			return nil, err
		}
		doc.Charts = charts
	}

	d := &decoder{f: top}
	doc.GlobalFilters = sortedUnique(d.names("global_filters"))
	if f := d.font("global_font"); f != nil {
		doc.GlobalFont = f.Or(DefaultFont())
	}
	if d.err != nil {
		return nil, invalid(d.err)
	}
	return doc, nil
}

func invalid(err error) error {
	return &SpecInvalidError{Err: err}
}

func decodeCharts(data json.RawMessage) ([]Chart, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, invalid(errors.New("charts must be a list"))
	}
	var charts []Chart
	for i, raw := range raws {
		var f fields
		if err := json.Unmarshal(raw, &f); err != nil || f == nil {
			return nil, invalid(fmt.Errorf("charts[%d]: entry must be an object", i))
		}
		c, err := decodeChart(f)
		if err != nil {
			return nil, invalid(fmt.Errorf("charts[%d]: %w", i, err))
		}
		charts = append(charts, c)
	}
	return charts, nil
}

func decodeChart(f fields) (Chart, error) {
	d := &decoder{f: f}
	name := d.str("chart")
	if d.err != nil {
		return nil, d.err
	}

	var c Chart
	switch kind := Kind(strings.ToLower(strings.TrimSpace(name))); kind {
	case KindKPI, KindBigNumber:
		c = &KPI{
			Spelling: kind,
			Metric:   d.str("metric", "y"),
			Agg:      d.str("agg", "aggregation"),
			Label:    d.str("label"),
			Delta:    d.float("delta"),
		}
	case KindBar:
		c = &Bar{XY: d.xy()}
	case KindLine:
		c = &Line{XY: d.xy()}
	case KindPie:
		c = &Pie{Labels: d.str("labels"), Values: d.str("values")}
	case KindTreemap:
		c = &Treemap{X: d.str("x"), Y: d.str("y"), Group: d.str("group")}
	case KindBubble:
		c = &Bubble{XY: d.xy(), Size: d.str("size")}
	case KindWaterfall:
		c = &Waterfall{X: d.series("x"), Y: d.series("y"), Measure: d.strs("measure")}
	case KindArea:
		c = &Area{
			XY:            d.xy(),
			Mode:          strings.ToLower(d.str("mode")),
			Opacity:       d.float("opacity"),
			LineSmoothing: d.boolean("lineSmoothing"),
			SortX:         d.boolean("sortX"),
		}
	default:
		return unsupported(name, f), nil
	}

	base := c.Base()
	base.Title = d.str("title")
	base.Font = d.font("font")
	base.ShowLegend = d.optBool("showLegend")
	base.Filters = d.names("filters")
	if d.err != nil {
		return nil, d.err
	}
	return c, nil
}

func unsupported(name string, f fields) *Unsupported {
	u := &Unsupported{Name: name}
	for k, v := range f {
		if k == "chart" {
			continue
		}
		if u.Fields == nil {
			u.Fields = make(map[string]json.RawMessage, len(f))
		}
		u.Fields[k] = canonical(v)
	}
	return u
}

// canonical compacts raw the same way the encoder writes a RawMessage, so
// an unsupported entry survives a write and re-read unchanged.
func canonical(raw json.RawMessage) json.RawMessage {
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return raw
	}
	var out bytes.Buffer
	json.HTMLEscape(&out, compact.Bytes())
	return out.Bytes()
}

func sortedUnique(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
