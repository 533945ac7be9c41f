package chartspec

import (
	"encoding/json"
	"fmt"
)

// Kind is the value of an entry's "chart" discriminator.
type Kind string

// Supported chart kinds.
const (
	KindKPI       Kind = "kpi"
	KindBigNumber Kind = "big_number"
	KindBar       Kind = "bar"
	KindLine      Kind = "line"
	KindPie       Kind = "pie"
	KindTreemap   Kind = "treemap"
	KindBubble    Kind = "bubble"
	KindWaterfall Kind = "waterfall"
	KindArea      Kind = "area"
)

// Chart is one entry of a document. The set of implementations is closed:
// *KPI, *Bar, *Line, *Pie, *Treemap, *Bubble, *Waterfall, *Area and
// *Unsupported.
type Chart interface {
	// Kind returns the canonical kind. Both KPI spellings report KindKPI.
	Kind() Kind
	// Base returns the fields shared by every kind.
	Base() *Common
	isChart()
}

// Common holds the presentation fields every entry may carry.
type Common struct {
	Title      string   `json:"title,omitempty"`
	Font       *Font    `json:"font,omitempty"`
	ShowLegend *bool    `json:"showLegend,omitempty"`
	Filters    []string `json:"filters,omitempty"`
}

// Base implements Chart.
func (c *Common) Base() *Common { return c }

// Legend reports whether the legend is shown. Defaults to true.
func (c *Common) Legend() bool {
	return c.ShowLegend == nil || *c.ShowLegend
}

// XY is the field set shared by the cartesian kinds.
type XY struct {
	X             string   `json:"x,omitempty"`
	Y             string   `json:"y,omitempty"`
	Group         string   `json:"group,omitempty"`
	ColorSequence []string `json:"colorSequence,omitempty"`
}

// KPI is a single aggregated metric shown as a headline card.
type KPI struct {
	Common
	// Spelling is the discriminator as written: KindKPI or KindBigNumber.
	Spelling Kind
	Metric   string
	Agg      string
	Label    string
	// Delta is an optional reference value for a relative-change indicator.
	Delta *float64
}

// Bar is a bar chart with one trace per group value.
type Bar struct {
	Common
	XY
}

// Line is a line chart with one line per group value.
type Line struct {
	Common
	XY
}

// Pie is a pie chart of a numeric column split by a category column.
type Pie struct {
	Common
	Labels string `json:"labels,omitempty"`
	Values string `json:"values,omitempty"`
}

// Treemap sizes leaves by Y along the path [Group, X] or [X].
type Treemap struct {
	Common
	X     string `json:"x,omitempty"`
	Y     string `json:"y,omitempty"`
	Group string `json:"group,omitempty"`
}

// Bubble is a scatter chart whose marker size follows the Size column.
type Bubble struct {
	Common
	XY
	Size string `json:"size,omitempty"`
}

// Waterfall is a running-total chart. X and Y are either column names or
// literal value lists.
type Waterfall struct {
	Common
	X       Series   `json:"x"`
	Y       Series   `json:"y"`
	Measure []string `json:"measure,omitempty"`
}

// Area is a stacked area chart.
type Area struct {
	Common
	XY
	// Mode is "stack" (default) or "percent".
	Mode          string   `json:"mode,omitempty"`
	Opacity       *float64 `json:"opacity,omitempty"`
	LineSmoothing bool     `json:"lineSmoothing,omitempty"`
	SortX         bool     `json:"sortX,omitempty"`
}

// Unsupported is an entry whose discriminator names no known kind. It
// renders to nothing but keeps its fields for serialization.
type Unsupported struct {
	Common
	Name   string
	Fields map[string]json.RawMessage
}

func (*KPI) Kind() Kind { return KindKPI }
func (*Bar) Kind() Kind { return KindBar }
func (*Line) Kind() Kind { return KindLine }
func (*Pie) Kind() Kind { return KindPie }
func (*Treemap) Kind() Kind { return KindTreemap }
func (*Bubble) Kind() Kind { return KindBubble }
func (*Waterfall) Kind() Kind { return KindWaterfall }
func (*Area) Kind() Kind { return KindArea }
func (u *Unsupported) Kind() Kind { return Kind(u.Name) }

func (*KPI) isChart() {}
func (*Bar) isChart() {}
func (*Line) isChart() {}
func (*Pie) isChart() {}
func (*Treemap) isChart() {}
func (*Bubble) isChart() {}
func (*Waterfall) isChart() {}
func (*Area) isChart() {}
func (*Unsupported) isChart() {}

// Series is either a column reference or a literal list of values.
type Series struct {
	Column string
	Values []any
}

// IsZero reports whether neither a column nor values are set.
func (s Series) IsZero() bool {
	return s.Column == "" && s.Values == nil
}

// MarshalJSON writes a column reference as a string and literals as an array.
func (s Series) MarshalJSON() ([]byte, error) {
	if s.Values != nil {
		return json.Marshal(s.Values)
	}
	if s.Column == "" {
		return []byte("null"), nil
	}
	return json.Marshal(s.Column)
}

// UnmarshalJSON accepts a string, an array or null.
func (s *Series) UnmarshalJSON(data []byte) error {
	*s = Series{}
	if isNull(data) {
		return nil
	}
	if err := json.Unmarshal(data, &s.Column); err == nil {
		return nil
	}
	var values []any
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("expected column name or list")
	}
	if values == nil {
		values = []any{}
	}
	s.Values = values
	return nil
}

func (k *KPI) MarshalJSON() ([]byte, error) {
	spelling := k.Spelling
	if spelling == "" {
		spelling = KindKPI
	}
	return json.Marshal(struct {
		Chart Kind `json:"chart"`
		Common
		Metric string   `json:"metric,omitempty"`
		Agg    string   `json:"agg,omitempty"`
		Label  string   `json:"label,omitempty"`
		Delta  *float64 `json:"delta,omitempty"`
	}{spelling, k.Common, k.Metric, k.Agg, k.Label, k.Delta})
}

func (b *Bar) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Chart Kind `json:"chart"`
		Common
		XY
	}{KindBar, b.Common, b.XY})
}

func (l *Line) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Chart Kind `json:"chart"`
		Common
		XY
	}{KindLine, l.Common, l.XY})
}

func (p *Pie) MarshalJSON() ([]byte, error) {
	type alias Pie
	return json.Marshal(struct {
		Chart Kind `json:"chart"`
		*alias
	}{KindPie, (*alias)(p)})
}

func (t *Treemap) MarshalJSON() ([]byte, error) {
	type alias Treemap
	return json.Marshal(struct {
		Chart Kind `json:"chart"`
		*alias
	}{KindTreemap, (*alias)(t)})
}

func (b *Bubble) MarshalJSON() ([]byte, error) {
	type alias Bubble
	return json.Marshal(struct {
		Chart Kind `json:"chart"`
		*alias
	}{KindBubble, (*alias)(b)})
}

func (w *Waterfall) MarshalJSON() ([]byte, error) {
	type alias Waterfall
	return json.Marshal(struct {
		Chart Kind `json:"chart"`
		*alias
	}{KindWaterfall, (*alias)(w)})
}

func (a *Area) MarshalJSON() ([]byte, error) {
	type alias Area
	return json.Marshal(struct {
		Chart Kind `json:"chart"`
		*alias
	}{KindArea, (*alias)(a)})
}

func (u *Unsupported) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(u.Fields)+1)
	for k, v := range u.Fields {
		out[k] = v
	}
	if u.Name != "" {
		name, err := json.Marshal(u.Name)
		if err != nil {
			return nil, err
		}
		out["chart"] = name
	}
	return json.Marshal(out)
}
