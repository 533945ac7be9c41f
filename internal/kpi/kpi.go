// Package kpi computes the headline metric cards of a dashboard.
package kpi

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/leapstack-labs/leapdash/internal/chartspec"
	"github.com/leapstack-labs/leapdash/internal/dataset"
)

// Aggregations.
const (
	AggSum   = "sum"
	AggAvg   = "avg"
	AggMean  = "mean"
	AggCount = "count"
	AggMax   = "max"
	AggMin   = "min"
)

// Change directions for a delta indicator.
const (
	Increase  = "increase"
	Decrease  = "decrease"
	Unchanged = "unchanged"
)

// Card is a computed KPI ready for display.
type Card struct {
	ID    string
	Label string
	// Value is float64, string, time.Time, or nil when undefined.
	Value   any
	Display string
	Delta   *Delta
	Font    chartspec.Font
}

// Defined reports whether the aggregate produced a value.
func (c Card) Defined() bool {
	return c.Value != nil
}

// Delta is a relative-change indicator against a reference value.
type Delta struct {
	Reference float64
	Ratio     float64
	Display   string
	Direction string
	Color     string
}

var printer = message.NewPrinter(language.English)

// Compute aggregates k over t. A missing metric column or an unknown
// aggregation yields an undefined card with a blank display.
func Compute(t *dataset.Table, k *chartspec.KPI) Card {
	card := Card{Label: Label(k)}

	col, ok := t.Column(k.Metric)
	if !ok {
		return card
	}
	v, ok := Aggregate(col, k.Agg)
	if !ok {
		return card
	}
	card.Value = v
	card.Display = Format(v)

	if f, isNum := v.(float64); isNum && k.Delta != nil && *k.Delta != 0 {
		card.Delta = NewDelta(f, *k.Delta)
	}
	return card
}

// Label returns the display name: label, then title, then the metric name.
func Label(k *chartspec.KPI) string {
	switch {
	case k.Label != "":
		return k.Label
	case k.Title != "":
		return k.Title
	case k.Metric != "":
		return k.Metric
	default:
		return "Metric"
	}
}

// Aggregate reduces the non-missing cells of col. agg is case-insensitive
// and defaults to sum. The second result is false when the aggregate is
// undefined: an unknown aggregation, sum or avg over a non-numeric column,
// or avg, max and min over a column with no values.
func Aggregate(col *dataset.Column, agg string) (any, bool) {
	switch strings.ToLower(strings.TrimSpace(agg)) {
	case "", AggSum:
		if col.Type != dataset.Numeric {
			return nil, false
		}
		sum, _ := sumCount(col)
		return sum, true
	case AggAvg, AggMean:
		if col.Type != dataset.Numeric {
			return nil, false
		}
		sum, n := sumCount(col)
		if n == 0 {
			return nil, false
		}
		return sum / float64(n), true
	case AggCount:
		return float64(col.NonMissing()), true
	case AggMax:
		return extremum(col, 1)
	case AggMin:
		return extremum(col, -1)
	default:
		return nil, false
	}
}

func sumCount(col *dataset.Column) (float64, int) {
	var sum float64
	n := 0
	for i := 0; i < col.Len(); i++ {
		if f, ok := col.Float(i); ok && !math.IsNaN(f) {
			sum += f
			n++
		}
	}
	return sum, n
}

// extremum returns the largest (sign 1) or smallest (sign -1) cell.
func extremum(col *dataset.Column, sign int) (any, bool) {
	var best any
	for i := 0; i < col.Len(); i++ {
		v := col.Value(i)
		if v == nil {
			continue
		}
		if best == nil || dataset.Compare(v, best)*sign > 0 {
			best = v
		}
	}
	return best, best != nil
}

// Format renders a value for a card. Numbers get thousands separators and
// two decimals; anything else is passed through as text.
func Format(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case float64:
		return printer.Sprintf("%.2f", val)
	default:
		return dataset.Key(val)
	}
}

// NewDelta builds the change indicator for value against reference.
// reference must be non-zero.
func NewDelta(value, reference float64) *Delta {
	ratio := (value - reference) / reference
	sign := ""
	if ratio >= 0 {
		sign = "+"
	}
	d := &Delta{
		Reference: reference,
		Ratio:     ratio,
		Display:   sign + printer.Sprintf("%.1f%%", ratio*100),
	}
	switch {
	case ratio > 0:
		d.Direction, d.Color = Increase, "green"
	case ratio < 0:
		d.Direction, d.Color = Decrease, "red"
	default:
		d.Direction, d.Color = Unchanged, "gray"
	}
	return d
}
