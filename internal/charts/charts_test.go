package charts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdash/internal/chartspec"
	"github.com/leapstack-labs/leapdash/internal/dataset"
)

func salesTable() *dataset.Table {
	return dataset.MustNew(
		dataset.NewColumn("Region", dataset.Text, []any{"East", "West", "East", "North"}),
		dataset.NewColumn("Segment", dataset.Text, []any{"A", "A", "B", nil}),
		dataset.NewColumn("Month", dataset.Numeric, []any{3.0, 1.0, 2.0, 4.0}),
		dataset.NewColumn("Sales", dataset.Numeric, []any{10.0, 20.0, 30.0, 40.0}),
		dataset.NewColumn("Qty", dataset.Numeric, []any{1.0, 5.0, 2.0, 2.0}),
	)
}

func TestMap_BarMissingColumnIsOmitted(t *testing.T) {
	d, err := Map(salesTable(), &chartspec.Bar{XY: chartspec.XY{X: "Part", Y: "Sales"}}, "bar_0", chartspec.DefaultFont())

	assert.Nil(t, d)
	var mce *chartspec.MissingColumnError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, "x", mce.Field)
	assert.Equal(t, "Part", mce.Column)
	assert.Equal(t, "bar_0", mce.Chart)
}

func TestMap_Bar(t *testing.T) {
	bar := &chartspec.Bar{XY: chartspec.XY{X: "Region", Y: "Sales", Group: "Segment", ColorSequence: []string{"red", "#123456"}}}

	d, err := Map(salesTable(), bar, "bar_0", chartspec.DefaultFont())
	require.NoError(t, err)

	assert.Equal(t, "Bar Chart", d.Title)
	assert.True(t, d.ShowLegend)
	assert.Equal(t, chartspec.KindBar, d.Kind)
	require.Len(t, d.Traces, 2, "rows with a missing group are dropped")

	assert.Equal(t, "A", d.Traces[0]["name"])
	assert.Equal(t, []any{"East", "West"}, d.Traces[0]["x"])
	assert.Equal(t, []any{10.0, 20.0}, d.Traces[0]["y"])
	assert.Equal(t, map[string]any{"color": "#FF0000"}, d.Traces[0]["marker"])
	assert.Equal(t, map[string]any{"color": "#123456"}, d.Traces[1]["marker"])
	assert.Equal(t, "relative", d.Layout["barmode"])
}

func TestMap_MissingGroupDegrades(t *testing.T) {
	line := &chartspec.Line{XY: chartspec.XY{X: "Month", Y: "Sales", Group: "Nope"}}

	d, err := Map(salesTable(), line, "line_0", chartspec.DefaultFont())
	require.NoError(t, err)

	require.Len(t, d.Traces, 1)
	assert.Equal(t, "Sales", d.Traces[0]["name"])
	assert.Equal(t, "lines", d.Traces[0]["mode"])
	assert.Len(t, d.Traces[0]["x"], 4)
}

func TestMap_FontAndLegend(t *testing.T) {
	hide := false
	pie := &chartspec.Pie{
		Common: chartspec.Common{Title: "Share", Font: &chartspec.Font{Size: 20}, ShowLegend: &hide},
		Labels: "Region",
		Values: "Sales",
	}
	global := chartspec.Font{Family: "Verdana", Size: 12, Color: "navy"}

	d, err := Map(salesTable(), pie, "pie_0", global)
	require.NoError(t, err)

	assert.Equal(t, "Share", d.Title)
	assert.False(t, d.ShowLegend)
	assert.Equal(t, chartspec.Font{Family: "Verdana", Size: 20, Color: "navy"}, d.Font)
	assert.Equal(t, d.Font, d.Layout["font"])
	assert.Equal(t, map[string]any{"text": "Share"}, d.Layout["title"])
	assert.Equal(t, []any{"East", "West", "East", "North"}, d.Traces[0]["labels"])
}

func TestMap_WaterfallDefaultMeasure(t *testing.T) {
	doc, err := chartspec.Normalize([]byte(`{"charts": [
		{"chart": "pie", "labels": "Region", "values": "Sales"},
		{"chart": "waterfall", "x": ["Q1", "Q2"], "y": [100, -20]}
	]}`))
	require.NoError(t, err)

	d, err := Map(salesTable(), doc.Charts[1], "waterfall_1", doc.GlobalFont)
	require.NoError(t, err)

	require.Len(t, d.Traces, 1)
	assert.Equal(t, []string{"relative", "relative"}, d.Traces[0]["measure"])
	assert.Equal(t, []any{"Q1", "Q2"}, d.Traces[0]["x"])
	assert.Equal(t, []any{100.0, -20.0}, d.Traces[0]["y"])
}

func TestMap_WaterfallColumns(t *testing.T) {
	wf := &chartspec.Waterfall{
		X:       chartspec.Series{Column: "Region"},
		Y:       chartspec.Series{Column: "Sales"},
		Measure: []string{"absolute", "bogus"},
	}
	d, err := Map(salesTable(), wf, "waterfall_0", chartspec.DefaultFont())
	require.NoError(t, err)
	assert.Equal(t, []string{"absolute", "relative", "relative", "relative"}, d.Traces[0]["measure"])

	wf.Y = chartspec.Series{Column: "Profit"}
	_, err = Map(salesTable(), wf, "waterfall_0", chartspec.DefaultFont())
	var mce *chartspec.MissingColumnError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, "y", mce.Field)
}

func TestMap_Treemap(t *testing.T) {
	tm := &chartspec.Treemap{X: "Region", Y: "Sales", Group: "Segment"}

	d, err := Map(salesTable(), tm, "treemap_0", chartspec.DefaultFont())
	require.NoError(t, err)

	tr := d.Traces[0]
	assert.Equal(t, []string{"g0", "g0/0", "g0/1", "g1", "g1/2"}, tr["ids"])
	assert.Equal(t, []string{"A", "East", "West", "B", "East"}, tr["labels"])
	assert.Equal(t, []string{"", "g0", "g0", "", "g1"}, tr["parents"])
	assert.Equal(t, []float64{30, 10, 20, 30, 30}, tr["values"])

	flat, err := Map(salesTable(), &chartspec.Treemap{X: "Region", Y: "Sales"}, "treemap_0", chartspec.DefaultFont())
	require.NoError(t, err)
	assert.Equal(t, []string{"East", "West", "North"}, flat.Traces[0]["ids"])
	assert.Equal(t, []float64{40, 20, 40}, flat.Traces[0]["values"])
}

func TestMap_TreemapSlashesInCells(t *testing.T) {
	tbl := dataset.MustNew(
		dataset.NewColumn("Group", dataset.Text, []any{"a/b", "a"}),
		dataset.NewColumn("Item", dataset.Text, []any{"c", "b/c"}),
		dataset.NewColumn("Value", dataset.Numeric, []any{1.0, 2.0}),
	)

	d, err := Map(tbl, &chartspec.Treemap{X: "Item", Y: "Value", Group: "Group"}, "treemap_0", chartspec.DefaultFont())
	require.NoError(t, err)

	tr := d.Traces[0]
	assert.Equal(t, []string{"g0", "g0/0", "g1", "g1/1"}, tr["ids"], "no two nodes share an id")
	assert.Equal(t, []string{"", "g0", "", "g1"}, tr["parents"])
	assert.Equal(t, []string{"a/b", "c", "a", "b/c"}, tr["labels"])
	assert.Equal(t, []float64{1, 1, 2, 2}, tr["values"])
}

func TestMap_Bubble(t *testing.T) {
	b := &chartspec.Bubble{XY: chartspec.XY{X: "Month", Y: "Sales"}, Size: "Qty"}

	d, err := Map(salesTable(), b, "bubble_0", chartspec.DefaultFont())
	require.NoError(t, err)

	marker := d.Traces[0]["marker"].(map[string]any)
	assert.Equal(t, []any{1.0, 5.0, 2.0, 2.0}, marker["size"])
	assert.InDelta(t, 2*5.0/400, marker["sizeref"], 1e-12)

	b.Size = "Weight"
	_, err = Map(salesTable(), b, "bubble_0", chartspec.DefaultFont())
	assert.Error(t, err)
}

func TestMap_Area(t *testing.T) {
	opacity := 1.5
	area := &chartspec.Area{
		XY:            chartspec.XY{X: "Month", Y: "Sales"},
		Mode:          "percent",
		Opacity:       &opacity,
		LineSmoothing: true,
		SortX:         true,
	}

	d, err := Map(salesTable(), area, "area_0", chartspec.DefaultFont())
	require.NoError(t, err)

	tr := d.Traces[0]
	assert.Equal(t, []any{1.0, 2.0, 3.0, 4.0}, tr["x"])
	assert.Equal(t, []any{20.0, 30.0, 10.0, 40.0}, tr["y"])
	assert.Equal(t, "percent", tr["groupnorm"])
	assert.Equal(t, "one", tr["stackgroup"])
	assert.InDelta(t, 1.0, tr["opacity"], 0)
	assert.Equal(t, "spline", tr["line"].(map[string]any)["shape"])

	area.Opacity = nil
	area.Mode = ""
	d, err = Map(salesTable(), area, "area_0", chartspec.DefaultFont())
	require.NoError(t, err)
	assert.InDelta(t, DefaultOpacity, d.Traces[0]["opacity"], 0)
	assert.NotContains(t, d.Traces[0], "groupnorm")
}

func TestMap_Unsupported(t *testing.T) {
	_, err := Map(salesTable(), &chartspec.Unsupported{Name: "radar"}, "radar_0", chartspec.DefaultFont())
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Map(salesTable(), &chartspec.KPI{Metric: "Sales"}, "kpi_0", chartspec.DefaultFont())
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestMap_TemporalCellsAreStrings(t *testing.T) {
	tbl := dataset.MustNew(
		dataset.NewColumn("Day", dataset.Temporal, []any{time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}),
		dataset.NewColumn("Sales", dataset.Numeric, []any{1.0}),
	)
	d, err := Map(tbl, &chartspec.Line{XY: chartspec.XY{X: "Day", Y: "Sales"}}, "line_0", chartspec.DefaultFont())
	require.NoError(t, err)
	assert.Equal(t, []any{"2024-05-01"}, d.Traces[0]["x"])

	_, err = json.Marshal(d)
	assert.NoError(t, err)
}

func TestResolveColor(t *testing.T) {
	tests := map[string]string{
		"red":     "#FF0000",
		"Grey":    "#808080",
		"gray":    "#808080",
		"#abcdef": "#abcdef",
		"crimson": "#DC143C",
		"unknown": "#000000",
	}
	for in, want := range tests {
		assert.Equal(t, want, ResolveColor(in), in)
	}

	distinct := map[string]bool{}
	for _, hex := range namedColors {
		distinct[hex] = true
	}
	assert.Len(t, distinct, 21)
	assert.Equal(t, DefaultPalette, ResolveSequence(nil))
}

func TestDefaultTitle(t *testing.T) {
	assert.Equal(t, "Treemap Chart", DefaultTitle(chartspec.KindTreemap))
	assert.Equal(t, "Waterfall Chart", DefaultTitle(chartspec.KindWaterfall))
}

func TestMeasures(t *testing.T) {
	assert.Equal(t, []string{"total"}, Measures([]string{"total", "absolute"}, 1))
	assert.Empty(t, Measures(nil, 0))
}
