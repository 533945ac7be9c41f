package dashboard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdash/internal/chartspec"
	"github.com/leapstack-labs/leapdash/internal/dataset"
	"github.com/leapstack-labs/leapdash/internal/filter"
	"github.com/leapstack-labs/leapdash/internal/layout"
	"github.com/leapstack-labs/leapdash/internal/llm"
	"github.com/leapstack-labs/leapdash/internal/session"
	"github.com/leapstack-labs/leapdash/internal/specsource"
	"github.com/leapstack-labs/leapdash/internal/testutil"
)

func salesTable() *dataset.Table {
	return dataset.MustNew(
		dataset.NewColumn("Segment", dataset.Text, []any{"A", "A", "B"}),
		dataset.NewColumn("Region", dataset.Text, []any{"East", "West", "East"}),
		dataset.NewColumn("Sales", dataset.Numeric, []any{10.0, 20.0, 30.0}),
	)
}

func salesDoc() *chartspec.Document {
	return &chartspec.Document{
		Charts: []chartspec.Chart{
			&chartspec.Bar{Common: chartspec.Common{Filters: []string{"Region"}}, XY: chartspec.XY{X: "Region", Y: "Sales"}},
			&chartspec.KPI{Spelling: chartspec.KindKPI, Metric: "Sales", Agg: "sum"},
			&chartspec.Bar{XY: chartspec.XY{X: "Part", Y: "Sales"}},
			&chartspec.Line{XY: chartspec.XY{X: "Region", Y: "Sales"}},
		},
		GlobalFilters: []string{"Segment"},
		GlobalFont:    chartspec.DefaultFont(),
	}
}

func loaded(t *testing.T) *session.Session {
	t.Helper()
	s := session.New("s1", layout.AutoGrid2)
	s.SetDataset("", "data.csv", "", salesTable())
	s.SetDocument("", specsource.OriginFile, salesDoc())
	return s
}

func TestEvaluate(t *testing.T) {
	s := loaded(t)
	s.SelectGlobal("Segment", "A")

	logger, rec := testutil.NewRecorder(t)
	v := Evaluate(s.Snapshot(), logger)
	require.True(t, v.Ready())

	omitted, ok := rec.Find("chart omitted")
	require.True(t, ok)
	assert.Equal(t, "bar_1", omitted.Attrs["id"])

	assert.Equal(t, 3, v.TotalRows)
	assert.Equal(t, 2, v.Rows)
	assert.Equal(t, []filter.Control{{Column: "Segment", Options: []string{"All", "A", "B"}, Selected: "A"}}, v.Global)

	require.Len(t, v.KPIs, 1)
	assert.Equal(t, "kpi_0", v.KPIs[0].ID)
	assert.Equal(t, "30.00", v.KPIs[0].Display)
	assert.Equal(t, chartspec.DefaultFont(), v.KPIs[0].Font)

	require.Len(t, v.Tiles, 2)
	assert.Equal(t, "bar_0", v.Tiles[0].Item.ID)
	assert.Equal(t, 0, v.Tiles[0].Col)
	assert.Equal(t, "line_2", v.Tiles[1].Item.ID)
	assert.Equal(t, 1, v.Tiles[1].Col)
	assert.Equal(t, 1, v.GridRows())

	require.Len(t, v.Omitted, 1)
	assert.Equal(t, "bar_1", v.Omitted[0].ID)
	assert.Contains(t, v.Omitted[0].Reason, "Part")
}

func TestEvaluate_ChartFiltersAreIsolated(t *testing.T) {
	s := loaded(t)
	s.SelectGlobal("Segment", "A")
	s.SelectChart("bar_0", "Region", "West")

	v := Evaluate(s.Snapshot(), nil)
	require.Len(t, v.Tiles, 2)

	bar := v.Tiles[0].Item
	assert.Equal(t, []filter.Control{{Column: "Region", Options: []string{"All", "East", "West"}, Selected: "West"}}, bar.Controls)
	assert.Equal(t, []any{"West"}, bar.Chart.Traces[0]["x"])

	line := v.Tiles[1].Item
	assert.Empty(t, line.Controls)
	assert.Equal(t, []any{"East", "West"}, line.Chart.Traces[0]["x"])

	assert.Equal(t, "30.00", v.KPIs[0].Display, "chart filters do not reach KPIs")
}

func TestEvaluate_VanishedChartSelectionActsAsAll(t *testing.T) {
	s := loaded(t)
	s.SelectChart("bar_0", "Region", "West")
	s.SelectGlobal("Segment", "B")

	v := Evaluate(s.Snapshot(), nil)
	require.NotEmpty(t, v.Tiles)

	bar := v.Tiles[0].Item
	assert.Equal(t, []filter.Control{{Column: "Region", Options: []string{"All", "East"}, Selected: filter.All}}, bar.Controls)
	assert.Equal(t, []any{"East"}, bar.Chart.Traces[0]["x"], "West no longer exists, so the chart is unfiltered")

	s.SelectGlobal("Segment", filter.All)
	v = Evaluate(s.Snapshot(), nil)
	bar = v.Tiles[0].Item
	assert.Equal(t, "West", bar.Controls[0].Selected, "the selection comes back once its value does")
	assert.Equal(t, []any{"West"}, bar.Chart.Traces[0]["x"])
}

func TestEvaluate_Layout(t *testing.T) {
	s := loaded(t)
	s.SetLayout(layout.FullWidth)

	v := Evaluate(s.Snapshot(), nil)
	require.Len(t, v.Tiles, 2)
	assert.Equal(t, 2, v.Tiles[0].Span)
	assert.Equal(t, 1, v.Tiles[1].Row)
}

func TestEvaluate_NotReady(t *testing.T) {
	empty := session.New("s1", layout.AutoGrid2)
	v := Evaluate(empty.Snapshot(), nil)
	assert.False(t, v.Ready())
	assert.ErrorIs(t, v.Err, ErrNoData)

	failed := loaded(t)
	failed.SetError(errors.New("boom"))
	v = Evaluate(failed.Snapshot(), nil)
	assert.EqualError(t, v.Err, "boom")
	assert.Empty(t, v.Tiles)
}

func TestEvaluate_NoSpecYet(t *testing.T) {
	s := session.New("s1", layout.AutoGrid2)
	s.SetDataset("", "data.csv", "", salesTable())

	v := Evaluate(s.Snapshot(), nil)
	require.True(t, v.Ready())
	assert.Empty(t, v.Tiles)
	assert.Equal(t, 3, v.Rows)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newService(t *testing.T, provider llm.Provider) *Service {
	logger := testutil.NewTestLogger(t)
	specs := specsource.New(specsource.Config{Provider: provider, Logger: logger})
	return NewService(dataset.NewLoader(logger), specs, logger)
}

const salesCSV = "Segment,Region,Sales\nA,East,10\nA,West,20\nB,East,30\n"

func TestService_OpenAndRefresh(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "sales.csv", salesCSV)
	spec := writeFile(t, dir, "spec.json", `[{"chart": "kpi", "metric": "Sales"}]`)

	svc := newService(t, nil)
	s := session.New("s1", layout.AutoGrid2)
	require.NoError(t, svc.Open(context.Background(), s, session.Source{DataPath: data, SpecPath: spec}))

	v := svc.View(s)
	require.True(t, v.Ready())
	assert.Equal(t, "sales.csv", v.DataName)
	assert.Equal(t, specsource.OriginFile, v.SpecOrigin)
	require.Len(t, v.KPIs, 1)
	assert.Equal(t, "60.00", v.KPIs[0].Display)

	changed, err := svc.Refresh(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, changed)

	s.SelectGlobal("Segment", "A")
	writeFile(t, dir, "spec.json", `{"charts": [{"chart": "bar", "x": "Region", "y": "Sales"}], "global_filters": ["Segment"]}`)
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(spec, later, later))

	changed, err = svc.Refresh(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, changed)

	v = svc.View(s)
	assert.Empty(t, v.KPIs)
	require.Len(t, v.Tiles, 1)
	assert.Equal(t, "All", v.Global[0].Selected, "a reload clears selections")
}

func TestService_OpenMissingData(t *testing.T) {
	svc := newService(t, nil)
	s := session.New("s1", layout.AutoGrid2)

	err := svc.Open(context.Background(), s, session.Source{DataPath: filepath.Join(t.TempDir(), "none.csv")})
	var nfe *dataset.NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.ErrorAs(t, svc.View(s).Err, &nfe)

	assert.ErrorIs(t, svc.Open(context.Background(), s, session.Source{}), ErrNoData)
}

func TestService_Uploads(t *testing.T) {
	provider := llm.NewMockProvider(llm.MockResponse{Content: `[{"chart": "pie", "labels": "Region", "values": "Sales"}]`})
	svc := newService(t, provider)
	s := session.New("s1", layout.AutoGrid2)

	require.NoError(t, svc.UploadDataset(context.Background(), s, "upload.csv", strings.NewReader(salesCSV)))
	v := svc.View(s)
	require.True(t, v.Ready())
	assert.Equal(t, specsource.OriginGenerated, v.SpecOrigin, "a dataset without a spec gets a generated one")
	require.Len(t, v.Tiles, 1)
	assert.Equal(t, chartspec.KindPie, v.Tiles[0].Item.Chart.Kind)

	require.NoError(t, svc.UploadSpec(s, "spec.json", []byte(`[{"chart": "big_number", "metric": "Sales", "agg": "count"}]`)))
	v = svc.View(s)
	assert.Equal(t, specsource.OriginUpload, v.SpecOrigin)
	require.Len(t, v.KPIs, 1)
	assert.Equal(t, "3.00", v.KPIs[0].Display)

	var sie *chartspec.SpecInvalidError
	require.ErrorAs(t, svc.UploadSpec(s, "bad.json", []byte(`{`)), &sie)
	assert.Len(t, svc.View(s).KPIs, 1, "a rejected upload keeps the current spec")
}

func TestService_Regenerate(t *testing.T) {
	provider := llm.NewMockProvider(llm.MockResponse{Content: "```json\n[{\"chart\": \"line\", \"x\": \"Region\", \"y\": \"Sales\"}]\n```"})
	svc := newService(t, provider)

	assert.ErrorIs(t, svc.Regenerate(context.Background(), session.New("empty", layout.AutoGrid2), ""), ErrNoData)

	s := loaded(t)
	require.NoError(t, svc.Regenerate(context.Background(), s, "llama3"))

	v := svc.View(s)
	assert.Equal(t, specsource.OriginGenerated, v.SpecOrigin)
	require.Len(t, v.Tiles, 1)
	assert.Equal(t, "line_0", v.Tiles[0].Item.ID)
	assert.Equal(t, "llama3", provider.Calls()[0].Model)
}
