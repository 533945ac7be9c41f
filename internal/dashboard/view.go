// Package dashboard evaluates a session into a render-ready view.
//
// Evaluation is one synchronous pass:
//
//	global controls -> globally filtered table -> KPI cards ->
//	per-chart controls and tables -> descriptors -> layout placements
package dashboard

import (
	"errors"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapdash/internal/chartspec"
	"github.com/leapstack-labs/leapdash/internal/charts"
	"github.com/leapstack-labs/leapdash/internal/filter"
	"github.com/leapstack-labs/leapdash/internal/kpi"
	"github.com/leapstack-labs/leapdash/internal/layout"
	"github.com/leapstack-labs/leapdash/internal/metrics"
	"github.com/leapstack-labs/leapdash/internal/session"
)

// View is everything a page needs to draw one dashboard.
type View struct {
	SessionID  string
	DataName   string
	SpecOrigin string
	Layout     layout.Mode
	Font       chartspec.Font

	// TotalRows and Rows count the table before and after global filters.
	TotalRows int
	Rows      int

	Global  []filter.Control
	KPIs    []kpi.Card
	Tiles   []layout.Placement[Tile]
	Omitted []Omission

	// Err halts rendering; nothing else is set when it is.
	Err error
}

// Ready reports whether the view has something to draw.
func (v *View) Ready() bool {
	return v.Err == nil
}

// GridRows returns the number of tile rows.
func (v *View) GridRows() int {
	return layout.Rows(v.Tiles)
}

// Tile is one non-KPI chart with its own filter controls.
type Tile struct {
	ID       string
	Controls []filter.Control
	Chart    *charts.Descriptor
}

// Omission records an entry that produced no descriptor.
type Omission struct {
	ID     string
	Kind   chartspec.Kind
	Reason string
}

// ErrNoData is the view error of a session with nothing loaded.
var ErrNoData = errors.New("no dataset loaded")

// Evaluate builds the view of snap. It never fails: load errors are
// carried in View.Err and entries that cannot be drawn are listed in
// View.Omitted.
func Evaluate(snap session.Snapshot, logger *slog.Logger) *View {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	start := time.Now()
	defer func() { metrics.ObserveRender(time.Since(start)) }()

	v := &View{
		SessionID:  snap.ID,
		DataName:   snap.DataName,
		SpecOrigin: snap.SpecOrigin,
		Layout:     snap.Layout,
		Font:       chartspec.DefaultFont(),
	}
	switch {
	case snap.Err != nil:
		v.Err = snap.Err
		return v
	case snap.Table == nil:
		v.Err = ErrNoData
		return v
	}

	doc := snap.Document
	if doc == nil {
		doc = &chartspec.Document{GlobalFont: chartspec.DefaultFont()}
	}
	v.Font = doc.GlobalFont
	state := snap.Filters
	if state == nil {
		state = filter.NewState()
	}

	v.TotalRows = snap.Table.Len()
	v.Global = filter.Controls(snap.Table, doc.GlobalFilters, state.Global)
	filtered := filter.Apply(snap.Table, doc.GlobalFilters, filter.Effective(snap.Table, doc.GlobalFilters, state.Global))
	v.Rows = filtered.Len()

	kpis, others := doc.Partition()
	for i, k := range kpis {
		card := kpi.Compute(filtered, k)
		card.ID = filter.Identity(chartspec.KindKPI, i)
		card.Font = v.Font
		if k.Font != nil {
			card.Font = k.Font.Or(v.Font)
		}
		v.KPIs = append(v.KPIs, card)
	}

	var tiles []Tile
	for i, c := range others {
		id := filter.Identity(c.Kind(), i)
		cols := c.Base().Filters
		sel := filter.Effective(filtered, cols, state.Chart(id))

		t := filter.Apply(filtered, cols, sel)
		d, err := charts.Map(t, c, id, v.Font)
		if err != nil {
			logger.Debug("chart omitted", "id", id, "kind", c.Kind(), "reason", err)
			v.Omitted = append(v.Omitted, Omission{ID: id, Kind: c.Kind(), Reason: err.Error()})
			continue
		}
		tiles = append(tiles, Tile{
			ID:       id,
			Controls: filter.Controls(filtered, cols, sel),
			Chart:    d,
		})
	}
	v.Tiles = layout.Arrange(tiles, snap.Layout)

	logger.Debug("dashboard evaluated",
		"session", snap.ID,
		"rows", v.Rows,
		"kpis", len(v.KPIs),
		"charts", len(tiles),
		"omitted", len(v.Omitted))
	return v
}
