package commands

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdash/internal/chartspec"
	"github.com/leapstack-labs/leapdash/internal/dashboard"
	"github.com/leapstack-labs/leapdash/internal/dataset"
	"github.com/leapstack-labs/leapdash/internal/kpi"
	"github.com/leapstack-labs/leapdash/internal/layout"
	"github.com/leapstack-labs/leapdash/internal/session"
	"github.com/leapstack-labs/leapdash/internal/specsource"
)

// PreviewOptions holds options for the preview command.
type PreviewOptions struct {
	Rows int
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand() *cobra.Command {
	opts := &PreviewOptions{}

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show a dataset and the KPIs of its spec in the terminal",
		Long: `Load a dataset the way the dashboard does and print its inferred
column types and first rows. With --spec the KPI cards of the spec are
computed and printed too.`,
		Example: `  # Inspect a dataset
  leapdash preview --data sales.csv

  # Include the KPIs of a spec
  leapdash preview --data sales.csv --spec sales.json --rows 10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPreview(cmd, NewCommandContext(cmd), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Rows, "rows", "n", 5, "Number of rows to show")

	return cmd
}

func runPreview(cmd *cobra.Command, cc *CommandContext, opts *PreviewOptions) error {
	t, err := cc.LoadTable(cmd, cc.Cfg.Data)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cc.Out, "%s %s\n", cc.Styles.Title.Render("Dataset"), cc.Cfg.Data)
	renderColumns(cc.Out, t)
	renderRows(cc.Out, t, opts.Rows)

	if cc.Cfg.Spec == "" {
		return nil
	}
	doc, err := chartspec.ReadFile(cc.Cfg.Spec)
	if err != nil {
		return err
	}

	s := session.New("preview", layout.AutoGrid2)
	s.SetDataset(cc.Cfg.Data, filepath.Base(cc.Cfg.Data), cc.Cfg.Delimiter, t)
	s.SetDocument(cc.Cfg.Spec, specsource.OriginFile, doc)
	v := dashboard.Evaluate(s.Snapshot(), cc.Logger)
	if v.Err != nil {
		return v.Err
	}

	_, _ = fmt.Fprintf(cc.Out, "\n%s %s\n", cc.Styles.Title.Render("KPIs"), cc.Cfg.Spec)
	renderCards(cc.Out, v.KPIs)
	return nil
}

func renderColumns(w io.Writer, t *dataset.Table) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"column", "type", "values"})
	for _, name := range t.Columns() {
		col, _ := t.Column(name)
		tw.AppendRow(table.Row{name, col.Type.String(), col.NonMissing()})
	}
	tw.Render()
}

func renderRows(w io.Writer, t *dataset.Table, n int) {
	if t.Len() == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	head := t.Head(n)
	cols := head.Columns()

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)

	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	tw.AppendHeader(header)

	for r := 0; r < head.Len(); r++ {
		row := make(table.Row, len(cols))
		for i, name := range cols {
			col, _ := head.Column(name)
			row[i] = dataset.Key(col.Value(r))
		}
		tw.AppendRow(row)
	}
	tw.Render()
	_, _ = fmt.Fprintf(w, "(%d of %d rows)\n", head.Len(), t.Len())
}

func renderCards(w io.Writer, cards []kpi.Card) {
	if len(cards) == 0 {
		_, _ = fmt.Fprintln(w, "(no KPIs)")
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"id", "label", "value", "change"})
	for _, c := range cards {
		change := ""
		if c.Delta != nil {
			change = c.Delta.Display
		}
		tw.AppendRow(table.Row{c.ID, c.Label, c.Display, change})
	}
	tw.Render()
}
