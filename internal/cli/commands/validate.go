package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdash/internal/chartspec"
	"github.com/leapstack-labs/leapdash/internal/dashboard"
	"github.com/leapstack-labs/leapdash/internal/filter"
	"github.com/leapstack-labs/leapdash/internal/layout"
	"github.com/leapstack-labs/leapdash/internal/session"
	"github.com/leapstack-labs/leapdash/internal/specsource"
)

// ErrValidationFailed is returned when a spec has entries that cannot be drawn.
var ErrValidationFailed = errors.New("validation failed")

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <spec.json>",
		Short: "Check a chart spec, optionally against a dataset",
		Long: `Normalize a chart spec and list its entries.

With --data the spec is evaluated against the dataset like the dashboard
would: entries naming missing columns or unsupported chart kinds are
reported, as are KPIs without a value. The command fails when any entry
cannot be drawn.`,
		Example: `  # Check that a spec parses
  leapdash validate sales.json

  # Check it against its dataset
  leapdash validate sales.json --data sales.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, NewCommandContext(cmd), args[0])
		},
	}
	return cmd
}

func runValidate(cmd *cobra.Command, cc *CommandContext, specPath string) error {
	doc, err := chartspec.ReadFile(specPath)
	if err != nil {
		return err
	}
	st := cc.Styles
	out := cc.Out

	kpis, others := doc.Partition()
	_, _ = fmt.Fprintf(out, "%s %s\n", st.Title.Render("Spec"), specPath)
	_, _ = fmt.Fprintf(out, "  %d KPIs, %d charts\n", len(kpis), len(others))
	if len(doc.GlobalFilters) > 0 {
		_, _ = fmt.Fprintf(out, "  global filters: %v\n", doc.GlobalFilters)
	}
	for i, c := range others {
		id := filter.Identity(c.Kind(), i)
		if _, ok := c.(*chartspec.Unsupported); ok {
			_, _ = fmt.Fprintf(out, "  %s %s\n", st.Warning.Render("unsupported"), id)
			continue
		}
		_, _ = fmt.Fprintf(out, "  %s %s\n", st.Muted.Render("chart"), id)
	}

	if cc.Cfg.Data == "" {
		return nil
	}

	t, err := cc.LoadTable(cmd, cc.Cfg.Data)
	if err != nil {
		return err
	}
	s := session.New("validate", layout.AutoGrid2)
	s.SetDataset(cc.Cfg.Data, filepath.Base(cc.Cfg.Data), cc.Cfg.Delimiter, t)
	s.SetDocument(specPath, specsource.OriginFile, doc)
	v := dashboard.Evaluate(s.Snapshot(), cc.Logger)
	if v.Err != nil {
		return v.Err
	}

	_, _ = fmt.Fprintf(out, "%s %s (%d rows)\n", st.Title.Render("Against"), cc.Cfg.Data, v.TotalRows)
	for _, col := range doc.GlobalFilters {
		if !t.Has(col) {
			_, _ = fmt.Fprintf(out, "  %s global filter %q is not a column\n", st.Warning.Render("warning"), col)
		}
	}
	for _, card := range v.KPIs {
		if !card.Defined() {
			_, _ = fmt.Fprintf(out, "  %s %s %q has no value\n", st.Warning.Render("warning"), card.ID, card.Label)
		}
	}
	for _, o := range v.Omitted {
		_, _ = fmt.Fprintf(out, "  %s %s: %s\n", st.Error.Render("omitted"), o.ID, o.Reason)
	}

	if len(v.Omitted) > 0 {
		return fmt.Errorf("%w: %d of %d charts cannot be drawn", ErrValidationFailed, len(v.Omitted), len(others))
	}
	_, _ = fmt.Fprintf(out, "  %s %d KPIs and %d charts can be drawn\n", st.Success.Render("ok"), len(v.KPIs), len(v.Tiles))
	return nil
}
