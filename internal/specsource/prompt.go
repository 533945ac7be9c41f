package specsource

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapdash/internal/dataset"
)

const exampleSpec = `{
  "global_filters": {"Segment": [], "Region": []},
  "charts": [
    {"chart": "kpi", "label": "Total Sales", "metric": "Sales", "agg": "sum"},
    {"chart": "bar", "x": "Part", "y": "Sales"}
  ]
}`

// BuildPrompt asks for a chart spec matching the example shape, given the
// first rows of t and its column types.
func BuildPrompt(t *dataset.Table, rows int) (string, error) {
	preview, err := json.MarshalIndent(t.Records(rows), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode preview: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a chart specification assistant.\n")
	b.WriteString("Return only a JSON document like:\n")
	b.WriteString(exampleSpec)
	b.WriteString("\nSupported chart kinds: kpi, bar, line, pie, treemap, bubble, waterfall, area.\n")
	b.WriteString("Columns:\n")
	for _, name := range t.Columns() {
		col, _ := t.Column(name)
		fmt.Fprintf(&b, "- %s (%s)\n", name, col.Type)
	}
	b.WriteString("Data Preview:\n")
	b.Write(preview)
	b.WriteString("\n")
	return b.String(), nil
}
