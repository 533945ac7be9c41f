package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdash/internal/chartspec"
)

// GenerateOptions holds options for the generate command.
type GenerateOptions struct {
	Out string
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	opts := &GenerateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a chart spec for a dataset",
		Long: `Ask the configured language model for a chart spec describing a
dataset. The prompt holds the column names, their types and the first
rows. The reply is sanitized and normalized before it is written, and
every attempt is recorded in the spec history.`,
		Example: `  # Print a spec for sales.csv
  leapdash generate --data sales.csv

  # Write it to a file with another model
  leapdash generate --data sales.csv --model llama3 --out sales.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, NewCommandContext(cmd), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "O", "", "Write the spec to this file instead of stdout")
	cmd.Flags().String("model", "", "Model to generate with")

	return cmd
}

func runGenerate(cmd *cobra.Command, cc *CommandContext, opts *GenerateOptions) error {
	t, err := cc.LoadTable(cmd, cc.Cfg.Data)
	if err != nil {
		return err
	}

	history, err := cc.OpenHistory()
	if err != nil {
		return err
	}
	defer func() { _ = history.Close() }()

	res, err := cc.SpecLoader(history).Generate(cmd.Context(), t, cc.Cfg.Data, "")
	if err != nil {
		return err
	}

	data, err := chartspec.Marshal(res.Document)
	if err != nil {
		return fmt.Errorf("failed to encode spec: %w", err)
	}
	data = append(data, '\n')

	summary := fmt.Sprintf("Generated %d charts (history id %s)", len(res.Document.Charts), res.GenerationID)
	if opts.Out == "" {
		if _, err := cc.Out.Write(data); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), summary)
		return nil
	}

	if err := os.WriteFile(opts.Out, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.Out, err)
	}
	_, _ = fmt.Fprintf(cc.Out, "%s -> %s\n", cc.Styles.Success.Render(summary), opts.Out)
	return nil
}
