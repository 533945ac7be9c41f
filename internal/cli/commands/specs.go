package commands

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdash/internal/specapi"
)

// SpecsServeOptions holds options for the specs serve command.
type SpecsServeOptions struct {
	Dir  string
	Host string
	Port int
}

// NewSpecsCommand creates the specs command group.
func NewSpecsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "specs",
		Short: "Work with chart spec files",
	}
	cmd.AddCommand(newSpecsServeCommand())
	return cmd
}

func newSpecsServeCommand() *cobra.Command {
	opts := &SpecsServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve spec files over HTTP",
		Long: `Serve the JSON spec files of a directory.

GET /json/<name> returns <dir>/<name>.json when it holds valid JSON,
404 when it does not exist and 400 when it is not JSON.`,
		Example: `  # Serve ./specs on port 5000
  leapdash specs serve

  # Serve another directory
  leapdash specs serve --dir dashboards --port 8000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			dir := opts.Dir
			if !cmd.Flags().Changed("dir") && cc.Cfg.SpecDir != "" {
				dir = cc.Cfg.SpecDir
			}
			return runSpecsServe(cmd.Context(), cc, dir, net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)))
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "specs", "Directory holding <name>.json files")
	cmd.Flags().StringVar(&opts.Host, "host", "127.0.0.1", "Interface to listen on")
	cmd.Flags().IntVar(&opts.Port, "port", specapi.DefaultPort, "Port to serve on")

	return cmd
}

func runSpecsServe(ctx context.Context, cc *CommandContext, dir, addr string) error {
	ready := make(chan string, 1)
	go func() {
		select {
		case bound := <-ready:
			_, _ = fmt.Fprintf(cc.Out, "%s http://%s/json/<name>\n", cc.Styles.Success.Render("Serving "+dir+" at"), bound)
		case <-ctx.Done():
		}
	}()
	return specapi.Serve(ctx, addr, dir, cc.Logger, ready)
}
