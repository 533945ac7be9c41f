package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdash/internal/launcher"
	"github.com/leapstack-labs/leapdash/internal/layout"
	"github.com/leapstack-labs/leapdash/internal/session"
	"github.com/leapstack-labs/leapdash/internal/ui"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	NoBrowser bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server",
		Long: `Start a local web server rendering an interactive dashboard.

The dataset and spec given with --data and --spec are what a new browser
session opens. A page URL may name others with ?csv=...&json=...; when
the spec is missing or invalid one is generated from the dataset.

With --watch, edits to the dataset or spec files refresh open pages.`,
		Example: `  # Serve a dataset with its spec
  leapdash serve --data sales.csv --spec sales.json

  # Generate the spec on first load, serve on another port
  leapdash serve --data sales.csv --port 9000

  # Serve under a path prefix without opening a browser
  leapdash serve --base-path /dash --no-browser`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().String("host", launcher.DefaultHost, "Interface to listen on")
	cmd.Flags().Int("port", launcher.DefaultPort, "Port to serve on")
	cmd.Flags().String("base-path", "", "URL path prefix of the dashboard")
	cmd.Flags().Bool("watch", true, "Refresh pages when input files change")
	cmd.Flags().String("layout", string(layout.AutoGrid2), "Initial chart layout")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")

	_ = cmd.RegisterFlagCompletionFunc("layout", completeLayouts)

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cc := NewCommandContext(cmd)
	cfg := cc.Cfg

	svc, cleanup, err := cc.Service()
	if err != nil {
		return err
	}
	defer cleanup()

	server := ui.NewServer(ui.Config{
		Service: svc,
		Defaults: session.Source{
			DataPath:  cfg.Data,
			SpecPath:  cfg.Spec,
			Delimiter: cfg.Delimiter,
		},
		Layout:        layout.ParseMode(cfg.UI.Layout),
		Host:          cfg.UI.Host,
		Port:          cfg.UI.Port,
		BasePath:      cfg.UI.BasePath,
		Watch:         cfg.UI.Watch,
		SpecDir:       cfg.SpecDir,
		SessionSecret: cfg.UI.SessionSecret,
		SessionIdle:   cfg.UI.SessionIdle,
		Logger:        cc.Logger,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	ready := make(chan struct{})
	go func() {
		select {
		case <-ready:
		case <-ctx.Done():
			return
		}
		_, _ = fmt.Fprintf(cc.Out, "%s %s\n", cc.Styles.Success.Render("Dashboard running at"), server.URL())
		_, _ = fmt.Fprintln(cc.Out, cc.Styles.Muted.Render("Press Ctrl+C to stop"))
		if cfg.UI.AutoOpen && !opts.NoBrowser {
			if err := launcher.OpenBrowser(server.URL()); err != nil {
				cc.Logger.Warn("failed to open browser", "error", err)
			}
		}
	}()

	return server.Serve(ctx, ready)
}

func completeLayouts(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	names := make([]string, len(layout.Modes))
	for i, m := range layout.Modes {
		names[i] = string(m)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
