package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdash/internal/launcher"
)

// NewLaunchCommand creates the launch command.
func NewLaunchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Start the dashboard server and open it in a browser",
		Long: `Run "leapdash serve" as a child process, wait for it to come up and
open the browser on the dashboard with the inputs in the page URL.

The command returns when the server exits or on Ctrl+C, which also stops
the server.`,
		Example: `  # Launch on a dataset and spec
  leapdash launch --data sales.csv --spec sales.json

  # Give a slow machine more time before opening the browser
  leapdash launch --data sales.csv --delay 5s`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			cfg := cc.Cfg

			var args []string
			if cfg.ConfigFile != "" {
				args = append(args, "--config", cfg.ConfigFile)
			}
			return launcher.Run(cmd.Context(), launcher.Config{
				Args:     args,
				Data:     cfg.Data,
				Spec:     cfg.Spec,
				Host:     cfg.UI.Host,
				Port:     cfg.UI.Port,
				BasePath: cfg.UI.BasePath,
				Delay:    cfg.Launch.Delay,
				Stdout:   cmd.OutOrStdout(),
				Stderr:   cmd.ErrOrStderr(),
				Logger:   cc.Logger,
			})
		},
	}

	cmd.Flags().String("host", launcher.DefaultHost, "Interface the server listens on")
	cmd.Flags().Int("port", launcher.DefaultPort, "Port of the server")
	cmd.Flags().String("base-path", "", "URL path prefix of the dashboard")
	cmd.Flags().Duration("delay", launcher.DefaultDelay, "Wait before opening the browser")

	return cmd
}
