// Package cli provides the command-line interface for LeapDash.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdash/internal/cli/commands"
	"github.com/leapstack-labs/leapdash/internal/cli/config"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile string
		quiet   bool
	)

	rootCmd := &cobra.Command{
		Use:   "leapdash",
		Short: "LeapDash - chart dashboards from CSV files",
		Long: `LeapDash renders an interactive dashboard from a delimited data file
and a JSON chart spec.

The spec lists KPI cards and charts (bar, line, pie, treemap, bubble,
waterfall, area) with optional per-chart and global filters. When no
usable spec is given, one is generated from the dataset by a local
language model.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			logger := config.NewLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.Verbose, quiet)
			ctx := config.WithConfig(cmd.Context(), cfg)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			if cfg.ConfigFile != "" {
				logger.Debug("using config file", "path", cfg.ConfigFile)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set version template
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Built with Go and DuckDB
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: leapdash.yaml, searched upward)")
	rootCmd.PersistentFlags().StringP("data", "d", "", "Path to the delimited data file")
	rootCmd.PersistentFlags().StringP("spec", "s", "", "Path to the JSON chart spec")
	rootCmd.PersistentFlags().String("delimiter", "", "Field separator (default: detected)")
	rootCmd.PersistentFlags().String("spec-dir", "", "Directory of spec files served under /json/{name}")
	rootCmd.PersistentFlags().String("state", "", "Path to the generated spec history database")
	rootCmd.PersistentFlags().String("llm-url", "", "Base URL of the Ollama service")
	rootCmd.PersistentFlags().Int("preview-rows", 0, "Dataset rows included in a generation prompt")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.LogFormatText, config.LogFormatJSON}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.MarkPersistentFlagFilename("data", "csv", "tsv", "txt")
	_ = rootCmd.MarkPersistentFlagFilename("spec", "json")

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version, GitCommit, BuildDate))
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewLaunchCommand())
	rootCmd.AddCommand(commands.NewSpecsCommand())
	rootCmd.AddCommand(commands.NewGenerateCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewPreviewCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Print a completion script for the given shell.

  bash:        source <(leapdash completion bash)
  zsh:         leapdash completion zsh > "${fpath[1]}/_leapdash"
  fish:        leapdash completion fish > ~/.config/fish/completions/leapdash.fish
  powershell:  leapdash completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
