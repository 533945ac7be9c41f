package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(newConfigShowCommand())
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	var showSecrets bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration after merging defaults, leapdash.yaml,
LEAPDASH_* environment variables and flags. Nested keys are set from the
environment with a double underscore, e.g. LEAPDASH_LLM__MODEL.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			cfg := *cc.Cfg
			if !showSecrets && cfg.UI.SessionSecret != "" {
				cfg.UI.SessionSecret = "********"
			}

			if cfg.ConfigFile != "" {
				_, _ = fmt.Fprintln(cc.Out, cc.Styles.Muted.Render("# from "+cfg.ConfigFile))
			}
			enc := yaml.NewEncoder(cc.Out)
			enc.SetIndent(2)
			if err := enc.Encode(&cfg); err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			return enc.Close()
		},
	}
	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print the session secret")
	return cmd
}

