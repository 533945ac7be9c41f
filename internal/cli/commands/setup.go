package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdash/internal/cli/config"
	"github.com/leapstack-labs/leapdash/internal/dashboard"
	"github.com/leapstack-labs/leapdash/internal/dataset"
	"github.com/leapstack-labs/leapdash/internal/llm"
	"github.com/leapstack-labs/leapdash/internal/specsource"
	"github.com/leapstack-labs/leapdash/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Out    io.Writer
	Styles *Styles
}

// NewCommandContext collects the config and logger stored by the root
// command.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	out := cmd.OutOrStdout()
	return &CommandContext{
		Cfg:    config.GetConfig(cmd.Context()),
		Logger: config.GetLogger(cmd.Context()),
		Out:    out,
		Styles: NewStyles(out),
	}
}

// Provider returns the generation service.
func (c *CommandContext) Provider() llm.Provider {
	return llm.NewOllamaProvider(
		llm.WithBaseURL(c.Cfg.LLM.BaseURL),
		llm.WithModel(c.Cfg.LLM.Model),
		llm.WithLogger(c.Logger),
	)
}

// OpenHistory opens the generated spec history, creating its directory.
// The caller closes the store.
func (c *CommandContext) OpenHistory() (*state.SQLiteStore, error) {
	dir := filepath.Dir(c.Cfg.StatePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	store := state.NewSQLiteStore()
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open history %s: %w", c.Cfg.StatePath, err)
	}
	return store, nil
}

// SpecLoader builds a spec loader recording into history, which may be nil.
func (c *CommandContext) SpecLoader(history specsource.Recorder) *specsource.Loader {
	return specsource.New(specsource.Config{
		Provider:    c.Provider(),
		Model:       c.Cfg.LLM.Model,
		History:     history,
		PreviewRows: c.Cfg.LLM.PreviewRows,
		Logger:      c.Logger,
	})
}

// Service builds the dashboard service with its history. The returned
// cleanup closes the history and must be called.
func (c *CommandContext) Service() (*dashboard.Service, func(), error) {
	history, err := c.OpenHistory()
	if err != nil {
		return nil, nil, err
	}
	svc := dashboard.NewService(dataset.NewLoader(c.Logger), c.SpecLoader(history), c.Logger)
	return svc, func() { _ = history.Close() }, nil
}

// LoadTable reads the dataset at path with the configured delimiter.
func (c *CommandContext) LoadTable(cmd *cobra.Command, path string) (*dataset.Table, error) {
	if path == "" {
		return nil, fmt.Errorf("no dataset given\nHint: pass --data or set data in leapdash.yaml")
	}
	return dataset.NewLoader(c.Logger).LoadFile(cmd.Context(), path, dataset.LoadOptions{Delimiter: c.Cfg.Delimiter})
}
