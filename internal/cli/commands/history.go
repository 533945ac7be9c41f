package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdash/internal/state"
)

// NewHistoryCommand creates the history command group.
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect generated specs",
		Long: `Every call to the generation service is recorded with its prompt,
the raw reply, the normalized spec and the error of a failed attempt.`,
	}
	cmd.AddCommand(newHistoryListCommand(), newHistoryShowCommand())
	return cmd
}

func newHistoryListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List generation attempts, newest first",
		Example: `  leapdash history list --limit 5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			store, err := cc.OpenHistory()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			renderHistory(cc.Out, entries)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries (0 for all)")
	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	var prompt bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one generation attempt",
		Example: `  # Show the spec and reply of an attempt
  leapdash history show 3f2c...

  # Include the prompt that was sent
  leapdash history show 3f2c... --prompt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			store, err := cc.OpenHistory()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			g, err := store.Get(cmd.Context(), args[0])
			if errors.Is(err, state.ErrNotFound) {
				return fmt.Errorf("no generated spec with id %s\nHint: run 'leapdash history list' to see ids", args[0])
			}
			if err != nil {
				return err
			}
			renderGenerated(cc, g, prompt)
			return nil
		},
	}
	cmd.Flags().BoolVar(&prompt, "prompt", false, "Include the prompt")
	return cmd
}

func renderHistory(w io.Writer, entries []*state.GeneratedSpec) {
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "(no generated specs)")
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"id", "created", "model", "source", "status", "error"})
	for _, g := range entries {
		tw.AppendRow(table.Row{
			g.ID,
			g.CreatedAt.Local().Format(time.DateTime),
			g.Model,
			g.Source,
			g.Status,
			truncateOneLine(g.Error, 60),
		})
	}
	tw.Render()
}

func renderGenerated(cc *CommandContext, g *state.GeneratedSpec, withPrompt bool) {
	st := cc.Styles
	w := cc.Out

	status := st.Success.Render(g.Status)
	if g.Status != state.StatusOK {
		status = st.Error.Render(g.Status)
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", st.Title.Render("Generation"), g.ID)
	_, _ = fmt.Fprintf(w, "  created: %s\n", g.CreatedAt.Local().Format(time.DateTime))
	_, _ = fmt.Fprintf(w, "  model:   %s\n", g.Model)
	_, _ = fmt.Fprintf(w, "  source:  %s\n", g.Source)
	_, _ = fmt.Fprintf(w, "  status:  %s\n", status)
	if g.Error != "" {
		_, _ = fmt.Fprintf(w, "  error:   %s\n", g.Error)
	}

	section := func(title, body string) {
		if body == "" {
			return
		}
		_, _ = fmt.Fprintf(w, "\n%s\n%s\n", st.Title.Render(title), strings.TrimRight(body, "\n"))
	}
	if withPrompt {
		section("Prompt", g.Prompt)
	}
	section("Spec", g.Document)
	if g.Document == "" {
		section("Reply", g.Response)
	}
}

func truncateOneLine(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
