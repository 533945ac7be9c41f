package commands

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Styles holds the terminal styles of human-readable output. All styles
// are plain when the writer is not a terminal.
type Styles struct {
	Title   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
}

// NewStyles returns styles for w.
func NewStyles(w io.Writer) *Styles {
	if !isTerminal(w) {
		return plainStyles()
	}
	r := lipgloss.NewRenderer(w)
	return &Styles{
		Title:   r.NewStyle().Bold(true),
		Success: r.NewStyle().Foreground(lipgloss.Color("2")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Warning: r.NewStyle().Foreground(lipgloss.Color("3")),
		Info:    r.NewStyle().Foreground(lipgloss.Color("6")),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func plainStyles() *Styles {
	s := lipgloss.NewStyle()
	return &Styles{Title: s, Success: s, Error: s, Warning: s, Info: s, Muted: s}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec
}
