package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/leapdash/internal/layout"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.UI.Port < 0 || c.UI.Port > 65535 {
		return fmt.Errorf("ui.port must be between 0 and 65535, got %d", c.UI.Port)
	}
	if c.UI.Layout != "" && !layout.Valid(c.UI.Layout) {
		names := make([]string, len(layout.Modes))
		for i, m := range layout.Modes {
			names[i] = string(m)
		}
		return fmt.Errorf("ui.layout %q is not one of %s", c.UI.Layout, strings.Join(names, ", "))
	}
	if c.LLM.PreviewRows <= 0 {
		return fmt.Errorf("llm.preview_rows must be positive, got %d", c.LLM.PreviewRows)
	}
	if c.UI.SessionIdle <= 0 {
		return fmt.Errorf("ui.session_idle must be positive, got %s", c.UI.SessionIdle)
	}
	if c.Launch.Delay < 0 {
		return fmt.Errorf("launch.delay must not be negative, got %s", c.Launch.Delay)
	}
	if utf8.RuneCountInString(c.Delimiter) > 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("log_format must be %q or %q, got %q", LogFormatText, LogFormatJSON, c.LogFormat)
	}
	return nil
}
