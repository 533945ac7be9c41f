// Package config provides configuration management for the LeapDash CLI.
package config

import (
	"time"

	"github.com/leapstack-labs/leapdash/internal/launcher"
	"github.com/leapstack-labs/leapdash/internal/layout"
	"github.com/leapstack-labs/leapdash/internal/llm"
	"github.com/leapstack-labs/leapdash/internal/specsource"
)

// UIConfig holds configuration for the dashboard server.
type UIConfig struct {
	Host          string `koanf:"host" yaml:"host"`
	Port          int    `koanf:"port" yaml:"port"`
	BasePath      string `koanf:"base_path" yaml:"base_path"`
	AutoOpen      bool   `koanf:"auto_open" yaml:"auto_open"`
	Watch         bool   `koanf:"watch" yaml:"watch"`
	Layout        string `koanf:"layout" yaml:"layout"`
	SessionSecret string `koanf:"session_secret" yaml:"session_secret"`
	// SessionIdle is how long an unused browser session keeps its data.
	SessionIdle time.Duration `koanf:"session_idle" yaml:"session_idle"`
}

// LLMConfig holds configuration for spec generation.
type LLMConfig struct {
	BaseURL     string `koanf:"base_url" yaml:"base_url"`
	Model       string `koanf:"model" yaml:"model"`
	PreviewRows int    `koanf:"preview_rows" yaml:"preview_rows"`
}

// LaunchConfig holds configuration for the launch command.
type LaunchConfig struct {
	Delay time.Duration `koanf:"delay" yaml:"delay"`
}

// Config holds all CLI configuration options.
type Config struct {
	Data      string `koanf:"data" yaml:"data"`
	Spec      string `koanf:"spec" yaml:"spec"`
	Delimiter string `koanf:"delimiter" yaml:"delimiter"`
	SpecDir   string `koanf:"spec_dir" yaml:"spec_dir"`
	StatePath string `koanf:"state_path" yaml:"state_path"`
	Verbose   bool   `koanf:"verbose" yaml:"verbose"`
	LogFormat string `koanf:"log_format" yaml:"log_format"`

	UI     UIConfig     `koanf:"ui" yaml:"ui"`
	LLM    LLMConfig    `koanf:"llm" yaml:"llm"`
	Launch LaunchConfig `koanf:"launch" yaml:"launch"`

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `koanf:"-" yaml:"-"`
}

// Default configuration values.
const (
	DefaultStateFile     = ".leapdash/history.db"
	DefaultLogFormat     = "text"
	DefaultSessionSecret = "leapdash-dev-secret-change-in-production" //nolint:gosec
	DefaultSessionIdle   = 12 * time.Hour
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// defaults returns the lowest-priority configuration layer.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"state_path":        DefaultStateFile,
		"verbose":           false,
		"log_format":        DefaultLogFormat,
		"ui.host":           launcher.DefaultHost,
		"ui.port":           launcher.DefaultPort,
		"ui.base_path":      "",
		"ui.auto_open":      true,
		"ui.watch":          true,
		"ui.layout":         string(layout.AutoGrid2),
		"ui.session_secret": DefaultSessionSecret,
		"ui.session_idle":   DefaultSessionIdle.String(),
		"llm.base_url":      llm.DefaultOllamaURL,
		"llm.model":         llm.DefaultOllamaModel,
		"llm.preview_rows":  specsource.DefaultPreviewRows,
		"launch.delay":      launcher.DefaultDelay.String(),
	}
}
