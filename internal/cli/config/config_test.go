package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("data", "", "")
	fs.String("state", "", "")
	fs.Int("port", 0, "")
	fs.String("model", "", "")
	fs.Duration("delay", 0, "")
	fs.Bool("no-browser", false, "")
	return fs
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "leapdash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.UI.Host)
	assert.Equal(t, 8050, cfg.UI.Port)
	assert.Equal(t, "auto-grid-2", cfg.UI.Layout)
	assert.True(t, cfg.UI.AutoOpen)
	assert.True(t, cfg.UI.Watch)
	assert.Equal(t, DefaultSessionIdle, cfg.UI.SessionIdle)
	assert.Equal(t, "codellama", cfg.LLM.Model)
	assert.Equal(t, 5, cfg.LLM.PreviewRows)
	assert.Equal(t, 3*time.Second, cfg.Launch.Delay)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, filepath.Join(dir, ".leapdash", "history.db"), cfg.StatePath)
	assert.Empty(t, cfg.ConfigFile)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
data: data/sales.csv
ui:
  port: 9000
  layout: grid-2x2
llm:
  model: llama3
  preview_rows: 8
`)
	sub := filepath.Join(dir, "nested", "deeper")
	require.NoError(t, os.MkdirAll(sub, 0750))
	t.Chdir(sub)

	t.Setenv("LEAPDASH_LLM__MODEL", "mistral")
	t.Setenv("LEAPDASH_UI__PORT", "9100")

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--port", "9200", "--no-browser"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "leapdash.yaml"), cfg.ConfigFile, "found by upward search")
	assert.Equal(t, filepath.Join(dir, "data", "sales.csv"), cfg.Data, "file paths anchor at the config dir")
	assert.Equal(t, "grid-2x2", cfg.UI.Layout)
	assert.Equal(t, 8, cfg.LLM.PreviewRows)
	assert.Equal(t, "mistral", cfg.LLM.Model, "env beats file")
	assert.Equal(t, 9200, cfg.UI.Port, "flag beats env")
	assert.True(t, cfg.UI.AutoOpen, "command-only flags are not config keys")
}

func TestLoad_UnchangedFlagsDoNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "ui:\n  port: 9000\n")
	t.Chdir(t.TempDir())

	flags := newFlags()
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.UI.Port)
}

func TestLoad_FlagPathsStayRelativeToCWD(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "data: from-file.csv\n")
	t.Chdir(t.TempDir())

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--data", "local.csv", "--state", "h.db", "--delay", "250ms"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "local.csv", cfg.Data)
	assert.Equal(t, "h.db", cfg.StatePath)
	assert.Equal(t, 250*time.Millisecond, cfg.Launch.Delay)
}

func TestLoad_Errors(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")

	bad := writeConfig(t, t.TempDir(), "ui: [not, a, map\n")
	_, err = Load(bad, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")

	invalid := writeConfig(t, t.TempDir(), "ui:\n  layout: spiral\n")
	_, err = Load(invalid, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ui.layout")
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"LEAPDASH_DATA":               "data",
		"LEAPDASH_SPEC_DIR":           "spec_dir",
		"LEAPDASH_UI__BASE_PATH":      "ui.base_path",
		"LEAPDASH_LLM__BASE_URL":      "llm.base_url",
		"LEAPDASH_LAUNCH__DELAY":      "launch.delay",
		"LEAPDASH_UI__SESSION_SECRET": "ui.session_secret",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			LogFormat: LogFormatText,
			UI:        UIConfig{Port: 8050, Layout: "full-width", SessionIdle: time.Hour},
			LLM:       LLMConfig{PreviewRows: 5},
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		errSubstr string
	}{
		{"valid", func(*Config) {}, ""},
		{"port zero picks a free port", func(c *Config) { c.UI.Port = 0 }, ""},
		{"port too large", func(c *Config) { c.UI.Port = 70000 }, "ui.port"},
		{"negative port", func(c *Config) { c.UI.Port = -1 }, "ui.port"},
		{"unknown layout", func(c *Config) { c.UI.Layout = "spiral" }, "ui.layout"},
		{"no preview rows", func(c *Config) { c.LLM.PreviewRows = 0 }, "llm.preview_rows"},
		{"no session idle", func(c *Config) { c.UI.SessionIdle = 0 }, "ui.session_idle"},
		{"negative delay", func(c *Config) { c.Launch.Delay = -time.Second }, "launch.delay"},
		{"tab delimiter", func(c *Config) { c.Delimiter = "\t" }, ""},
		{"long delimiter", func(c *Config) { c.Delimiter = ";;" }, "delimiter"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LogFormatJSON, false, false)
	logger.Debug("hidden")
	logger.Info("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	logger = NewLogger(&buf, LogFormatText, true, true)
	logger.Debug("debug on")
	assert.Contains(t, buf.String(), "debug on", "verbose wins over quiet")

	buf.Reset()
	logger = NewLogger(&buf, LogFormatText, false, true)
	logger.Warn("quiet drops warnings")
	assert.Empty(t, buf.String())
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.NotNil(t, GetLogger(ctx), "discard fallback")

	fallback := GetConfig(ctx)
	assert.Equal(t, 8050, fallback.UI.Port)

	cfg := &Config{Data: "x.csv"}
	assert.Same(t, cfg, GetConfig(WithConfig(ctx, cfg)))
}
