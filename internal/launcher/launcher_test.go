package launcher

import (
	"context"
	"io"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdash/internal/testutil"
)

const helperEnv = "LEAPDASH_LAUNCHER_HELPER"

// TestMain lets the test binary stand in for the dashboard server: with
// the helper variable set it either exits with that code or, for "serve",
// blocks until it is killed.
func TestMain(m *testing.M) {
	if mode := os.Getenv(helperEnv); mode != "" {
		if mode == "serve" {
			time.Sleep(time.Minute)
			os.Exit(0)
		}
		code, _ := strconv.Atoi(mode)
		os.Exit(code)
	}
	os.Exit(m.Run())
}

type opener struct {
	mu   sync.Mutex
	urls []string
	seen chan struct{}
}

func newOpener() *opener {
	return &opener{seen: make(chan struct{}, 1)}
}

func (o *opener) open(url string) error {
	o.mu.Lock()
	o.urls = append(o.urls, url)
	o.mu.Unlock()
	select {
	case o.seen <- struct{}{}:
	default:
	}
	return nil
}

func (o *opener) opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string{}, o.urls...)
}

func helperConfig(t *testing.T, mode string, o *opener) Config {
	return Config{
		Executable: os.Args[0],
		Env:        []string{helperEnv + "=" + mode},
		Data:       "data/sales.csv",
		Spec:       "specs/sales.json",
		Port:       8060,
		BasePath:   "dash",
		Delay:      20 * time.Millisecond,
		Stdout:     io.Discard,
		Stderr:     io.Discard,
		Open:       o.open,
		Logger:     testutil.NewTestLogger(t),
	}
}

func TestServeArgs(t *testing.T) {
	cfg := Config{Args: []string{"--config", "x.yaml"}, Host: "0.0.0.0", Port: 9000, BasePath: "/d", Data: "a.csv"}
	assert.Equal(t, []string{
		"--config", "x.yaml",
		"serve", "--no-browser",
		"--host", "0.0.0.0",
		"--port", "9000",
		"--base-path", "/d",
		"--data", "a.csv",
	}, ServeArgs(cfg))
}

func TestDashboardURL(t *testing.T) {
	tests := []struct {
		name     string
		basePath string
		data     string
		spec     string
		want     string
	}{
		{"root", "", "", "", "http://localhost:8050/"},
		{"base path", "/dash/", "", "", "http://localhost:8050/dash/"},
		{"inputs", "dash", "data/sales.csv", "s p.json", "http://localhost:8050/dash/?csv=data%2Fsales.csv&json=s+p.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DashboardURL("localhost", 8050, tt.basePath, tt.data, tt.spec))
		})
	}
}

func TestRun_OpensBrowserAndStopsOnCancel(t *testing.T) {
	o := newOpener()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, helperConfig(t, "serve", o)) }()

	select {
	case <-o.seen:
	case <-time.After(5 * time.Second):
		t.Fatal("browser was never opened")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("child was not killed")
	}
	assert.Equal(t, []string{"http://127.0.0.1:8060/dash/?csv=data%2Fsales.csv&json=specs%2Fsales.json"}, o.opened())
}

func TestRun_ChildFailsEarly(t *testing.T) {
	o := newOpener()
	cfg := helperConfig(t, "3", o)
	cfg.Delay = 5 * time.Second

	err := Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dashboard server exited")
	assert.Empty(t, o.opened(), "no browser for a dead server")
}

func TestRun_MissingExecutable(t *testing.T) {
	cfg := helperConfig(t, "serve", newOpener())
	cfg.Executable = "/nonexistent/leapdash"
	err := Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start")
}
