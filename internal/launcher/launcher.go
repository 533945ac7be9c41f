// Package launcher starts a dashboard server in a child process and opens
// the browser on it once it had time to come up.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Defaults.
const (
	DefaultHost  = "127.0.0.1"
	DefaultPort  = 8050
	DefaultDelay = 3 * time.Second
)

// Config describes one launch.
type Config struct {
	// Executable is the leapdash binary. Empty means the running one.
	Executable string
	// Args are passed before the serve command, e.g. --config.
	Args []string
	// Env is appended to the current environment of the child.
	Env []string

	Data     string
	Spec     string
	Host     string
	Port     int
	BasePath string
	// Delay is how long to wait before opening the browser.
	Delay time.Duration

	Stdout io.Writer
	Stderr io.Writer
	// Open shows a URL to the user. Defaults to OpenBrowser.
	Open   func(url string) error
	Logger *slog.Logger
}

func (c *Config) setDefaults() error {
	if c.Executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to locate leapdash executable: %w", err)
		}
		c.Executable = exe
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Delay <= 0 {
		c.Delay = DefaultDelay
	}
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	if c.Open == nil {
		c.Open = OpenBrowser
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return nil
}

// ServeArgs returns the command line of the child server.
func ServeArgs(cfg Config) []string {
	args := append([]string{}, cfg.Args...)
	args = append(args,
		"serve",
		"--no-browser",
		"--host", cfg.Host,
		"--port", strconv.Itoa(cfg.Port),
		"--base-path", cfg.BasePath,
	)
	if cfg.Data != "" {
		args = append(args, "--data", cfg.Data)
	}
	if cfg.Spec != "" {
		args = append(args, "--spec", cfg.Spec)
	}
	return args
}

// DashboardURL returns the page address with the inputs in its query.
func DashboardURL(host string, port int, basePath, data, spec string) string {
	base := strings.Trim(basePath, "/")
	if base != "" {
		base = "/" + base
	}
	u := url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   base + "/",
	}
	q := url.Values{}
	if data != "" {
		q.Set("csv", data)
	}
	if spec != "" {
		q.Set("json", spec)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Run starts the child, opens the browser after the delay and waits for
// the child to exit. Cancelling ctx kills the child and returns nil.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.setDefaults(); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, cfg.Executable, ServeArgs(cfg)...)
	cmd.Env = append(os.Environ(), cfg.Env...)
	cmd.Stdout = cfg.Stdout
	cmd.Stderr = cfg.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start dashboard server: %w", err)
	}
	cfg.Logger.Info("dashboard server started", "pid", cmd.Process.Pid, "port", cfg.Port)

	exited := make(chan struct{})
	eg, egctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer close(exited)
		err := cmd.Wait()
		if ctx.Err() != nil {
			cfg.Logger.Debug("dashboard server stopped", "reason", ctx.Err())
			return nil
		}
		if err != nil {
			return fmt.Errorf("dashboard server exited: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		select {
		case <-time.After(cfg.Delay):
		case <-exited:
			return nil
		case <-egctx.Done():
			return nil
		}
		target := DashboardURL(browserHost(cfg.Host), cfg.Port, cfg.BasePath, cfg.Data, cfg.Spec)
		cfg.Logger.Info("opening browser", "url", target)
		if err := cfg.Open(target); err != nil {
			// The server keeps running; the user can open the URL by hand.
			cfg.Logger.Warn("failed to open browser", "url", target, "error", err)
		}
		return nil
	})

	return eg.Wait()
}

func browserHost(host string) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		return "localhost"
	}
	return host
}

// ErrUnsupportedPlatform is returned by OpenBrowser on platforms without a
// known opener.
var ErrUnsupportedPlatform = errors.New("don't know how to open a browser on " + runtime.GOOS)

// OpenBrowser opens the default browser to the specified URL.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return ErrUnsupportedPlatform
	}

	return cmd.Start()
}
