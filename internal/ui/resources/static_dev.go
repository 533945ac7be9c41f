//go:build dev

package resources

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
)

// getStaticDir resolves the static directory next to this source file so
// edits show up without rebuilding.
func getStaticDir() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return StaticDirectoryPath
	}
	return filepath.Join(filepath.Dir(filename), "static")
}

// Dev reports whether assets are served from the source tree.
const Dev = true

// Handler serves assets from the filesystem under basePath.
func Handler(basePath string) http.Handler {
	staticDir := getStaticDir()
	slog.Info("static assets served from filesystem", "path", staticDir)
	return http.StripPrefix(prefix(basePath), http.FileServer(http.FS(os.DirFS(staticDir))))
}
