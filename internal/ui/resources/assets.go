// Package resources serves the dashboard's static assets.
package resources

import "strings"

// StaticDirectoryPath is the path to static assets from the project root.
const StaticDirectoryPath = "internal/ui/resources/static"

// StaticPath returns the URL path for a static asset, relative to the
// server's base path.
func StaticPath(path string) string {
	return "/static/" + path
}

// prefix is the URL prefix the file server strips for basePath.
func prefix(basePath string) string {
	return strings.TrimSuffix(basePath, "/") + "/static/"
}
