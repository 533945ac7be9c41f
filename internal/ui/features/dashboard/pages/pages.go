// Package pages renders the dashboard page and its live-patched app shell.
package pages

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/leapdash/internal/chartspec"
	"github.com/leapstack-labs/leapdash/internal/dashboard"
	"github.com/leapstack-labs/leapdash/internal/layout"
	"github.com/leapstack-labs/leapdash/internal/ui/resources"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("pages").Funcs(template.FuncMap{
	"fontStyle":  FontStyle,
	"chartJSON":  chartJSON,
	"inc":        func(i int) int { return i + 1 },
	"layoutName": func(m layout.Mode) string { return m.Label() },
}).ParseFS(templateFS, "templates/*.html"))

// PageData is everything the dashboard templates need.
type PageData struct {
	Title    string
	BasePath string
	View     *dashboard.View
	// Notice is a transient message shown above the dashboard.
	Notice string
}

// URL joins p onto the base path.
func (d PageData) URL(p string) string {
	return strings.TrimSuffix(d.BasePath, "/") + p
}

// Static returns the URL of a static asset.
func (d PageData) Static(name string) string {
	return d.URL(resources.StaticPath(name))
}

// Layouts lists the layout choices.
func (d PageData) Layouts() []layout.Mode {
	return layout.Modes
}

// GlobalFilterURL is the action URL of a global filter control.
func (d PageData) GlobalFilterURL(column string) string {
	return d.filterURL(url.Values{"scope": {"global"}, "column": {column}})
}

// ChartFilterURL is the action URL of a per-chart filter control.
func (d PageData) ChartFilterURL(chart, column string) string {
	return d.filterURL(url.Values{"scope": {"chart"}, "chart": {chart}, "column": {column}})
}

func (d PageData) filterURL(q url.Values) string {
	return d.URL("/api/filter") + "?" + q.Encode() + "&value="
}

// LayoutURL is the action URL of the layout selector, missing its value.
func (d PageData) LayoutURL() string {
	return d.URL("/api/layout") + "?mode="
}

// DashboardPage renders the full HTML document.
func DashboardPage(d PageData) templ.Component {
	return component("page", d)
}

// DashboardApp renders the #dashboard element that live updates replace.
func DashboardApp(d PageData) templ.Component {
	return component("app", d)
}

func component(name string, d PageData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return templates.ExecuteTemplate(w, name, d)
	})
}

// FontStyle renders f as inline CSS. Characters outside a conservative set
// are dropped so that spec values cannot break out of the declaration.
func FontStyle(f chartspec.Font) template.CSS {
	var b strings.Builder
	if fam := cssSafe(f.Family); fam != "" {
		b.WriteString("font-family: " + fam + "; ")
	}
	if f.Size > 0 {
		b.WriteString("font-size: " + strconv.Itoa(f.Size) + "px; ")
	}
	if c := cssSafe(f.Color); c != "" {
		b.WriteString("color: " + c + ";")
	}
	return template.CSS(strings.TrimSpace(b.String()))
}

func cssSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '#', r == '-', r == ',', r == '.':
			return r
		}
		return -1
	}, s)
}

func chartJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
