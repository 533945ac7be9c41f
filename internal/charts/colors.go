package charts

import "strings"

// namedColors maps CSS-style color names to hex. grey is an alias of gray.
var namedColors = map[string]string{
	"red":     "#FF0000",
	"green":   "#008000",
	"blue":    "#0000FF",
	"orange":  "#FFA500",
	"yellow":  "#FFFF00",
	"purple":  "#800080",
	"pink":    "#FFC0CB",
	"brown":   "#A52A2A",
	"black":   "#000000",
	"white":   "#FFFFFF",
	"gray":    "#808080",
	"grey":    "#808080",
	"cyan":    "#00FFFF",
	"magenta": "#FF00FF",
	"lime":    "#00FF00",
	"teal":    "#008080",
	"navy":    "#000080",
	"maroon":  "#800000",
	"olive":   "#808000",
	"gold":    "#FFD700",
	"indigo":  "#4B0082",
	"crimson": "#DC143C",
}

// DefaultPalette is used when an entry has no colorSequence.
var DefaultPalette = []string{
	"#636EFA", "#EF553B", "#00CC96", "#AB63FA", "#FFA15A",
	"#19D3F3", "#FF6692", "#B6E880", "#FF97FF", "#FECB52",
}

// ResolveColor returns the hex form of a color token. Tokens starting with
// # pass through; unknown names resolve to black.
func ResolveColor(token string) string {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(token, "#") {
		return token
	}
	if hex, ok := namedColors[strings.ToLower(token)]; ok {
		return hex
	}
	return "#000000"
}

// ResolveSequence resolves every token of seq. An empty sequence yields
// the default palette.
func ResolveSequence(seq []string) []string {
	if len(seq) == 0 {
		return DefaultPalette
	}
	out := make([]string, len(seq))
	for i, c := range seq {
		out[i] = ResolveColor(c)
	}
	return out
}
