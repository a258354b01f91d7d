package printer

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var ansiColors = map[string]string{
	"black":         "0",
	"red":           "1",
	"green":         "2",
	"yellow":        "3",
	"blue":          "4",
	"magenta":       "5",
	"cyan":          "6",
	"white":         "7",
	"gray":          "8",
	"grey":          "8",
	"blackBright":   "8",
	"redBright":     "9",
	"greenBright":   "10",
	"yellowBright":  "11",
	"blueBright":    "12",
	"magentaBright": "13",
	"cyanBright":    "14",
	"whiteBright":   "15",
}

// AutoPalette are the colors assigned by index to processes without an explicit color.
var AutoPalette = []string{"cyan", "yellow", "greenBright", "magenta", "blueBright", "white"}

// Color returns the lipgloss color of a color name or hex value (e.g `red`, `#ff8800`).
func Color(name string) (lipgloss.Color, bool) {
	if strings.HasPrefix(name, "#") {
		return lipgloss.Color(name), true
	}
	if c, ok := ansiColors[name]; ok {
		return lipgloss.Color(c), true
	}
	return "", false
}

// Style returns the style for a dotted color spec like `blue.bold`, `bgBlue.white` or `#ff8800`.
// Unknown parts are ignored.
func Style(r *lipgloss.Renderer, spec string) lipgloss.Style {
	var st lipgloss.Style
	if r != nil {
		st = r.NewStyle()
	} else {
		st = lipgloss.NewStyle()
	}

	for _, part := range strings.Split(spec, ".") {
		switch {
		case part == "":
		case part == "bold":
			st = st.Bold(true)
		case part == "dim" || part == "faint":
			st = st.Faint(true)
		case part == "italic":
			st = st.Italic(true)
		case part == "underline":
			st = st.Underline(true)
		case part == "inverse":
			st = st.Reverse(true)
		case strings.HasPrefix(part, "bg") && len(part) > 2:
			name := strings.ToLower(part[2:3]) + part[3:]
			if c, ok := Color(name); ok {
				st = st.Background(c)
			}
		default:
			if c, ok := Color(part); ok {
				st = st.Foreground(c)
			}
		}
	}

	return st
}
