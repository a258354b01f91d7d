package printer_test

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/slok/stackrun/internal/printer"
)

func TestStyle(t *testing.T) {
	tests := map[string]struct {
		spec  string
		expFg lipgloss.TerminalColor
		expBg lipgloss.TerminalColor
		bold  bool
	}{
		"An empty spec should not set colors.": {
			spec:  "",
			expFg: lipgloss.NoColor{},
			expBg: lipgloss.NoColor{},
		},
		"A color name should set the foreground.": {
			spec:  "red",
			expFg: lipgloss.Color("1"),
			expBg: lipgloss.NoColor{},
		},
		"A modifier should be applied.": {
			spec:  "blue.bold",
			expFg: lipgloss.Color("4"),
			expBg: lipgloss.NoColor{},
			bold:  true,
		},
		"A hex color should set the foreground.": {
			spec:  "#ff8800",
			expFg: lipgloss.Color("#ff8800"),
			expBg: lipgloss.NoColor{},
		},
		"A background color should set the background.": {
			spec:  "bgBlue.white",
			expFg: lipgloss.Color("7"),
			expBg: lipgloss.Color("4"),
		},
		"Unknown parts should be ignored.": {
			spec:  "sparkly.green",
			expFg: lipgloss.Color("2"),
			expBg: lipgloss.NoColor{},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			st := printer.Style(nil, test.spec)
			assert.Equal(test.expFg, st.GetForeground())
			assert.Equal(test.expBg, st.GetBackground())
			assert.Equal(test.bold, st.GetBold())
		})
	}
}
