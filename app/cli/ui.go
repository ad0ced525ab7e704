package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Faint(true)
	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	panelStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

// styled renders text with s unless plain output was requested.
func styled(plain bool, s lipgloss.Style, text string) string {
	if plain {
		return text
	}
	return s.Render(text)
}

func ok(opt Options, msg string) {
	fmt.Fprintln(opt.Out, styled(opt.Plain, successStyle, "✔ "+msg))
}

func fail(opt Options, msg string) {
	fmt.Fprintln(opt.Err, styled(opt.Plain, errorStyle, "✖ "+msg))
}

func muted(plain bool, text string) string {
	return styled(plain, mutedStyle, text)
}

func panel(plain bool, lines []string) string {
	return styled(plain, panelStyle, strings.Join(lines, "\n"))
}
