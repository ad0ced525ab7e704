package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"nestodo/app/models"
	"nestodo/app/tree"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	doneStyle    = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

const (
	BoxChecked   = "☑"
	BoxUnchecked = "☐"

	// EmptyState is shown when a user has no root tasks.
	EmptyState = "No tasks yet. Add your first task above!"
)

// TextOptions tune the terminal rendering.
type TextOptions struct {
	Indent  string // per depth level, defaults to two spaces
	IDWidth int    // 0 hides ids
	Plain   bool   // no ANSI styling
}

func (o TextOptions) indent() string {
	if o.Indent == "" {
		return "  "
	}
	return o.Indent
}

func (o TextOptions) style(s lipgloss.Style, text string) string {
	if o.Plain {
		return text
	}
	return s.Render(text)
}

// Line renders a single node: indentation, checkbox, title and optional id.
func Line(n Node, opt TextOptions) string {
	box := opt.style(mutedStyle, BoxUnchecked)
	title := n.Todo.Title
	if n.Todo.Completed {
		box = opt.style(successStyle, BoxChecked)
		title = opt.style(doneStyle, title)
	}
	line := strings.Repeat(opt.indent(), n.Depth) + box + " " + title
	if opt.IDWidth > 0 {
		line += " " + opt.style(idStyle, "#"+ShortID(n.Todo.ID, opt.IDWidth))
	}
	return line
}

// Text renders the whole forest, one line per todo, followed by the stats
// footer when the collection is not empty.
func Text(todos []models.Todo, opt TextOptions) string {
	if len(tree.RootsOf(todos)) == 0 {
		return opt.style(mutedStyle, EmptyState)
	}
	var lines []string
	Walk(todos, func(n Node) bool {
		lines = append(lines, Line(n, opt))
		return true
	})
	lines = append(lines, "", opt.style(mutedStyle, tree.StatsOf(todos).String()))
	return strings.Join(lines, "\n")
}

// Header is the title line with live counts.
func Header(todos []models.Todo, opt TextOptions) string {
	s := tree.StatsOf(todos)
	return fmt.Sprintf("%s   %s %d  %s %d",
		opt.style(titleStyle, "My Tasks"),
		opt.style(successStyle, "✔"), s.Completed,
		opt.style(mutedStyle, "Total"), s.Total,
	)
}

// ShortID returns the first n characters of id.
func ShortID(id string, n int) string {
	if n <= 0 || len(id) <= n {
		return id
	}
	return id[:n]
}
