package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"nestodo/app/models"
	"nestodo/app/render"
	"nestodo/app/todostore"
)

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Toggle   key.Binding
	Add      key.Binding
	AddSub   key.Binding
	Delete   key.Binding
	Collapse key.Binding
	Expand   key.Binding
	Reload   key.Binding
	Quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle:   key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "toggle")),
		Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		AddSub:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sub-task")),
		Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Collapse: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "collapse")),
		Expand:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "expand")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp lists the bindings shown in the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Add, k.AddSub, k.Delete, k.Quit}
}

// FullHelp groups every binding for the expanded help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Collapse, k.Expand},
		{k.Toggle, k.Add, k.AddSub, k.Delete, k.Reload, k.Quit},
	}
}

// intentDoneMsg reports the outcome of a store intent run in the background.
type intentDoneMsg struct {
	op  string
	err error
}

type modelTUI struct {
	ctx   context.Context
	store *todostore.Store
	opt   render.TextOptions

	rows      []render.Node
	cursor    int
	collapsed map[string]bool

	// Inline add
	adding bool
	parent *models.Todo // nil adds a root task
	ti     textinput.Model

	status string
	errMsg string

	keys keyMap
	help help.Model
}

func newModelTUI(ctx context.Context, store *todostore.Store, plain bool) modelTUI {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	m := modelTUI{
		ctx:       ctx,
		store:     store,
		opt:       render.TextOptions{Plain: plain},
		collapsed: make(map[string]bool),
		ti:        ti,
		keys:      newKeyMap(),
		help:      help.New(),
	}
	m.refresh()
	return m
}

// runTUI starts the interactive tree view.
func runTUI(ctx context.Context, store *todostore.Store, opt Options) error {
	p := tea.NewProgram(newModelTUI(ctx, store, opt.Plain), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// refresh rebuilds the visible rows from the store, keeping the cursor on
// the same todo when it still exists.
func (m *modelTUI) refresh() {
	var current string
	if sel, ok := m.selected(); ok {
		current = sel.Todo.ID
	}
	var rows []render.Node
	render.Walk(m.store.Todos(), func(n render.Node) bool {
		rows = append(rows, n)
		return !m.collapsed[n.Todo.ID]
	})
	m.rows = rows
	for i, n := range m.rows {
		if n.Todo.ID == current {
			m.cursor = i
			return
		}
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m modelTUI) selected() (render.Node, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return render.Node{}, false
	}
	return m.rows[m.cursor], true
}

// run executes an intent off the UI goroutine.
func (m modelTUI) run(op string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return intentDoneMsg{op: op, err: fn(ctx)}
	}
}

// Init starts the model without a command.
func (m modelTUI) Init() tea.Cmd { return nil }

// Update handles key presses and finished store intents.
func (m modelTUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case intentDoneMsg:
		m.refresh()
		if msg.err != nil {
			m.status, m.errMsg = "", describe(msg.op, msg.err)
		} else {
			m.status, m.errMsg = doneText(msg.op), ""
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if m.adding {
			return m.updateAdding(msg)
		}
		return m.updateBrowsing(msg)
	}
	return m, nil
}

func (m modelTUI) updateAdding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		title := m.ti.Value()
		if strings.TrimSpace(title) == "" {
			m.errMsg = "Title cannot be empty"
			return m, nil
		}
		var parentID *string
		if m.parent != nil {
			id := m.parent.ID
			parentID = &id
			delete(m.collapsed, id)
		}
		m.adding, m.parent = false, nil
		m.ti.SetValue("")
		m.ti.Blur()
		m.status, m.errMsg = "Adding...", ""
		return m, m.run("add", func(ctx context.Context) error {
			_, err := m.store.Add(ctx, parentID, title)
			return err
		})
	case tea.KeyEsc:
		m.adding, m.parent = false, nil
		m.ti.SetValue("")
		m.ti.Blur()
		m.errMsg = ""
		return m, nil
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m modelTUI) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sel, hasSel := m.selected()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Collapse):
		if hasSel && sel.HasChildren {
			m.collapsed[sel.Todo.ID] = true
			m.refresh()
		}
	case key.Matches(msg, m.keys.Expand):
		if hasSel {
			delete(m.collapsed, sel.Todo.ID)
			m.refresh()
		}
	case key.Matches(msg, m.keys.Add):
		return m.startAdding(nil), textinput.Blink
	case key.Matches(msg, m.keys.AddSub):
		if hasSel {
			parent := sel.Todo
			return m.startAdding(&parent), textinput.Blink
		}
	case key.Matches(msg, m.keys.Toggle):
		if hasSel {
			id, completed := sel.Todo.ID, !sel.Todo.Completed
			m.status = "Saving..."
			return m, m.run("toggle", func(ctx context.Context) error {
				return m.store.Toggle(ctx, id, completed)
			})
		}
	case key.Matches(msg, m.keys.Delete):
		if hasSel {
			id := sel.Todo.ID
			m.status = "Deleting..."
			return m, m.run("delete", func(ctx context.Context) error {
				return m.store.Delete(ctx, id)
			})
		}
	case key.Matches(msg, m.keys.Reload):
		m.status = "Reloading..."
		return m, m.run("reload", m.store.Load)
	}
	return m, nil
}

func (m modelTUI) startAdding(parent *models.Todo) modelTUI {
	m.adding, m.parent = true, parent
	m.errMsg = ""
	m.ti.SetValue("")
	if parent == nil {
		m.ti.Placeholder = "What needs to be done?"
	} else {
		m.ti.Placeholder = "Enter sub-task title..."
	}
	m.ti.Focus()
	return m
}

// View renders the visible tree, the add prompt and the help footer.
func (m modelTUI) View() string {
	todos := m.store.Todos()
	lines := []string{render.Header(todos, m.opt), ""}

	if len(m.rows) == 0 {
		lines = append(lines, muted(m.opt.Plain, render.EmptyState))
	}
	for i, n := range m.rows {
		marker := "  "
		if n.HasChildren {
			marker = "▾ "
			if m.collapsed[n.Todo.ID] {
				marker = "▸ "
			}
		}
		line := render.Line(render.Node{Todo: n.Todo, Depth: n.Depth}, m.opt)
		// Indentation goes before the marker so siblings line up.
		indent := strings.Repeat("  ", n.Depth)
		line = indent + marker + strings.TrimPrefix(line, indent)
		prefix := "  "
		if i == m.cursor {
			prefix = "> "
			if !m.opt.Plain {
				prefix = selectedStyle.Render(prefix)
			}
		}
		lines = append(lines, prefix+line)
	}
	if stats := m.store.Stats(); stats.Total > 0 {
		lines = append(lines, "", muted(m.opt.Plain, stats.String()))
	}

	if m.adding {
		title := "Add task"
		if m.parent != nil {
			title = "Add sub-task under " + m.parent.Title
		}
		lines = append(lines, "", panel(m.opt.Plain, []string{title + "  (esc to cancel)", m.ti.View()}))
	}
	if m.errMsg != "" {
		lines = append(lines, "", styled(m.opt.Plain, errorStyle, m.errMsg))
	} else if m.status != "" {
		lines = append(lines, "", muted(m.opt.Plain, m.status))
	}
	lines = append(lines, "", m.help.View(m.keys))
	return panel(m.opt.Plain, lines)
}

func doneText(op string) string {
	switch op {
	case "add":
		return "Task added"
	case "toggle":
		return "Task updated"
	case "delete":
		return "Task deleted"
	}
	return ""
}

// describe turns an intent error into a one-line message.
func describe(op string, err error) string {
	var ve *todostore.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, todostore.ErrBusy):
		return "Still working on that task, try again in a moment"
	case errors.Is(err, todostore.ErrUnauthorized):
		return "Session expired: run `todo login`"
	}
	switch op {
	case "add":
		return "Failed to add task: " + err.Error()
	case "toggle":
		return "Failed to update task: " + err.Error()
	case "delete":
		return "Failed to delete task: " + err.Error()
	}
	return "Failed to load tasks: " + err.Error()
}
