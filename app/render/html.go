package render

import (
	"html/template"
	"io"

	"nestodo/app/models"
	"nestodo/app/tree"
)

// IndentPx is the horizontal offset of one depth level in the web view.
const IndentPx = 20

// HTMLRow is a todo row as the task page template consumes it.
type HTMLRow struct {
	models.Todo
	Depth       int
	Indent      int
	ChildIndent int
	HasChildren bool
}

// HTMLRows flattens todos into rows carrying their pixel indentation.
func HTMLRows(todos []models.Todo) []HTMLRow {
	rows := make([]HTMLRow, 0, len(todos))
	Walk(todos, func(n Node) bool {
		rows = append(rows, HTMLRow{
			Todo:        n.Todo,
			Depth:       n.Depth,
			Indent:      n.Depth * IndentPx,
			ChildIndent: (n.Depth + 1) * IndentPx,
			HasChildren: n.HasChildren,
		})
		return true
	})
	return rows
}

// TodosPage is the data behind the task view.
type TodosPage struct {
	User  models.User
	Rows  []HTMLRow
	Stats models.Stats
	Error string
}

// NewTodosPage prepares the task view for todos.
func NewTodosPage(user models.User, todos []models.Todo, errMsg string) TodosPage {
	return TodosPage{
		User:  user,
		Rows:  HTMLRows(todos),
		Stats: tree.StatsOf(todos),
		Error: errMsg,
	}
}

// AuthPage is the data behind the login and signup forms.
type AuthPage struct {
	Signup  bool
	Email   string
	Name    string
	General string
	Errors  map[string]string
}

// Pages renders the server-side views.
type Pages struct {
	tmpl *template.Template
}

// NewPages parses the page templates.
func NewPages() *Pages {
	return &Pages{tmpl: template.Must(template.New("pages").Parse(pageTemplates))}
}

// Landing writes the landing page.
func (p *Pages) Landing(w io.Writer) error {
	return p.tmpl.ExecuteTemplate(w, "landing", nil)
}

// Auth writes the login or signup page.
func (p *Pages) Auth(w io.Writer, data AuthPage) error {
	return p.tmpl.ExecuteTemplate(w, "auth", data)
}

// Todos writes the task view.
func (p *Pages) Todos(w io.Writer, data TodosPage) error {
	return p.tmpl.ExecuteTemplate(w, "todos", data)
}

const pageTemplates = `
{{define "head"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.}} - Nestodo</title>
<style>
body{font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;max-width:720px;margin:0 auto;padding:20px;color:#333}
.todo-row{display:flex;align-items:center;gap:8px;padding-top:4px;padding-bottom:4px}
.todo-title.completed{text-decoration:line-through;color:#94a3b8}
.error-banner{background:#fee2e2;color:#991b1b;padding:8px 12px;border-radius:6px}
.error-text{color:#991b1b;font-size:13px}
ul{list-style:none;padding:0;margin:0}
form.inline{display:inline}
</style>
</head>
<body>{{end}}

{{define "foot"}}</body>
</html>{{end}}

{{define "landing"}}{{template "head" "Welcome"}}
<h1>📝 Nestodo</h1>
<p>Organize your work into tasks and unlimited nested sub-tasks.</p>
<p><a href="/login">Log In</a> · <a href="/signup">Sign Up</a></p>
{{template "foot"}}{{end}}

{{define "auth"}}{{if .Signup}}{{template "head" "Sign Up"}}{{else}}{{template "head" "Login"}}{{end}}
<h1>{{if .Signup}}Create Account{{else}}Welcome Back{{end}}</h1>
{{if .General}}<div class="error-banner" role="alert">{{.General}}</div>{{end}}
<form method="post" action="{{if .Signup}}/signup{{else}}/login{{end}}" novalidate>
  <div><label for="email">Email</label>
    <input type="email" id="email" name="email" value="{{.Email}}" placeholder="you@example.com" autocomplete="email">
    {{with index .Errors "email"}}<span class="error-text" role="alert">{{.}}</span>{{end}}</div>
  {{if .Signup}}<div><label for="name">Name</label>
    <input type="text" id="name" name="name" value="{{.Name}}"></div>{{end}}
  <div><label for="password">Password</label>
    <input type="password" id="password" name="password">
    {{with index .Errors "password"}}<span class="error-text" role="alert">{{.}}</span>{{end}}</div>
  {{if .Signup}}<div><label for="confirmPassword">Confirm password</label>
    <input type="password" id="confirmPassword" name="confirmPassword">
    {{with index .Errors "confirmPassword"}}<span class="error-text" role="alert">{{.}}</span>{{end}}</div>{{end}}
  <button type="submit">{{if .Signup}}Sign Up{{else}}Log In{{end}}</button>
</form>
{{if .Signup}}<p>Already have an account? <a href="/login">Log in</a></p>{{else}}<p>Don't have an account? <a href="/signup">Sign up</a></p>{{end}}
{{template "foot"}}{{end}}

{{define "todos"}}{{template "head" "My Tasks"}}
<header>
  <h1>📝 My Tasks</h1>
  <span class="user-email">{{.User.Email}}</span>
  <form class="inline" method="post" action="/logout"><button type="submit">Logout</button></form>
</header>
{{if .Error}}<div class="error-banner" role="alert">{{.Error}}</div>{{end}}
<div data-testid="todo-list">
<form method="post" action="/todos/add">
  <input type="text" name="title" placeholder="What needs to be done?">
  <button type="submit">Add Task</button>
</form>
{{if not .Rows}}<div class="empty-state"><p>No tasks yet. Add your first task above!</p></div>
{{else}}<ul class="todo-list">
{{range .Rows}}<li class="todo-item" data-testid="todo-item-{{.ID}}" data-depth="{{.Depth}}">
  <div class="todo-row" style="padding-left: {{.Indent}}px">
    <form class="inline" method="post" action="/todos/{{.ID}}/toggle">
      <input type="hidden" name="completed" value="{{if .Completed}}false{{else}}true{{end}}">
      <button type="submit" aria-label="Mark &quot;{{.Title}}&quot; as {{if .Completed}}incomplete{{else}}complete{{end}}">{{if .Completed}}☑{{else}}☐{{end}}</button>
    </form>
    <span class="todo-title{{if .Completed}} completed{{end}}">{{.Title}}</span>
    <form class="inline" method="post" action="/todos/{{.ID}}/delete"><button type="submit" title="Delete task">×</button></form>
  </div>
  <form class="add-subtask" method="post" action="/todos/add" style="padding-left: {{.ChildIndent}}px">
    <input type="hidden" name="parentId" value="{{.ID}}">
    <input type="text" name="title" placeholder="Enter sub-task title...">
    <button type="submit" title="Add sub-task">+ Sub</button>
  </form>
</li>
{{end}}</ul>{{end}}
{{if .Stats.Total}}<div class="todo-stats"><span>{{.Stats}}</span></div>{{end}}
</div>
{{template "foot"}}{{end}}
`
