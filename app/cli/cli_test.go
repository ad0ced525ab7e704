package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/crypto/bcrypt"

	"nestodo/app/models"
	"nestodo/app/notify"
	"nestodo/app/repository"
	"nestodo/app/routes"
	"nestodo/app/services"
	"nestodo/app/todostore"
)

const password = "Secret123"

type harness struct {
	t      *testing.T
	srv    *httptest.Server
	creds  *CredentialStore
	out    bytes.Buffer
	errOut bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := httptest.NewServer(routes.NewRouter(routes.Deps{
		Repo:     repository.NewMemoryRepository(),
		Notifier: notify.LogNotifier{},
		Auth: services.AuthConfig{
			Secret:     []byte("test-secret"),
			SessionTTL: time.Hour,
			BcryptCost: bcrypt.MinCost,
		},
	}))
	t.Cleanup(srv.Close)
	return &harness{
		t:     t,
		srv:   srv,
		creds: &CredentialStore{Dir: t.TempDir(), Getenv: func(string) string { return "" }},
	}
}

func (h *harness) run(args ...string) int {
	h.out.Reset()
	h.errOut.Reset()
	return Run(context.Background(), args, Options{
		BaseURL: h.srv.URL,
		Creds:   h.creds,
		Plain:   true,
		In:      strings.NewReader(""),
		Out:     &h.out,
		Err:     &h.errOut,
	})
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	if code := h.run(args...); code != 0 {
		h.t.Fatalf("%v exited %d: %s", args, code, h.errOut.String())
	}
	return h.out.String()
}

var addedID = regexp.MustCompile(`added #(\S+)`)

func (h *harness) add(args ...string) string {
	h.t.Helper()
	out := h.mustRun(append([]string{"add"}, args...)...)
	m := addedID.FindStringSubmatch(out)
	if m == nil {
		h.t.Fatalf("no id in %q", out)
	}
	return m[1]
}

func TestRunUsage(t *testing.T) {
	h := newHarness(t)
	if code := h.run(); code != 2 {
		t.Errorf("no args exit = %d, want 2", code)
	}
	if code := h.run("frobnicate"); code != 2 {
		t.Errorf("unknown exit = %d, want 2", code)
	}
	if code := h.run("done"); code != 2 {
		t.Errorf("done without id exit = %d, want 2", code)
	}
	if code := h.run("help"); code != 0 || !strings.Contains(h.out.String(), "Subcommands:") {
		t.Errorf("help exit = %d", code)
	}
}

func TestRunRequiresLogin(t *testing.T) {
	h := newHarness(t)
	if code := h.run("ls"); code != 1 || !strings.Contains(h.errOut.String(), "not logged in") {
		t.Errorf("ls exit = %d, stderr %q", code, h.errOut.String())
	}
}

func TestRunAccountFlow(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("signup", "-email", "ada@example.com", "-name", "Ada", "-password", password)
	if !strings.Contains(out, "signed up as ada@example.com") {
		t.Errorf("signup output = %q", out)
	}
	if out := h.mustRun("whoami"); strings.TrimSpace(out) != "Ada <ada@example.com>" {
		t.Errorf("whoami = %q", out)
	}
	if code := h.run("signup", "-email", "ada@example.com", "-password", password); code != 1 {
		t.Errorf("duplicate signup exit = %d, want 1", code)
	}
	if code := h.run("signup", "-email", "bob@example.com", "-password", "weak"); code != 2 {
		t.Errorf("weak password exit = %d, want 2", code)
	}

	h.mustRun("logout")
	if code := h.run("whoami"); code != 1 {
		t.Errorf("whoami after logout exit = %d, want 1", code)
	}
	if code := h.run("login", "-email", "ada@example.com", "-password", "Wrong1234"); code != 1 {
		t.Errorf("bad login exit = %d, want 1", code)
	}
	h.mustRun("login", "-email", "ada@example.com", "-password", password)
	h.mustRun("whoami")
}

func TestRunTodoFlow(t *testing.T) {
	h := newHarness(t)
	h.mustRun("signup", "-email", "ada@example.com", "-password", password)

	if out := h.mustRun("ls"); !strings.Contains(out, "No tasks yet. Add your first task above!") {
		t.Errorf("empty ls = %q", out)
	}
	if code := h.run("add", "   "); code != 2 || !strings.Contains(h.errOut.String(), "Title cannot be empty") {
		t.Errorf("blank add exit = %d, stderr %q", code, h.errOut.String())
	}
	if code := h.run("add", "-parent", "zzzz", "orphan"); code != 1 {
		t.Errorf("add under unknown parent exit = %d, want 1", code)
	}

	parent := h.add("Parent", "Task")
	child := h.add("-parent", parent, "Child Task")
	h.add("-parent", "#"+child, "Grandchild Task")
	other := h.add("Second Root")

	h.mustRun("done", child)
	out := h.mustRun("ls")
	for _, want := range []string{
		"☐ Parent Task #" + parent,
		"  ☑ Child Task #" + child,
		"    ☐ Grandchild Task",
		"1 of 4 tasks completed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("ls missing %q:\n%s", want, out)
		}
	}
	h.mustRun("undo", child)
	if out := h.mustRun("ls"); !strings.Contains(out, "0 of 4 tasks completed") {
		t.Errorf("undo not reflected:\n%s", out)
	}

	if out := h.mustRun("rm", parent); !strings.Contains(out, "removed 3 tasks") {
		t.Errorf("rm output = %q", out)
	}
	out = h.mustRun("ls")
	if strings.Contains(out, "Child Task") || !strings.Contains(out, "Second Root #"+other) {
		t.Errorf("ls after rm:\n%s", out)
	}
	if code := h.run("rm", parent); code != 1 {
		t.Errorf("rm missing exit = %d, want 1", code)
	}
}

func TestPlainOutputIsUnstyled(t *testing.T) {
	h := newHarness(t)
	h.mustRun("signup", "-email", "ada@example.com", "-password", password)
	h.add("Only Task")

	out := h.mustRun("ls")
	if strings.ContainsAny(out, "╭╮╰╯│") || strings.Contains(out, "\x1b[") {
		t.Errorf("plain ls is styled:\n%s", out)
	}

	var stdout, stderr bytes.Buffer
	opt := Options{Plain: true, Out: &stdout, Err: &stderr}
	ok(opt, "done")
	fail(opt, "broken")
	if stdout.String() != "✔ done\n" || stderr.String() != "✖ broken\n" {
		t.Errorf("ok/fail plain = %q, %q", stdout.String(), stderr.String())
	}
	if got := panel(true, []string{"a", "b"}); got != "a\nb" {
		t.Errorf("panel(plain) = %q", got)
	}
	if got := muted(true, "Hint"); got != "Hint" {
		t.Errorf("muted(plain) = %q", got)
	}
}

func TestResolveID(t *testing.T) {
	todos := []models.Todo{{ID: "abc123"}, {ID: "abd456"}, {ID: "ab"}}
	tests := []struct {
		prefix  string
		want    string
		wantErr bool
	}{
		{"abc", "abc123", false},
		{"#abd", "abd456", false},
		{"ab", "ab", false},
		{"#ab", "ab", false},
		{"a", "", true},
		{"zz", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := resolveID(todos, tt.prefix)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("resolveID(%q) = %q, %v", tt.prefix, got, err)
		}
	}
}

func TestResolveIDExactMatchAfterPrefixes(t *testing.T) {
	todos := []models.Todo{{ID: "ab1"}, {ID: "ab2"}, {ID: "ab3"}, {ID: "ab"}}
	if got, err := resolveID(todos, "ab"); err != nil || got != "ab" {
		t.Errorf("resolveID(ab) = %q, %v, want exact match", got, err)
	}
}

func TestCredentialStore(t *testing.T) {
	dir := t.TempDir()
	s := &CredentialStore{Dir: dir}

	if c, err := s.Load(); err != nil || c != nil {
		t.Fatalf("Load() on empty dir = %v, %v", c, err)
	}
	if err := s.Save("Bearer tok", "ada@example.com", time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(filepath.Join(dir, credFileName))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("credentials mode = %v, want 0600", perm)
	}
	c, err := s.Load()
	if err != nil || c == nil || c.Token != "tok" || c.Source != "file" {
		t.Fatalf("Load() = %+v, %v", c, err)
	}

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if c, _ := s.Load(); c != nil {
		t.Errorf("expired credentials still loaded")
	}

	s.Getenv = func(k string) string {
		if k == "NESTODO_TOKEN" {
			return "envtok"
		}
		return ""
	}
	if c, _ := s.Load(); c == nil || c.Token != "envtok" || c.Source != "env" {
		t.Errorf("env override = %+v", c)
	}

	if err := s.Delete(); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}

// press feeds a key to the model and runs any resulting intent to completion.
func press(t *testing.T, m modelTUI, k tea.KeyMsg) modelTUI {
	t.Helper()
	next, cmd := m.Update(k)
	m = next.(modelTUI)
	if cmd != nil {
		if msg, ok := cmd().(intentDoneMsg); ok {
			next, _ = m.Update(msg)
			m = next.(modelTUI)
		}
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// typeText types into the add input. Cursor blink commands are dropped.
func typeText(t *testing.T, m modelTUI, s string) modelTUI {
	t.Helper()
	for _, r := range s {
		next, _ := m.Update(runes(string(r)))
		m = next.(modelTUI)
	}
	return m
}

func TestTUI(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	auth := todostore.NewAuthClient(h.srv.URL, "")
	if _, err := auth.Signup(ctx, "ada@example.com", password, ""); err != nil {
		t.Fatal(err)
	}
	sess, err := auth.Login(ctx, "ada@example.com", password)
	if err != nil {
		t.Fatal(err)
	}
	store := todostore.New(todostore.NewHTTPBackend(h.srv.URL, sess.Token), sess.User)
	if err := store.Load(ctx); err != nil {
		t.Fatal(err)
	}

	m := newModelTUI(ctx, store, true)
	if !strings.Contains(m.View(), "No tasks yet") {
		t.Errorf("empty view missing empty state")
	}

	// Blank titles are rejected without leaving add mode.
	m = press(t, m, runes("a"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.adding || m.errMsg != "Title cannot be empty" {
		t.Errorf("blank add: adding=%v err=%q", m.adding, m.errMsg)
	}
	m = typeText(t, m, "Parent")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.adding || len(m.rows) != 1 {
		t.Fatalf("after add: adding=%v rows=%d err=%q", m.adding, len(m.rows), m.errMsg)
	}

	// Sub-task under the selected row.
	m = press(t, m, runes("s"))
	m = typeText(t, m, "Child")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.rows) != 2 || m.rows[1].Depth != 1 {
		t.Fatalf("rows after sub-task = %+v", m.rows)
	}

	// Escape cancels an add.
	m = press(t, m, runes("a"))
	m = typeText(t, m, "never")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.adding || len(store.Todos()) != 2 {
		t.Errorf("esc did not cancel")
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = press(t, m, runes(" "))
	if s := store.Stats(); s.Completed != 1 {
		t.Errorf("toggle: stats = %+v", s)
	}
	if !strings.Contains(m.View(), "1 of 2 tasks completed") {
		t.Errorf("view missing stats")
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if len(m.rows) != 1 {
		t.Errorf("collapse: rows = %d, want 1", len(m.rows))
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if len(m.rows) != 2 {
		t.Errorf("expand: rows = %d, want 2", len(m.rows))
	}

	m = press(t, m, runes("d"))
	if len(m.rows) != 0 || len(store.Todos()) != 0 {
		t.Errorf("cascade delete left %d rows", len(m.rows))
	}
	if m.status != "Task deleted" {
		t.Errorf("status = %q", m.status)
	}

	if _, cmd := m.Update(runes("q")); cmd == nil {
		t.Error("q did not quit")
	}
}
