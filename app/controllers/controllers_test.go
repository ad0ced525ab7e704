package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"nestodo/app/middleware"
	"nestodo/app/models"
	"nestodo/app/notify"
	"nestodo/app/repository"
	"nestodo/app/routes"
	"nestodo/app/services"
	"nestodo/app/todostore"
)

const password = "Secret123"

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	return routes.NewRouter(routes.Deps{
		Repo:     repository.NewMemoryRepository(),
		Notifier: notify.LogNotifier{},
		Auth: services.AuthConfig{
			Secret:     []byte("test-secret"),
			SessionTTL: time.Hour,
			BcryptCost: bcrypt.MinCost,
		},
	})
}

type apiCall struct {
	method string
	path   string
	token  string
	body   any
}

func do(t *testing.T, h http.Handler, c apiCall) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		if err := json.NewEncoder(&buf).Encode(c.body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v (body %q)", v, err, rec.Body.String())
	}
	return v
}

func signupAndLogin(t *testing.T, h http.Handler, email string) models.Session {
	t.Helper()
	creds := map[string]string{"email": email, "password": password}
	if rec := do(t, h, apiCall{method: http.MethodPost, path: "/api/account", body: creds}); rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d: %s", rec.Code, rec.Body.String())
	}
	rec := do(t, h, apiCall{method: http.MethodPost, path: "/api/session", body: creds})
	if rec.Code != http.StatusCreated {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	return decode[models.Session](t, rec)
}

func TestHealth(t *testing.T) {
	rec := do(t, newRouter(t), apiCall{method: http.MethodGet, path: "/health"})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAccountAPI(t *testing.T) {
	h := newRouter(t)
	sess := signupAndLogin(t, h, "ada@example.com")
	if sess.Token == "" || sess.User.Email != "ada@example.com" {
		t.Fatalf("session = %+v", sess)
	}

	rec := do(t, h, apiCall{method: http.MethodPost, path: "/api/account",
		body: map[string]string{"email": "ada@example.com", "password": password}})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate signup status = %d, want 409", rec.Code)
	}

	rec = do(t, h, apiCall{method: http.MethodPost, path: "/api/account",
		body: map[string]string{"email": "nope", "password": "short"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid signup status = %d, want 400", rec.Code)
	}
	if body := decode[models.ErrorResponse](t, rec); body.Error.Fields["email"] == "" || body.Error.Fields["password"] == "" {
		t.Errorf("fields = %v", body.Error.Fields)
	}

	rec = do(t, h, apiCall{method: http.MethodPost, path: "/api/session",
		body: map[string]string{"email": "ada@example.com", "password": "Wrong1234"}})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", rec.Code)
	}

	rec = do(t, h, apiCall{method: http.MethodGet, path: "/api/session", token: sess.Token})
	if u := decode[models.User](t, rec); rec.Code != http.StatusOK || u.ID != sess.User.ID {
		t.Errorf("current = %d %+v", rec.Code, u)
	}

	if rec = do(t, h, apiCall{method: http.MethodDelete, path: "/api/session", token: sess.Token}); rec.Code != http.StatusNoContent {
		t.Errorf("logout status = %d", rec.Code)
	}
	if rec = do(t, h, apiCall{method: http.MethodGet, path: "/api/session", token: sess.Token}); rec.Code != http.StatusUnauthorized {
		t.Errorf("current after logout status = %d, want 401", rec.Code)
	}
}

func TestTodoAPI(t *testing.T) {
	h := newRouter(t)
	ada := signupAndLogin(t, h, "ada@example.com")
	bob := signupAndLogin(t, h, "bob@example.com")

	if rec := do(t, h, apiCall{method: http.MethodGet, path: "/api/todos"}); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous list status = %d, want 401", rec.Code)
	}

	rec := do(t, h, apiCall{method: http.MethodPost, path: "/api/todos", token: ada.Token,
		body: map[string]any{"title": "  Parent Task ", "parentId": nil}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	parent := decode[models.Todo](t, rec)
	if parent.Title != "Parent Task" || parent.OwnerID != ada.User.ID || !parent.IsRoot() {
		t.Errorf("parent = %+v", parent)
	}

	rec = do(t, h, apiCall{method: http.MethodPost, path: "/api/todos", token: ada.Token,
		body: map[string]any{"title": "Child Task", "parentId": parent.ID}})
	child := decode[models.Todo](t, rec)
	if !child.HasParent(parent.ID) {
		t.Errorf("child = %+v", child)
	}

	rec = do(t, h, apiCall{method: http.MethodPost, path: "/api/todos", token: ada.Token,
		body: map[string]any{"title": "   "}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank title status = %d, want 400", rec.Code)
	}
	if body := decode[models.ErrorResponse](t, rec); body.Error.Fields["title"] != "Title cannot be empty" {
		t.Errorf("blank title fields = %v", body.Error.Fields)
	}

	// Bob can neither see nor nest under Ada's todos.
	rec = do(t, h, apiCall{method: http.MethodPost, path: "/api/todos", token: bob.Token,
		body: map[string]any{"title": "sneaky", "parentId": parent.ID}})
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign parent status = %d, want 404", rec.Code)
	}
	rec = do(t, h, apiCall{method: http.MethodGet, path: "/api/todos", token: bob.Token})
	if todos := decode[[]models.Todo](t, rec); len(todos) != 0 {
		t.Errorf("bob sees %v", todos)
	}
	rec = do(t, h, apiCall{method: http.MethodPatch, path: "/api/todos/" + parent.ID, token: bob.Token,
		body: map[string]bool{"completed": true}})
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign toggle status = %d, want 404", rec.Code)
	}

	rec = do(t, h, apiCall{method: http.MethodPatch, path: "/api/todos/" + child.ID, token: ada.Token,
		body: map[string]bool{"completed": true}})
	if updated := decode[models.Todo](t, rec); rec.Code != http.StatusOK || !updated.Completed {
		t.Errorf("toggle = %d %+v", rec.Code, updated)
	}
	rec = do(t, h, apiCall{method: http.MethodPatch, path: "/api/todos/" + child.ID, token: ada.Token,
		body: map[string]string{}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("toggle without completed status = %d, want 400", rec.Code)
	}

	// The API deletes one record; the child survives.
	if rec = do(t, h, apiCall{method: http.MethodDelete, path: "/api/todos/" + parent.ID, token: ada.Token}); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec = do(t, h, apiCall{method: http.MethodDelete, path: "/api/todos/" + parent.ID, token: ada.Token}); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
	rec = do(t, h, apiCall{method: http.MethodGet, path: "/api/todos", token: ada.Token})
	if todos := decode[[]models.Todo](t, rec); len(todos) != 1 || todos[0].ID != child.ID {
		t.Errorf("remaining = %v", todos)
	}
}

// The facade cascades over the real API: one DELETE per node.
func TestStoreOverHTTPBackend(t *testing.T) {
	srv := httptest.NewServer(newRouter(t))
	defer srv.Close()
	ctx := context.Background()

	auth := todostore.NewAuthClient(srv.URL, "")
	if _, err := auth.Signup(ctx, "ada@example.com", password, "Ada"); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	sess, err := auth.Login(ctx, "ada@example.com", password)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	store := todostore.New(todostore.NewHTTPBackend(srv.URL, sess.Token), sess.User)
	if err := store.Load(ctx); err != nil {
		t.Fatal(err)
	}
	root, err := store.Add(ctx, nil, "Parent Task")
	if err != nil {
		t.Fatal(err)
	}
	child, err := store.Add(ctx, &root.ID, "Child Task")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Add(ctx, &child.ID, "Grandchild Task"); err != nil {
		t.Fatal(err)
	}
	other, err := store.Add(ctx, nil, "Second Root")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Toggle(ctx, child.ID, true); err != nil {
		t.Fatal(err)
	}
	if got := store.Stats().String(); got != "1 of 4 tasks completed" {
		t.Errorf("Stats() = %q", got)
	}

	if err := store.Delete(ctx, root.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if todos := store.Todos(); len(todos) != 1 || todos[0].ID != other.ID {
		t.Errorf("local after delete = %v", todos)
	}
	if err := store.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if todos := store.Todos(); len(todos) != 1 || todos[0].ID != other.ID {
		t.Errorf("server after delete = %v", todos)
	}
}

// pageClient drives the HTML pages with a session cookie.
type pageClient struct {
	t      *testing.T
	h      http.Handler
	cookie *http.Cookie
}

func (c *pageClient) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	return c.send(req)
}

func (c *pageClient) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.send(req)
}

func (c *pageClient) send(req *http.Request) *httptest.ResponseRecorder {
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.SessionCookie {
			if ck.MaxAge < 0 {
				c.cookie = nil
			} else {
				c.cookie = ck
			}
		}
	}
	return rec
}

func TestPagesRequireSession(t *testing.T) {
	c := &pageClient{t: t, h: newRouter(t)}
	rec := c.get("/todos")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Errorf("GET /todos = %d -> %q", rec.Code, rec.Header().Get("Location"))
	}
	if rec = c.post("/todos/add", url.Values{"title": {"x"}}); rec.Code != http.StatusSeeOther {
		t.Errorf("POST /todos/add = %d, want redirect", rec.Code)
	}
	if rec = c.get("/"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Sign Up") {
		t.Errorf("landing = %d", rec.Code)
	}
}

func TestSignupPageValidation(t *testing.T) {
	c := &pageClient{t: t, h: newRouter(t)}
	rec := c.post("/signup", url.Values{
		"email":           {"ada@example.com"},
		"password":        {password},
		"confirmPassword": {"Different1"},
	})
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "Passwords do not match") {
		t.Errorf("mismatch = %d", rec.Code)
	}
	if c.cookie != nil {
		t.Error("session cookie set for failed signup")
	}
}

func TestLoginPage(t *testing.T) {
	h := newRouter(t)
	signupAndLogin(t, h, "ada@example.com")
	c := &pageClient{t: t, h: h}

	rec := c.post("/login", url.Values{"email": {"ada@example.com"}, "password": {"Wrong1234"}})
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "Invalid email or password") {
		t.Errorf("bad login = %d", rec.Code)
	}
	rec = c.post("/login", url.Values{"email": {"ada@example.com"}, "password": {password}})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/todos" || c.cookie == nil {
		t.Fatalf("login = %d -> %q", rec.Code, rec.Header().Get("Location"))
	}
	if rec = c.get("/login"); rec.Code != http.StatusFound {
		t.Errorf("GET /login while signed in = %d, want redirect", rec.Code)
	}
}

func TestTodoPagesFlow(t *testing.T) {
	c := &pageClient{t: t, h: newRouter(t)}
	rec := c.post("/signup", url.Values{
		"email":           {"ada@example.com"},
		"name":            {"Ada"},
		"password":        {password},
		"confirmPassword": {password},
	})
	if rec.Code != http.StatusSeeOther || c.cookie == nil {
		t.Fatalf("signup = %d: %s", rec.Code, rec.Body.String())
	}

	rec = c.get("/todos")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "No tasks yet. Add your first task above!") {
		t.Fatalf("empty list = %d", rec.Code)
	}

	if rec = c.post("/todos/add", url.Values{"title": {"  "}}); rec.Code != http.StatusBadRequest ||
		!strings.Contains(rec.Body.String(), "Title cannot be empty") {
		t.Errorf("blank add = %d", rec.Code)
	}
	if rec = c.post("/todos/add", url.Values{"title": {"x"}, "parentId": {"missing"}}); rec.Code != http.StatusNotFound {
		t.Errorf("add under missing parent = %d, want 404", rec.Code)
	}

	if rec = c.post("/todos/add", url.Values{"title": {"Parent Task"}}); rec.Code != http.StatusSeeOther {
		t.Fatalf("add = %d: %s", rec.Code, rec.Body.String())
	}
	parentID := rowID(t, c.get("/todos").Body.String(), "Parent Task")
	c.post("/todos/add", url.Values{"title": {"Child Task"}, "parentId": {parentID}})
	childID := rowID(t, c.get("/todos").Body.String(), "Child Task")
	c.post("/todos/add", url.Values{"title": {"Grandchild Task"}, "parentId": {childID}})
	c.post("/todos/add", url.Values{"title": {"Second Root"}})

	if rec = c.post("/todos/"+childID+"/toggle", url.Values{"completed": {"true"}}); rec.Code != http.StatusSeeOther {
		t.Errorf("toggle = %d", rec.Code)
	}
	body := c.get("/todos").Body.String()
	if !strings.Contains(body, "1 of 4 tasks completed") {
		t.Errorf("stats missing from page")
	}
	if !strings.Contains(body, `data-depth="2"`) {
		t.Errorf("grandchild not rendered at depth 2")
	}
	if rec = c.post("/todos/"+childID+"/toggle", url.Values{"completed": {"maybe"}}); rec.Code != http.StatusBadRequest {
		t.Errorf("bad toggle = %d, want 400", rec.Code)
	}

	if rec = c.post("/todos/"+parentID+"/delete", nil); rec.Code != http.StatusSeeOther {
		t.Fatalf("delete = %d: %s", rec.Code, rec.Body.String())
	}
	body = c.get("/todos").Body.String()
	for _, gone := range []string{"Parent Task", "Child Task", "Grandchild Task"} {
		if strings.Contains(body, gone) {
			t.Errorf("%q survived the cascade", gone)
		}
	}
	if !strings.Contains(body, "Second Root") || !strings.Contains(body, "0 of 1 tasks completed") {
		t.Errorf("unrelated root missing after delete")
	}
	if rec = c.post("/todos/"+parentID+"/delete", nil); rec.Code != http.StatusNotFound {
		t.Errorf("delete missing = %d, want 404", rec.Code)
	}

	if rec = c.post("/logout", nil); rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Errorf("logout = %d -> %q", rec.Code, rec.Header().Get("Location"))
	}
	if rec = c.get("/todos"); rec.Code != http.StatusSeeOther {
		t.Errorf("GET /todos after logout = %d, want redirect", rec.Code)
	}
}

// rowID finds the data-testid of the row whose title is title.
func rowID(t *testing.T, body, title string) string {
	t.Helper()
	end := strings.Index(body, `<span class="todo-title">`+title+`</span>`)
	if end < 0 {
		end = strings.Index(body, `<span class="todo-title completed">`+title+`</span>`)
	}
	if end < 0 {
		t.Fatalf("no row titled %q", title)
	}
	const marker = `data-testid="todo-item-`
	start := strings.LastIndex(body[:end], marker)
	if start < 0 {
		t.Fatalf("no row marker before %q", title)
	}
	start += len(marker)
	return body[start : start+strings.Index(body[start:], `"`)]
}
