package controllers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"nestodo/app/middleware"
	"nestodo/app/models"
	"nestodo/app/render"
	"nestodo/app/services"
	"nestodo/app/todostore"
)

// PageController serves the HTML pages. Todo intents go through one
// todostore.Store per signed-in user, shared by that user's requests in flight.
type PageController struct {
	Sessions *AuthController
	Todos    *services.TodoService
	Pages    *render.Pages

	mu     sync.Mutex
	stores map[string]*userStore
}

type userStore struct {
	store *todostore.Store
	refs  int
}

// NewPageController creates a new PageController.
func NewPageController(sessions *AuthController, todos *services.TodoService, pages *render.Pages) *PageController {
	return &PageController{
		Sessions: sessions,
		Todos:    todos,
		Pages:    pages,
		stores:   make(map[string]*userStore),
	}
}

// acquire returns the user's store. Every call must be paired with release.
func (c *PageController) acquire(user models.User) *todostore.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	us, ok := c.stores[user.ID]
	if !ok {
		us = &userStore{store: todostore.New(todostore.ServiceBackend{Todos: c.Todos}, user)}
		c.stores[user.ID] = us
	}
	us.refs++
	return us.store
}

// release forgets the user's store once no request holds it.
func (c *PageController) release(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	us, ok := c.stores[userID]
	if !ok {
		return
	}
	us.refs--
	if us.refs <= 0 {
		delete(c.stores, userID)
	}
}

// renderHTML buffers the page so a template error can still become a 500.
func renderHTML(w http.ResponseWriter, status int, page func(io.Writer) error) {
	var buf bytes.Buffer
	if err := page(&buf); err != nil {
		log.Printf("Failed to render page: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (c *PageController) renderAuth(w http.ResponseWriter, status int, data render.AuthPage) {
	renderHTML(w, status, func(out io.Writer) error { return c.Pages.Auth(out, data) })
}

func (c *PageController) renderTodos(w http.ResponseWriter, status int, s *todostore.Store, msg string) {
	data := render.NewTodosPage(s.Owner(), s.Todos(), msg)
	renderHTML(w, status, func(out io.Writer) error { return c.Pages.Todos(out, data) })
}

// Landing handles GET /.
func (c *PageController) Landing(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserFrom(r.Context()); ok {
		http.Redirect(w, r, "/todos", http.StatusFound)
		return
	}
	renderHTML(w, http.StatusOK, c.Pages.Landing)
}

// LoginForm handles GET /login.
func (c *PageController) LoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserFrom(r.Context()); ok {
		http.Redirect(w, r, "/todos", http.StatusFound)
		return
	}
	c.renderAuth(w, http.StatusOK, render.AuthPage{})
}

// Login handles POST /login.
func (c *PageController) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		c.renderAuth(w, http.StatusBadRequest, render.AuthPage{General: "Invalid form submission"})
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	page := render.AuthPage{Email: email}

	ctx, cancel := context.WithTimeout(r.Context(), AuthTimeout)
	defer cancel()
	session, err := c.Sessions.Service.Login(ctx, email, r.PostFormValue("password"))
	var fe services.FieldErrors
	switch {
	case err == nil:
		c.Sessions.setSessionCookie(w, session)
		http.Redirect(w, r, "/todos", http.StatusSeeOther)
	case errors.As(err, &fe):
		page.Errors = fe
		c.renderAuth(w, http.StatusBadRequest, page)
	case errors.Is(err, services.ErrInvalidCredentials):
		page.General = "Invalid email or password"
		c.renderAuth(w, http.StatusUnauthorized, page)
	default:
		log.Printf("login: %v", err)
		page.General = "Login failed. Please try again."
		c.renderAuth(w, http.StatusInternalServerError, page)
	}
}

// SignupForm handles GET /signup.
func (c *PageController) SignupForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserFrom(r.Context()); ok {
		http.Redirect(w, r, "/todos", http.StatusFound)
		return
	}
	c.renderAuth(w, http.StatusOK, render.AuthPage{Signup: true})
}

// Signup handles POST /signup. A new account is signed in right away.
func (c *PageController) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		c.renderAuth(w, http.StatusBadRequest, render.AuthPage{Signup: true, General: "Invalid form submission"})
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	name := strings.TrimSpace(r.PostFormValue("name"))
	password := r.PostFormValue("password")
	page := render.AuthPage{Signup: true, Email: email, Name: name}

	if err := services.ValidateSignupForm(email, password, r.PostFormValue("confirmPassword")); err != nil {
		page.Errors = err.(services.FieldErrors)
		c.renderAuth(w, http.StatusBadRequest, page)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), AuthTimeout)
	defer cancel()
	_, err := c.Sessions.Service.Signup(ctx, email, password, name)
	if errors.Is(err, services.ErrAccountExists) {
		page.Errors = map[string]string{"email": "An account with this email already exists"}
		c.renderAuth(w, http.StatusConflict, page)
		return
	}
	if err != nil {
		log.Printf("signup: %v", err)
		page.General = "Signup failed. Please try again."
		c.renderAuth(w, http.StatusInternalServerError, page)
		return
	}

	session, err := c.Sessions.Service.Login(ctx, email, password)
	if err != nil {
		log.Printf("login after signup: %v", err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	c.Sessions.setSessionCookie(w, session)
	http.Redirect(w, r, "/todos", http.StatusSeeOther)
}

// Logout handles POST /logout.
func (c *PageController) Logout(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserFrom(r.Context()); ok {
		if err := c.Sessions.Service.Logout(middleware.TokenFrom(r.Context())); err != nil {
			log.Printf("logout: %v", err)
		}
	}
	c.Sessions.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// TodosPage handles GET /todos.
func (c *PageController) TodosPage(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())
	s := c.acquire(user)
	defer c.release(user.ID)
	ctx, cancel := context.WithTimeout(r.Context(), ListTimeout)
	defer cancel()
	if err := s.Load(ctx); err != nil {
		log.Printf("load todos for %s: %v", user.ID, err)
		c.renderTodos(w, http.StatusInternalServerError, s, "Failed to load tasks. Please refresh the page.")
		return
	}
	c.renderTodos(w, http.StatusOK, s, "")
}

// intent loads the user's store, runs fn against it and either redirects
// back to the list or re-renders it with the failure.
func (c *PageController) intent(w http.ResponseWriter, r *http.Request, fn func(context.Context, *todostore.Store) error) {
	user, _ := middleware.UserFrom(r.Context())
	s := c.acquire(user)
	defer c.release(user.ID)
	if err := r.ParseForm(); err != nil {
		c.renderTodos(w, http.StatusBadRequest, s, "Invalid form submission")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), ListTimeout+DeleteTimeout)
	defer cancel()
	if err := s.Load(ctx); err != nil {
		log.Printf("load todos for %s: %v", user.ID, err)
		c.renderTodos(w, http.StatusInternalServerError, s, "Failed to load tasks. Please refresh the page.")
		return
	}
	if err := fn(ctx, s); err != nil {
		status, msg := pageError(err)
		if status >= http.StatusInternalServerError {
			log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		}
		c.renderTodos(w, status, s, msg)
		return
	}
	http.Redirect(w, r, "/todos", http.StatusSeeOther)
}

// AddTodo handles POST /todos/add.
func (c *PageController) AddTodo(w http.ResponseWriter, r *http.Request) {
	c.intent(w, r, func(ctx context.Context, s *todostore.Store) error {
		var parentID *string
		if p := r.PostFormValue("parentId"); p != "" {
			parentID = &p
		}
		_, err := s.Add(ctx, parentID, r.PostFormValue("title"))
		return err
	})
}

// ToggleTodo handles POST /todos/{todoID}/toggle.
func (c *PageController) ToggleTodo(w http.ResponseWriter, r *http.Request) {
	todoID := mux.Vars(r)["todoID"]
	c.intent(w, r, func(ctx context.Context, s *todostore.Store) error {
		completed, err := strconv.ParseBool(r.PostFormValue("completed"))
		if err != nil {
			return &todostore.ValidationError{Field: "completed", Message: "Invalid completion state"}
		}
		return s.Toggle(ctx, todoID, completed)
	})
}

// DeleteTodo handles POST /todos/{todoID}/delete. Sub-tasks go with it.
func (c *PageController) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	todoID := mux.Vars(r)["todoID"]
	c.intent(w, r, func(ctx context.Context, s *todostore.Store) error {
		return s.Delete(ctx, todoID)
	})
}

// pageError turns a facade error into a status and banner text.
func pageError(err error) (int, string) {
	var (
		ve   *todostore.ValidationError
		cerr *todostore.CascadeError
		rerr *todostore.RequestError
	)
	switch {
	case errors.As(err, &cerr):
		return http.StatusBadGateway, "Failed to delete task"
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Message
	case errors.Is(err, todostore.ErrUnknownParent):
		return http.StatusNotFound, "Parent task not found"
	case errors.Is(err, todostore.ErrNotFound):
		return http.StatusNotFound, "Task not found"
	case errors.Is(err, todostore.ErrBusy):
		return http.StatusConflict, "This task is still being updated. Please try again."
	case errors.As(err, &rerr) && rerr.Op == "add":
		return http.StatusBadGateway, "Failed to add task"
	case errors.As(err, &rerr) && rerr.Op == "toggle":
		return http.StatusBadGateway, "Failed to update task"
	}
	return http.StatusInternalServerError, "Something went wrong. Please try again."
}
