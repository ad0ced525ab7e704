package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"nestodo/app/controllers"
	"nestodo/app/middleware"
	"nestodo/app/notify"
	"nestodo/app/render"
	"nestodo/app/repository"
	"nestodo/app/services"
)

// Controllers bundles everything RegisterRoutes wires up.
type Controllers struct {
	Auth  *controllers.AuthController
	Todos *controllers.TodoController
	Pages *controllers.PageController
}

// RegisterRoutes sets up all routes for the application.
func RegisterRoutes(router *mux.Router, c Controllers) {
	router.Use(middleware.Recover, middleware.Logging, middleware.Session(c.Auth.Service))

	router.HandleFunc("/health", controllers.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/account", c.Auth.Signup).Methods(http.MethodPost)
	api.HandleFunc("/session", c.Auth.Login).Methods(http.MethodPost)

	private := api.NewRoute().Subrouter()
	private.Use(middleware.RequireUser)
	private.HandleFunc("/session", c.Auth.Current).Methods(http.MethodGet)
	private.HandleFunc("/session", c.Auth.Logout).Methods(http.MethodDelete)
	private.HandleFunc("/todos", c.Todos.GetTodos).Methods(http.MethodGet)
	private.HandleFunc("/todos", c.Todos.CreateTodo).Methods(http.MethodPost)
	private.HandleFunc("/todos/{todoID}", c.Todos.UpdateTodo).Methods(http.MethodPatch)
	private.HandleFunc("/todos/{todoID}", c.Todos.DeleteTodo).Methods(http.MethodDelete)

	router.HandleFunc("/", c.Pages.Landing).Methods(http.MethodGet)
	router.HandleFunc("/login", c.Pages.LoginForm).Methods(http.MethodGet)
	router.HandleFunc("/login", c.Pages.Login).Methods(http.MethodPost)
	router.HandleFunc("/signup", c.Pages.SignupForm).Methods(http.MethodGet)
	router.HandleFunc("/signup", c.Pages.Signup).Methods(http.MethodPost)
	router.HandleFunc("/logout", c.Pages.Logout).Methods(http.MethodPost)

	pages := router.NewRoute().Subrouter()
	pages.Use(middleware.RequirePage)
	pages.HandleFunc("/todos", c.Pages.TodosPage).Methods(http.MethodGet)
	pages.HandleFunc("/todos/add", c.Pages.AddTodo).Methods(http.MethodPost)
	pages.HandleFunc("/todos/{todoID}/toggle", c.Pages.ToggleTodo).Methods(http.MethodPost)
	pages.HandleFunc("/todos/{todoID}/delete", c.Pages.DeleteTodo).Methods(http.MethodPost)
}

// Deps are the collaborators the application is built from.
type Deps struct {
	Repo         repository.Repository
	Notifier     notify.Notifier
	Auth         services.AuthConfig
	SecureCookie bool
}

// NewRouter builds the services and controllers over deps and returns the
// fully routed handler.
func NewRouter(deps Deps) *mux.Router {
	authService := services.NewAuthService(deps.Repo, deps.Notifier, deps.Auth)
	todoService := services.NewTodoService(deps.Repo)

	authController := controllers.NewAuthController(authService, deps.SecureCookie)
	router := mux.NewRouter()
	RegisterRoutes(router, Controllers{
		Auth:  authController,
		Todos: controllers.NewTodoController(todoService),
		Pages: controllers.NewPageController(authController, todoService, render.NewPages()),
	})
	return router
}
