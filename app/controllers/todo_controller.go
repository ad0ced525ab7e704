package controllers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"nestodo/app/middleware"
	"nestodo/app/services"
)

// TodoController handles the todo API. Every handler runs behind
// middleware.RequireUser and is scoped to the session's user.
type TodoController struct {
	Service *services.TodoService
}

// NewTodoController creates a new TodoController.
func NewTodoController(service *services.TodoService) *TodoController {
	return &TodoController{Service: service}
}

type createTodoRequest struct {
	Title    string  `json:"title"`
	ParentID *string `json:"parentId"`
}

type updateTodoRequest struct {
	Completed *bool `json:"completed"`
}

// GetTodos handles GET /api/todos.
func (c *TodoController) GetTodos(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), ListTimeout)
	defer cancel()

	todos, err := c.Service.List(ctx, user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, todos)
}

// CreateTodo handles POST /api/todos.
func (c *TodoController) CreateTodo(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())
	var req createTodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), CreateTimeout)
	defer cancel()

	todo, err := c.Service.Create(ctx, user.ID, req.ParentID, req.Title)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, todo)
}

// UpdateTodo handles PATCH /api/todos/{todoID}.
func (c *TodoController) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())
	todoID := mux.Vars(r)["todoID"]
	var req updateTodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Completed == nil {
		middleware.WriteError(w, http.StatusBadRequest, "validation", "Validation failed",
			map[string]string{"completed": "completed is required"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), UpdateTimeout)
	defer cancel()

	todo, err := c.Service.SetCompleted(ctx, user.ID, todoID, *req.Completed)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, todo)
}

// DeleteTodo handles DELETE /api/todos/{todoID}. It removes the one record;
// clients delete descendants themselves.
func (c *TodoController) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())
	todoID := mux.Vars(r)["todoID"]
	ctx, cancel := context.WithTimeout(r.Context(), DeleteTimeout)
	defer cancel()

	if err := c.Service.Delete(ctx, user.ID, todoID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
