// Package repository defines the persistence collaborator used by the
// services, plus an in-memory implementation.
package repository

import (
	"context"
	"errors"
	"sort"

	"nestodo/app/models"
)

var (
	ErrTodoNotFound   = errors.New("todo not found")
	ErrParentNotFound = errors.New("parent todo not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailTaken     = errors.New("email already registered")
)

// TodoRepository stores todos. Every call is scoped to one owner.
type TodoRepository interface {
	// ListTodos returns the owner's todos, newest first.
	ListTodos(ctx context.Context, ownerID string) ([]models.Todo, error)
	// CreateTodo stores todo. A non-nil ParentID must name a todo of the
	// same owner.
	CreateTodo(ctx context.Context, todo *models.Todo) error
	SetCompleted(ctx context.Context, ownerID, id string, completed bool) (models.Todo, error)
	// DeleteTodo removes exactly one todo; descendants are left alone.
	DeleteTodo(ctx context.Context, ownerID, id string) error
}

// UserRepository stores accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id string) (models.User, error)
}

// Repository is a full persistence backend.
type Repository interface {
	TodoRepository
	UserRepository
	Close(ctx context.Context) error
}

// SortNewestFirst orders todos by creation time descending, ties by id.
func SortNewestFirst(todos []models.Todo) {
	sort.SliceStable(todos, func(i, j int) bool {
		if !todos[i].CreatedAt.Equal(todos[j].CreatedAt) {
			return todos[i].CreatedAt.After(todos[j].CreatedAt)
		}
		return todos[i].ID < todos[j].ID
	})
}
