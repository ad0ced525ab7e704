package todostore

import (
	"context"
	"errors"

	"nestodo/app/models"
	"nestodo/app/repository"
	"nestodo/app/services"
)

// ServiceBackend runs intents in-process against services.TodoService. The
// server-rendered pages use it.
type ServiceBackend struct {
	Todos *services.TodoService
}

// ListTodos returns the owner's todos from the service.
func (b ServiceBackend) ListTodos(ctx context.Context, ownerID string) ([]models.Todo, error) {
	return b.Todos.List(ctx, ownerID)
}

// CreateTodo creates a todo through the service.
func (b ServiceBackend) CreateTodo(ctx context.Context, ownerID string, parentID *string, title string) (models.Todo, error) {
	t, err := b.Todos.Create(ctx, ownerID, parentID, title)
	return t, translate(err)
}

// UpdateTodo sets the completion flag through the service.
func (b ServiceBackend) UpdateTodo(ctx context.Context, ownerID, id string, completed bool) (models.Todo, error) {
	t, err := b.Todos.SetCompleted(ctx, ownerID, id, completed)
	return t, translate(err)
}

// DeleteTodo deletes one todo through the service.
func (b ServiceBackend) DeleteTodo(ctx context.Context, ownerID, id string) error {
	return translate(b.Todos.Delete(ctx, ownerID, id))
}

// translate maps service and repository errors onto this package's errors.
func translate(err error) error {
	var fe services.FieldErrors
	switch {
	case err == nil:
		return nil
	case errors.As(err, &fe):
		return validationFromFields(fe)
	case errors.Is(err, repository.ErrTodoNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrParentNotFound):
		return ErrUnknownParent
	}
	return err
}

func validationFromFields(fields map[string]string) *ValidationError {
	ve := &ValidationError{Fields: fields, Message: "validation failed"}
	for _, f := range []string{"title", "email", "password", "confirmPassword"} {
		if msg, ok := fields[f]; ok {
			ve.Field, ve.Message = f, msg
			break
		}
	}
	return ve
}
