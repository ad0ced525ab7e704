package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"nestodo/app/models"
	"nestodo/app/repository"
)

// TodoService handles owner-scoped todo operations.
type TodoService struct {
	repo repository.TodoRepository
	now  func() time.Time
}

// NewTodoService creates a new instance of TodoService.
func NewTodoService(repo repository.TodoRepository) *TodoService {
	return &TodoService{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// List retrieves the owner's todos, newest first.
func (s *TodoService) List(ctx context.Context, ownerID string) ([]models.Todo, error) {
	return s.repo.ListTodos(ctx, ownerID)
}

// Create adds a todo for ownerID, optionally below parentID.
func (s *TodoService) Create(ctx context.Context, ownerID string, parentID *string, title string) (models.Todo, error) {
	title, err := ValidateTitle(title)
	if err != nil {
		return models.Todo{}, err
	}
	if parentID != nil && *parentID == "" {
		parentID = nil
	}

	now := s.now()
	todo := models.Todo{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     title,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateTodo(ctx, &todo); err != nil {
		return models.Todo{}, err
	}
	return todo, nil
}

// SetCompleted updates the completion flag of one of the owner's todos.
func (s *TodoService) SetCompleted(ctx context.Context, ownerID, id string, completed bool) (models.Todo, error) {
	return s.repo.SetCompleted(ctx, ownerID, id, completed)
}

// Delete removes a single todo of the owner. Descendants are the caller's
// concern.
func (s *TodoService) Delete(ctx context.Context, ownerID, id string) error {
	return s.repo.DeleteTodo(ctx, ownerID, id)
}
