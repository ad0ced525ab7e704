package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"nestodo/app/models"
)

// MemoryRepository keeps everything in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	users   map[string]models.User // id -> user
	byEmail map[string]string      // lower-cased email -> id
	todos   map[string]models.Todo // id -> todo
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:   make(map[string]models.User),
		byEmail: make(map[string]string),
		todos:   make(map[string]models.Todo),
	}
}

// ListTodos handles listing the owner's todos, newest first.
func (r *MemoryRepository) ListTodos(ctx context.Context, ownerID string) ([]models.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.Todo{}
	for _, t := range r.todos {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	SortNewestFirst(out)
	return out, nil
}

// CreateTodo handles storing a todo whose parent belongs to the same owner.
func (r *MemoryRepository) CreateTodo(ctx context.Context, todo *models.Todo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !todo.IsRoot() {
		parent, ok := r.todos[*todo.ParentID]
		if !ok || parent.OwnerID != todo.OwnerID {
			return ErrParentNotFound
		}
	}
	r.todos[todo.ID] = *todo
	return nil
}

// SetCompleted handles updating the completion flag of one todo.
func (r *MemoryRepository) SetCompleted(ctx context.Context, ownerID, id string, completed bool) (models.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.todos[id]
	if !ok || t.OwnerID != ownerID {
		return models.Todo{}, ErrTodoNotFound
	}
	t.Completed = completed
	t.UpdatedAt = time.Now().UTC()
	r.todos[id] = t
	return t, nil
}

// DeleteTodo handles removing exactly one todo.
func (r *MemoryRepository) DeleteTodo(ctx context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.todos[id]
	if !ok || t.OwnerID != ownerID {
		return ErrTodoNotFound
	}
	delete(r.todos, id)
	return nil
}

// CreateUser handles registering a user with a unique email.
func (r *MemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, taken := r.byEmail[key]; taken {
		return ErrEmailTaken
	}
	r.users[user.ID] = *user
	r.byEmail[key] = user.ID
	return nil
}

// UserByEmail handles looking a user up by email, case-insensitively.
func (r *MemoryRepository) UserByEmail(ctx context.Context, email string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return r.users[id], nil
}

// UserByID handles looking a user up by id.
func (r *MemoryRepository) UserByID(ctx context.Context, id string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return u, nil
}

// Close is a no-op for the in-memory store.
func (r *MemoryRepository) Close(ctx context.Context) error { return nil }
