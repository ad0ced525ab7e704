// Package todostore keeps a user's todos in memory and mediates add, toggle
// and delete intents against the persistence backend.
package todostore

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"nestodo/app/models"
	"nestodo/app/tree"
)

// Backend is the persistence collaborator. Implementations must scope every
// call to ownerID.
type Backend interface {
	ListTodos(ctx context.Context, ownerID string) ([]models.Todo, error)
	CreateTodo(ctx context.Context, ownerID string, parentID *string, title string) (models.Todo, error)
	UpdateTodo(ctx context.Context, ownerID, id string, completed bool) (models.Todo, error)
	DeleteTodo(ctx context.Context, ownerID, id string) error
}

// Store mirrors the last known server state of one user's todos.
type Store struct {
	backend Backend
	owner   models.User

	mu       sync.Mutex
	todos    []models.Todo
	inflight map[string]struct{}
}

// New returns an empty Store for owner. Call Load to fill it.
func New(backend Backend, owner models.User) *Store {
	return &Store{
		backend:  backend,
		owner:    owner,
		inflight: make(map[string]struct{}),
	}
}

// Owner returns the user the store belongs to.
func (s *Store) Owner() models.User { return s.owner }

// Todos returns a copy of the local collection.
func (s *Store) Todos() []models.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Todo(nil), s.todos...)
}

// Stats recomputes "completed of total" from local state.
func (s *Store) Stats() models.Stats {
	return tree.StatsOf(s.Todos())
}

// Load replaces the local collection with the backend's.
func (s *Store) Load(ctx context.Context) error {
	todos, err := s.backend.ListTodos(ctx, s.owner.ID)
	if err != nil {
		return &RequestError{Op: "load", Err: err}
	}
	s.mu.Lock()
	s.todos = todos
	s.mu.Unlock()
	return nil
}

// begin claims key for one in-flight intent.
func (s *Store) begin(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return ErrBusy
	}
	s.inflight[key] = struct{}{}
	return nil
}

func (s *Store) end(key string) {
	s.mu.Lock()
	delete(s.inflight, key)
	s.mu.Unlock()
}

func (s *Store) contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := tree.Find(s.todos, id)
	return ok
}

// Add creates a todo under parentID (nil for a root task). The new todo is
// prepended once the backend has confirmed it.
func (s *Store) Add(ctx context.Context, parentID *string, title string) (models.Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Todo{}, &ValidationError{Field: "title", Message: "Title cannot be empty"}
	}
	if parentID != nil && *parentID == "" {
		parentID = nil
	}

	key := "add:"
	if parentID != nil {
		if !s.contains(*parentID) {
			return models.Todo{}, ErrUnknownParent
		}
		key += *parentID
	}
	if err := s.begin(key); err != nil {
		return models.Todo{}, err
	}
	defer s.end(key)

	todo, err := s.backend.CreateTodo(ctx, s.owner.ID, parentID, title)
	if err != nil {
		return models.Todo{}, &RequestError{Op: "add", Err: err}
	}

	s.mu.Lock()
	s.todos = append([]models.Todo{todo}, s.todos...)
	s.mu.Unlock()
	return todo, nil
}

// Toggle sets the completion flag of id. Local state changes only after the
// backend accepted the update.
func (s *Store) Toggle(ctx context.Context, id string, completed bool) error {
	if !s.contains(id) {
		return ErrNotFound
	}
	key := "todo:" + id
	if err := s.begin(key); err != nil {
		return err
	}
	defer s.end(key)

	if _, err := s.backend.UpdateTodo(ctx, s.owner.ID, id, completed); err != nil {
		return &RequestError{Op: "toggle", Err: err}
	}

	s.mu.Lock()
	for i := range s.todos {
		if s.todos[i].ID == id {
			s.todos[i].Completed = completed
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// Delete removes id and every descendant. All deletions are sent at once;
// the intent succeeds only if each of them does. On success the whole set
// leaves local state in one step. On failure the collection is reloaded from
// the backend, since some deletions may have been applied.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	snapshot := s.todos
	s.mu.Unlock()

	idx := tree.NewIndex(snapshot)
	if !idx.Contains(id) {
		return ErrNotFound
	}
	key := "todo:" + id
	if err := s.begin(key); err != nil {
		return err
	}
	defer s.end(key)

	ids := idx.DeletionSet(id)

	var (
		g        errgroup.Group
		failedMu sync.Mutex
		failed   = map[string]error{}
	)
	for _, docID := range ids {
		g.Go(func() error {
			if err := s.backend.DeleteTodo(ctx, s.owner.ID, docID); err != nil {
				failedMu.Lock()
				failed[docID] = err
				failedMu.Unlock()
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		cerr := &CascadeError{Requested: ids, Failed: failed}
		if rerr := s.Load(ctx); rerr != nil {
			cerr.Reload = rerr
		}
		return cerr
	}

	gone := make(map[string]struct{}, len(ids))
	for _, docID := range ids {
		gone[docID] = struct{}{}
	}
	s.mu.Lock()
	kept := make([]models.Todo, 0, len(s.todos))
	for _, t := range s.todos {
		if _, ok := gone[t.ID]; !ok {
			kept = append(kept, t)
		}
	}
	s.todos = kept
	s.mu.Unlock()
	return nil
}
