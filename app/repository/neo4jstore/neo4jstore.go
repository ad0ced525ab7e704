// Package neo4jstore implements repository.Repository on Neo4j.
//
// Graph shape:
//
//	(:User {id, email, emailKey, name, passwordHash, createdAt})
//	(:Todo {id, ownerId, parentId, title, completed, createdAt, updatedAt})
//	(:Todo)-[:HAS_PARENT]->(:Todo)
//
// parentId is kept on the node as well, so a sub-task whose parent was
// deleted stays a sub-task instead of turning into a root.
package neo4jstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"nestodo/app/models"
	"nestodo/app/repository"
)

// Store handles todo and user persistence in Neo4j.
type Store struct {
	driver neo4j.DriverWithContext
}

// New creates a Store on driver and makes sure the constraints exist.
func New(ctx context.Context, driver neo4j.DriverWithContext) (*Store, error) {
	s := &Store{driver: driver}
	if err := s.ensureConstraints(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) ensureConstraints(ctx context.Context) error {
	stmts := []string{
		"CREATE CONSTRAINT todo_id IF NOT EXISTS FOR (t:Todo) REQUIRE t.id IS UNIQUE",
		"CREATE CONSTRAINT user_id IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE",
		"CREATE CONSTRAINT user_email IF NOT EXISTS FOR (u:User) REQUIRE u.emailKey IS UNIQUE",
	}
	for _, stmt := range stmts {
		if _, err := neo4j.ExecuteQuery(ctx, s.driver, stmt, nil, neo4j.EagerResultTransformer); err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
	}
	return nil
}

const returnTodo = "RETURN t.id AS id, t.ownerId AS ownerId, t.title AS title, t.completed AS completed, " +
	"t.parentId AS parentId, t.createdAt AS createdAt, t.updatedAt AS updatedAt"

const createRootTodo = "CREATE (t:Todo {id: $id, ownerId: $ownerId, title: $title, completed: $completed, " +
	"createdAt: $createdAt, updatedAt: $updatedAt})"

// createChildTodo creates nothing unless the parent exists and belongs to the
// same owner.
const createChildTodo = "MATCH (parent:Todo {id: $parentId, ownerId: $ownerId}) " +
	"CREATE (t:Todo {id: $id, ownerId: $ownerId, parentId: $parentId, title: $title, completed: $completed, " +
	"createdAt: $createdAt, updatedAt: $updatedAt})-[:HAS_PARENT]->(parent) " +
	"RETURN t.id AS id"

// ListTodos retrieves the owner's todos, newest first.
func (s *Store) ListTodos(ctx context.Context, ownerID string) ([]models.Todo, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (t:Todo {ownerId: $ownerId}) "+
				returnTodo+" ORDER BY t.createdAt DESC, t.id ASC",
			map[string]any{"ownerId": ownerID},
		)
		if err != nil {
			return nil, err
		}

		todos := []models.Todo{}
		for res.Next(ctx) {
			t, err := todoFromRecord(res.Record())
			if err != nil {
				return nil, err
			}
			todos = append(todos, t)
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return todos, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return result.([]models.Todo), nil
}

// CreateTodo adds a todo and, for sub-tasks, its HAS_PARENT relationship in
// one write transaction.
func (s *Store) CreateTodo(ctx context.Context, todo *models.Todo) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		params := map[string]any{
			"id":        todo.ID,
			"ownerId":   todo.OwnerID,
			"title":     todo.Title,
			"completed": todo.Completed,
			"createdAt": todo.CreatedAt.UTC(),
			"updatedAt": todo.UpdatedAt.UTC(),
		}

		if todo.IsRoot() {
			_, err := tx.Run(ctx, createRootTodo, params)
			return nil, err
		}

		params["parentId"] = *todo.ParentID
		res, err := tx.Run(ctx, createChildTodo, params)
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			if err := res.Err(); err != nil {
				return nil, err
			}
			return nil, repository.ErrParentNotFound
		}
		return nil, nil
	})
	if err != nil {
		return wrap("create todo", err)
	}
	return nil
}

// SetCompleted updates the completion flag of one todo.
func (s *Store) SetCompleted(ctx context.Context, ownerID, id string, completed bool) (models.Todo, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (t:Todo {id: $id, ownerId: $ownerId}) "+
				"SET t.completed = $completed, t.updatedAt = $updatedAt "+
				returnTodo,
			map[string]any{
				"id":        id,
				"ownerId":   ownerID,
				"completed": completed,
				"updatedAt": time.Now().UTC(),
			},
		)
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			if err := res.Err(); err != nil {
				return nil, err
			}
			return nil, repository.ErrTodoNotFound
		}
		return todoFromRecord(res.Record())
	})
	if err != nil {
		return models.Todo{}, wrap("update todo", err)
	}
	return result.(models.Todo), nil
}

// DeleteTodo deletes one todo and its relationships.
func (s *Store) DeleteTodo(ctx context.Context, ownerID, id string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (t:Todo {id: $id, ownerId: $ownerId}) "+
				"DETACH DELETE t "+
				"RETURN count(*) AS deleted",
			map[string]any{"id": id, "ownerId": ownerID},
		)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		deleted, _, err := neo4j.GetRecordValue[int64](record, "deleted")
		if err != nil {
			return nil, err
		}
		if deleted == 0 {
			return nil, repository.ErrTodoNotFound
		}
		return nil, nil
	})
	if err != nil {
		return wrap("delete todo", err)
	}
	return nil
}

// CreateUser stores a new account; the emailKey constraint rejects duplicates.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MERGE (u:User {emailKey: $emailKey}) "+
				"ON CREATE SET u.id = $id, u.email = $email, u.name = $name, "+
				"u.passwordHash = $passwordHash, u.createdAt = $createdAt "+
				"RETURN u.id AS id",
			map[string]any{
				"emailKey":     strings.ToLower(user.Email),
				"id":           user.ID,
				"email":        user.Email,
				"name":         user.Name,
				"passwordHash": user.PasswordHash,
				"createdAt":    user.CreatedAt.UTC(),
			},
		)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		id, _, err := neo4j.GetRecordValue[string](record, "id")
		if err != nil {
			return nil, err
		}
		if id != user.ID {
			return nil, repository.ErrEmailTaken
		}
		return nil, nil
	})
	if err != nil {
		return wrap("create user", err)
	}
	return nil
}

// UserByEmail looks an account up by its case-insensitive email.
func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findUser(ctx, "MATCH (u:User {emailKey: $key})", strings.ToLower(email))
}

// UserByID looks an account up by id.
func (s *Store) UserByID(ctx context.Context, id string) (models.User, error) {
	return s.findUser(ctx, "MATCH (u:User {id: $key})", id)
}

func (s *Store) findUser(ctx context.Context, match, key string) (models.User, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			match+" RETURN u.id AS id, u.email AS email, u.name AS name, "+
				"u.passwordHash AS passwordHash, u.createdAt AS createdAt",
			map[string]any{"key": key},
		)
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			if err := res.Err(); err != nil {
				return nil, err
			}
			return nil, repository.ErrUserNotFound
		}
		return userFromRecord(res.Record())
	})
	if err != nil {
		return models.User{}, wrap("find user", err)
	}
	return result.(models.User), nil
}

// wrap annotates driver failures but leaves repository sentinels untouched.
func wrap(op string, err error) error {
	for _, sentinel := range []error{
		repository.ErrTodoNotFound, repository.ErrParentNotFound,
		repository.ErrUserNotFound, repository.ErrEmailTaken,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
