// Package sqlstore implements repository.Repository on database/sql for
// SQLite and PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"nestodo/app/models"
	"nestodo/app/repository"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Store is a SQL-backed repository.
type Store struct {
	conn   *sql.DB
	driver string
}

// Open connects to dsn with driver and creates the schema.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// One connection keeps ":memory:" databases shared and serializes
		// writers the way SQLite wants anyway.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{conn: conn, driver: driver}
	if err := s.initSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	log.Printf("sql store ready (%s)", driver)
	return s, nil
}

// Close closes the connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.conn.Close()
}

// initSchema creates the tables. parent_id carries no foreign key: a cascade
// deletes parent and children concurrently in no particular order.
func (s *Store) initSchema(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			email_key TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS todos (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			parent_id TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_todos_owner ON todos(owner_id, created_at DESC)`,
	}
	for _, stmt := range schema {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const todoColumns = "id, owner_id, title, completed, parent_id, created_at, updated_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(row scanner) (models.Todo, error) {
	var (
		t      models.Todo
		parent sql.NullString
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Completed, &parent, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return models.Todo{}, err
	}
	if parent.Valid {
		p := parent.String
		t.ParentID = &p
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

// ListTodos retrieves the owner's todos, newest first.
func (s *Store) ListTodos(ctx context.Context, ownerID string) ([]models.Todo, error) {
	rows, err := s.conn.QueryContext(ctx,
		s.rebind("SELECT "+todoColumns+" FROM todos WHERE owner_id = ? ORDER BY created_at DESC, id ASC"),
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	defer rows.Close()

	todos := []models.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate todos: %w", err)
	}
	return todos, nil
}

// CreateTodo inserts a todo after checking its parent belongs to the same owner.
func (s *Store) CreateTodo(ctx context.Context, todo *models.Todo) (err error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var parent any
	if !todo.IsRoot() {
		var n int
		err = tx.QueryRowContext(ctx,
			s.rebind("SELECT COUNT(*) FROM todos WHERE id = ? AND owner_id = ?"),
			*todo.ParentID, todo.OwnerID,
		).Scan(&n)
		if err != nil {
			return fmt.Errorf("failed to look up parent: %w", err)
		}
		if n == 0 {
			err = repository.ErrParentNotFound
			return err
		}
		parent = *todo.ParentID
	}

	_, err = tx.ExecContext(ctx,
		s.rebind("INSERT INTO todos ("+todoColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)"),
		todo.ID, todo.OwnerID, todo.Title, todo.Completed, parent, todo.CreatedAt.UTC(), todo.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create todo: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit todo: %w", err)
	}
	return nil
}

// SetCompleted updates the completion flag of one todo.
func (s *Store) SetCompleted(ctx context.Context, ownerID, id string, completed bool) (models.Todo, error) {
	res, err := s.conn.ExecContext(ctx,
		s.rebind("UPDATE todos SET completed = ?, updated_at = ? WHERE id = ? AND owner_id = ?"),
		completed, time.Now().UTC(), id, ownerID,
	)
	if err != nil {
		return models.Todo{}, fmt.Errorf("failed to update todo: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return models.Todo{}, fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		return models.Todo{}, repository.ErrTodoNotFound
	}

	t, err := scanTodo(s.conn.QueryRowContext(ctx,
		s.rebind("SELECT "+todoColumns+" FROM todos WHERE id = ? AND owner_id = ?"),
		id, ownerID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Todo{}, repository.ErrTodoNotFound
	}
	if err != nil {
		return models.Todo{}, fmt.Errorf("failed to read todo: %w", err)
	}
	return t, nil
}

// DeleteTodo deletes exactly one todo.
func (s *Store) DeleteTodo(ctx context.Context, ownerID, id string) error {
	res, err := s.conn.ExecContext(ctx,
		s.rebind("DELETE FROM todos WHERE id = ? AND owner_id = ?"),
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrTodoNotFound
	}
	return nil
}

// CreateUser inserts a user, rejecting a taken email.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	key := strings.ToLower(user.Email)

	var n int
	err := s.conn.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM users WHERE email_key = ?"), key).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if n > 0 {
		return repository.ErrEmailTaken
	}

	_, err = s.conn.ExecContext(ctx,
		s.rebind("INSERT INTO users (id, email, email_key, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)"),
		user.ID, user.Email, key, user.Name, user.PasswordHash, user.CreatedAt.UTC(),
	)
	if err != nil {
		// Lost a race against a concurrent signup for the same address.
		if isUniqueViolation(err) {
			return repository.ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique")
}

func (s *Store) userWhere(ctx context.Context, where string, arg any) (models.User, error) {
	var u models.User
	err := s.conn.QueryRowContext(ctx,
		s.rebind("SELECT id, email, name, password_hash, created_at FROM users WHERE "+where),
		arg,
	).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, repository.ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to read user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

// UserByEmail retrieves a user by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.userWhere(ctx, "email_key = ?", strings.ToLower(email))
}

// UserByID retrieves a user by id.
func (s *Store) UserByID(ctx context.Context, id string) (models.User, error) {
	return s.userWhere(ctx, "id = ?", id)
}
