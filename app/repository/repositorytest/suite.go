// Package repositorytest holds behaviour checks shared by every
// repository.Repository implementation.
package repositorytest

import (
	"context"
	"errors"
	"testing"
	"time"

	"nestodo/app/models"
	"nestodo/app/repository"
)

// Run exercises repo. newRepo must return an empty repository.
func Run(t *testing.T, newRepo func(t *testing.T) repository.Repository) {
	t.Run("users", func(t *testing.T) { testUsers(t, newRepo(t)) })
	t.Run("list order and owner scope", func(t *testing.T) { testList(t, newRepo(t)) })
	t.Run("parent must belong to owner", func(t *testing.T) { testParent(t, newRepo(t)) })
	t.Run("set completed", func(t *testing.T) { testSetCompleted(t, newRepo(t)) })
	t.Run("delete single record", func(t *testing.T) { testDelete(t, newRepo(t)) })
}

var base = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func mustUser(t *testing.T, repo repository.Repository, id, email string) models.User {
	t.Helper()
	u := models.User{ID: id, Email: email, PasswordHash: "hash", CreatedAt: base}
	if err := repo.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("CreateUser(%s) error = %v", email, err)
	}
	return u
}

func mustTodo(t *testing.T, repo repository.Repository, id, owner string, parent *string, offset time.Duration) models.Todo {
	t.Helper()
	td := models.Todo{
		ID:        id,
		OwnerID:   owner,
		Title:     "task " + id,
		ParentID:  parent,
		CreatedAt: base.Add(offset),
		UpdatedAt: base.Add(offset),
	}
	if err := repo.CreateTodo(context.Background(), &td); err != nil {
		t.Fatalf("CreateTodo(%s) error = %v", id, err)
	}
	return td
}

func testUsers(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	u := mustUser(t, repo, "u1", "Ada@Example.com")

	dup := models.User{ID: "u2", Email: "ada@example.com", PasswordHash: "x", CreatedAt: base}
	if err := repo.CreateUser(ctx, &dup); !errors.Is(err, repository.ErrEmailTaken) {
		t.Errorf("CreateUser(duplicate) error = %v, want ErrEmailTaken", err)
	}

	got, err := repo.UserByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("UserByEmail() error = %v", err)
	}
	if got.ID != u.ID || got.PasswordHash != "hash" {
		t.Errorf("UserByEmail() = %+v", got)
	}
	if _, err := repo.UserByID(ctx, "u1"); err != nil {
		t.Errorf("UserByID() error = %v", err)
	}
	if _, err := repo.UserByID(ctx, "nobody"); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("UserByID(missing) error = %v, want ErrUserNotFound", err)
	}
	if _, err := repo.UserByEmail(ctx, "nobody@example.com"); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("UserByEmail(missing) error = %v, want ErrUserNotFound", err)
	}
}

func testList(t *testing.T, repo repository.Repository) {
	mustUser(t, repo, "u1", "a@example.com")
	mustUser(t, repo, "u2", "b@example.com")
	root := mustTodo(t, repo, "t1", "u1", nil, 0)
	mustTodo(t, repo, "t2", "u1", &root.ID, time.Minute)
	mustTodo(t, repo, "t3", "u2", nil, 2*time.Minute)
	mustTodo(t, repo, "t4", "u1", nil, 3*time.Minute)

	todos, err := repo.ListTodos(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListTodos() error = %v", err)
	}
	var ids []string
	for _, td := range todos {
		ids = append(ids, td.ID)
		if td.OwnerID != "u1" {
			t.Errorf("ListTodos() leaked todo %s of %s", td.ID, td.OwnerID)
		}
	}
	want := []string{"t4", "t2", "t1"}
	if len(ids) != len(want) {
		t.Fatalf("ListTodos() ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ListTodos() ids = %v, want %v", ids, want)
		}
	}
	if todos[1].ParentID == nil || *todos[1].ParentID != "t1" {
		t.Errorf("child ParentID = %v, want t1", todos[1].ParentID)
	}
	if todos[0].ParentID != nil {
		t.Errorf("root ParentID = %v, want nil", *todos[0].ParentID)
	}

	empty, err := repo.ListTodos(context.Background(), "nobody")
	if err != nil || len(empty) != 0 {
		t.Errorf("ListTodos(nobody) = %v, %v", empty, err)
	}
}

func testParent(t *testing.T, repo repository.Repository) {
	mustUser(t, repo, "u1", "a@example.com")
	mustUser(t, repo, "u2", "b@example.com")
	other := mustTodo(t, repo, "t1", "u2", nil, 0)

	for _, parent := range []string{"missing", other.ID} {
		p := parent
		td := models.Todo{ID: "c-" + p, OwnerID: "u1", Title: "child", ParentID: &p, CreatedAt: base, UpdatedAt: base}
		if err := repo.CreateTodo(context.Background(), &td); !errors.Is(err, repository.ErrParentNotFound) {
			t.Errorf("CreateTodo(parent %s) error = %v, want ErrParentNotFound", p, err)
		}
	}
}

func testSetCompleted(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	mustUser(t, repo, "u1", "a@example.com")
	mustUser(t, repo, "u2", "b@example.com")
	mustTodo(t, repo, "t1", "u1", nil, 0)

	got, err := repo.SetCompleted(ctx, "u1", "t1", true)
	if err != nil {
		t.Fatalf("SetCompleted() error = %v", err)
	}
	if !got.Completed || got.Title != "task t1" {
		t.Errorf("SetCompleted() = %+v", got)
	}
	if _, err := repo.SetCompleted(ctx, "u2", "t1", false); !errors.Is(err, repository.ErrTodoNotFound) {
		t.Errorf("SetCompleted(other owner) error = %v, want ErrTodoNotFound", err)
	}
	todos, _ := repo.ListTodos(ctx, "u1")
	if len(todos) != 1 || !todos[0].Completed {
		t.Errorf("ListTodos() after toggle = %+v", todos)
	}
}

func testDelete(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	mustUser(t, repo, "u1", "a@example.com")
	root := mustTodo(t, repo, "t1", "u1", nil, 0)
	mustTodo(t, repo, "t2", "u1", &root.ID, time.Minute)

	if err := repo.DeleteTodo(ctx, "u2", "t2"); !errors.Is(err, repository.ErrTodoNotFound) {
		t.Errorf("DeleteTodo(other owner) error = %v, want ErrTodoNotFound", err)
	}
	if err := repo.DeleteTodo(ctx, "u1", "t2"); err != nil {
		t.Fatalf("DeleteTodo() error = %v", err)
	}
	if err := repo.DeleteTodo(ctx, "u1", "t2"); !errors.Is(err, repository.ErrTodoNotFound) {
		t.Errorf("DeleteTodo(again) error = %v, want ErrTodoNotFound", err)
	}
	todos, _ := repo.ListTodos(ctx, "u1")
	if len(todos) != 1 || todos[0].ID != "t1" {
		t.Errorf("ListTodos() after delete = %+v", todos)
	}
}
