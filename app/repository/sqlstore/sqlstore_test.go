package sqlstore

import (
	"context"
	"testing"

	"nestodo/app/repository"
	"nestodo/app/repository/repositorytest"
)

func TestSQLiteStore(t *testing.T) {
	repositorytest.Run(t, func(t *testing.T) repository.Repository {
		s, err := Open(context.Background(), DriverSQLite, ":memory:")
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		t.Cleanup(func() { s.Close(context.Background()) })
		return s
	})
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: DriverPostgres}
	got := pg.rebind("UPDATE todos SET completed = ? WHERE id = ? AND owner_id = ?")
	want := "UPDATE todos SET completed = $1 WHERE id = $2 AND owner_id = $3"
	if got != want {
		t.Errorf("rebind() = %q, want %q", got, want)
	}
	lite := &Store{driver: DriverSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind() = %q", got)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", ""); err == nil {
		t.Fatal("Open(mysql) error = nil")
	}
}
