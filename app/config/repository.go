package config

import (
	"context"
	"fmt"
	"log"

	"nestodo/app/repository"
	"nestodo/app/repository/sqlstore"
)

// OpenRepository connects the storage backend cfg.StoreDriver names.
func OpenRepository(ctx context.Context, cfg Config) (repository.Repository, error) {
	switch cfg.StoreDriver {
	case DriverMemory:
		log.Println("Using in-memory store, data is lost on restart")
		return repository.NewMemoryRepository(), nil
	case DriverNeo4j:
		return openNeo4j(ctx, cfg)
	case DriverSQLite:
		return openSQL(ctx, sqlstore.DriverSQLite, cfg.SQLitePath)
	case DriverPostgres:
		return openSQL(ctx, sqlstore.DriverPostgres, cfg.DatabaseURL)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func openSQL(ctx context.Context, driver, dsn string) (repository.Repository, error) {
	store, err := sqlstore.Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	return store, nil
}
