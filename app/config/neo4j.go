package config

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"nestodo/app/repository"
	"nestodo/app/repository/neo4jstore"
)

// InitNeo4j initializes the Neo4j driver and returns it.
func InitNeo4j(cfg Config) (neo4j.DriverWithContext, error) {
	return neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""))
}

// openNeo4j connects, checks the server is reachable and prepares the schema.
func openNeo4j(ctx context.Context, cfg Config) (repository.Repository, error) {
	driver, err := InitNeo4j(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Neo4j connection: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to reach Neo4j at %s: %w", cfg.Neo4jURI, err)
	}
	store, err := neo4jstore.New(ctx, driver)
	if err != nil {
		driver.Close(ctx)
		return nil, err
	}
	return store, nil
}
