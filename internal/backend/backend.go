// Package backend opens the configured graph store behind the uniform
// adapter contract.
package backend

import (
	"context"

	"graphmem/internal/store"
	"graphmem/internal/store/neo4j"
	"graphmem/internal/store/sqlite"
	"graphmem/pkg/config"
	"graphmem/pkg/errors"
)

// Open returns the store named by cfg.GraphStore.
func Open(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.GraphStore {
	case config.BackendNeo4j:
		return neo4j.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	case config.BackendSQLite:
		return sqlite.New(cfg.SQLitePath)
	default:
		return nil, errors.NewUnknownBackend(cfg.GraphStore)
	}
}
