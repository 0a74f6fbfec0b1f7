// Package neo4j is the Neo4j backend adapter. Similarity is computed
// natively in Cypher, the merge state machine runs as one statement per
// candidate triple, and relationship deletion is a hard delete.
package neo4j

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"graphmem/internal/store"
	"graphmem/pkg/errors"
	"graphmem/pkg/logger"
)

// Store is the Neo4j-backed graph store
type Store struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// New creates a store over an existing driver
func New(driver neo4j.DriverWithContext) *Store {
	return &Store{
		driver: driver,
		logger: logger.Get(),
	}
}

// Connect dials Neo4j, verifies connectivity and returns a store
func Connect(ctx context.Context, uri, user, password string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, errors.NewStoreConnectionFailed(uri, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, errors.NewStoreConnectionFailed(uri, err)
	}
	return New(driver), nil
}

// Close closes the Neo4j driver connection
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// ResolveNode returns the best node at or above threshold, or nil on no match.
func (s *Store) ResolveNode(ctx context.Context, embedding []float32, f store.Filters, threshold float64) (*store.NodeMatch, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query, params := resolveNodeQuery(f)
	params["embedding"] = toFloat64s(embedding)
	params["threshold"] = threshold

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, errors.NewStoreQueryFailed("resolve node", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, errors.NewStoreQueryFailed("resolve node", err)
		}
		return nil, nil
	}

	record := result.Record()
	return &store.NodeMatch{
		ID:         recordString(record, "id"),
		Name:       recordString(record, "name"),
		Similarity: recordFloat(record, "similarity"),
	}, nil
}

// Neighborhood returns edges in both directions around matching nodes.
func (s *Store) Neighborhood(ctx context.Context, embedding []float32, f store.Filters, threshold float64, limit int) ([]store.RelationHit, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query, params := neighborhoodQuery(f)
	params["embedding"] = toFloat64s(embedding)
	params["threshold"] = threshold
	params["limit"] = limit

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, errors.NewStoreQueryFailed("neighborhood", err)
	}

	var hits []store.RelationHit
	for result.Next(ctx) {
		record := result.Record()
		hits = append(hits, store.RelationHit{
			Source:        recordString(record, "source"),
			SourceID:      recordString(record, "source_id"),
			Relationship:  recordString(record, "relationship"),
			RelationID:    recordString(record, "relation_id"),
			Destination:   recordString(record, "destination"),
			DestinationID: recordString(record, "destination_id"),
			Similarity:    recordFloat(record, "similarity"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, errors.NewStoreQueryFailed("neighborhood", err)
	}
	return hits, nil
}

// MergeTriple executes one candidate triple as a single Cypher statement.
func (s *Store) MergeTriple(ctx context.Context, plan store.MergePlan, f store.Filters) (store.Triple, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query, params := mergeTripleQuery(plan, f)
	result, err := session.Run(ctx, query, params)
	if err != nil {
		return store.Triple{}, errors.NewStoreQueryFailed("merge triple", err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return store.Triple{}, errors.NewStoreQueryFailed("merge triple", err)
	}

	return store.Triple{
		Source:       recordString(record, "source"),
		Relationship: recordString(record, "relationship"),
		Destination:  recordString(record, "destination"),
	}, nil
}

// DeleteTriple hard-deletes the exact edge. Missing edges report Found=false.
func (s *Store) DeleteTriple(ctx context.Context, t store.Triple, f store.Filters) (store.DeleteResult, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query, params := deleteTripleQuery(t, f)
	result, err := session.Run(ctx, query, params)
	if err != nil {
		return store.DeleteResult{}, errors.NewStoreQueryFailed("delete triple", err)
	}

	found := false
	for result.Next(ctx) {
		found = true
	}
	if err := result.Err(); err != nil {
		return store.DeleteResult{}, errors.NewStoreQueryFailed("delete triple", err)
	}
	return store.DeleteResult{Triple: t, Found: found}, nil
}

// GetAll dumps the scope's edges.
func (s *Store) GetAll(ctx context.Context, f store.Filters, limit int) ([]store.Triple, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query, params := getAllQuery(f)
	params["limit"] = limit

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, errors.NewStoreQueryFailed("get all", err)
	}

	var triples []store.Triple
	for result.Next(ctx) {
		record := result.Record()
		triples = append(triples, store.Triple{
			Source:       recordString(record, "source"),
			Relationship: recordString(record, "relationship"),
			Destination:  recordString(record, "destination"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, errors.NewStoreQueryFailed("get all", err)
	}
	return triples, nil
}

// DeleteAll detach-deletes every node in the scope.
func (s *Store) DeleteAll(ctx context.Context, f store.Filters) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query, params := deleteAllQuery(f)
	if _, err := session.Run(ctx, query, params); err != nil {
		return errors.NewStoreQueryFailed("delete all", err)
	}

	s.logger.Info("Scope wiped", zap.String("user_id", f.UserID))
	return nil
}

// Reset wipes every tenant's entities.
func (s *Store) Reset(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	if _, err := session.Run(ctx, "MATCH (n:Entity) DETACH DELETE n", nil); err != nil {
		return errors.NewStoreQueryFailed("reset", err)
	}

	s.logger.Warn("Graph store reset, all tenants wiped")
	return nil
}

// Record helpers

func recordString(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func recordFloat(record *neo4j.Record, key string) float64 {
	val, ok := record.Get(key)
	if !ok {
		return 0
	}
	if f, ok := val.(float64); ok {
		return f
	}
	return 0
}
