// Package sqlite is the SQLite backend adapter. SQLite has no native vector
// index, so entity resolution is the documented brute-force path: fetch the
// scope's embeddings and score them in process. Relationship deletion is a
// soft delete (valid flag); DeleteAll and Reset are hard wipes.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"graphmem/internal/store"
	"graphmem/pkg/errors"
	"graphmem/pkg/logger"
)

// Store is the SQLite-backed graph store. A single mutex serializes writes;
// SQLite allows one writer at a time anyway.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	logger *zap.Logger
}

// New opens (or creates) the store at path. Use ":memory:" for tests.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.NewStoreConnectionFailed(path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.NewStoreConnectionFailed(path, err)
	}

	return &Store{db: db, logger: logger.Get()}, nil
}

// Close closes the database connection
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// scopeClause builds the WHERE fragment for a tenant scope from the closed
// set of optional predicates. Only provided keys constrain the query.
func scopeClause(prefix string, f store.Filters) (string, []interface{}) {
	col := func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + "." + name
	}

	conditions := []string{col("user_id") + " = ?"}
	args := []interface{}{f.UserID}
	if f.AgentID != "" {
		conditions = append(conditions, col("agent_id")+" = ?")
		args = append(args, f.AgentID)
	}
	if f.RunID != "" {
		conditions = append(conditions, col("run_id")+" = ?")
		args = append(args, f.RunID)
	}
	return strings.Join(conditions, " AND "), args
}

// nullable maps an absent scope key to NULL so it never matches a provided one
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

type scoredNode struct {
	id         string
	name       string
	similarity float64
}

// scanNodes runs the brute-force similarity pass over every embedded node in
// scope. Results keep backend iteration order (creation order) so ties break
// deterministically.
func (s *Store) scanNodes(ctx context.Context, embedding []float32, f store.Filters, threshold float64) ([]scoredNode, error) {
	clause, args := scopeClause("", f)
	query := fmt.Sprintf("SELECT id, name, embedding FROM nodes WHERE %s ORDER BY created, id", clause)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewStoreQueryFailed("scan nodes", err)
	}
	defer rows.Close()

	var matches []scoredNode
	for rows.Next() {
		var id, name, rawEmbedding string
		if err := rows.Scan(&id, &name, &rawEmbedding); err != nil {
			return nil, errors.NewStoreQueryFailed("scan nodes", err)
		}
		// A node with an unreadable embedding scores 0 and never matches
		var nodeEmbedding []float32
		_ = json.Unmarshal([]byte(rawEmbedding), &nodeEmbedding)

		similarity := store.Cosine(embedding, nodeEmbedding)
		if similarity >= threshold {
			matches = append(matches, scoredNode{id: id, name: name, similarity: similarity})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreQueryFailed("scan nodes", err)
	}
	return matches, nil
}

// ResolveNode returns the best-scoring node at or above threshold, or nil.
func (s *Store) ResolveNode(ctx context.Context, embedding []float32, f store.Filters, threshold float64) (*store.NodeMatch, error) {
	matches, err := s.scanNodes(ctx, embedding, f, threshold)
	if err != nil {
		return nil, err
	}

	var best *store.NodeMatch
	for _, m := range matches {
		// Strict greater-than keeps the first-seen node on ties
		if best == nil || m.similarity > best.Similarity {
			best = &store.NodeMatch{ID: m.id, Name: m.name, Similarity: m.similarity}
		}
	}
	return best, nil
}

// Neighborhood returns valid edges in both directions around matching nodes.
func (s *Store) Neighborhood(ctx context.Context, embedding []float32, f store.Filters, threshold float64, limit int) ([]store.RelationHit, error) {
	matches, err := s.scanNodes(ctx, embedding, f, threshold)
	if err != nil {
		return nil, err
	}

	var hits []store.RelationHit
	for _, m := range matches {
		outgoing, err := s.incidentEdges(ctx, m, true)
		if err != nil {
			return nil, err
		}
		incoming, err := s.incidentEdges(ctx, m, false)
		if err != nil {
			return nil, err
		}
		hits = append(hits, outgoing...)
		hits = append(hits, incoming...)
		if limit > 0 && len(hits) >= limit {
			hits = hits[:limit]
			break
		}
	}
	return hits, nil
}

// incidentEdges lists valid edges touching the node in one direction.
func (s *Store) incidentEdges(ctx context.Context, node scoredNode, outgoing bool) ([]store.RelationHit, error) {
	var query string
	if outgoing {
		query = `SELECT e.id, e.relationship, s.name, s.id, d.name, d.id
			FROM edges e
			JOIN nodes s ON s.id = e.source_id
			JOIN nodes d ON d.id = e.destination_id
			WHERE e.valid = 1 AND e.source_id = ?
			ORDER BY e.created, e.id`
	} else {
		query = `SELECT e.id, e.relationship, s.name, s.id, d.name, d.id
			FROM edges e
			JOIN nodes s ON s.id = e.source_id
			JOIN nodes d ON d.id = e.destination_id
			WHERE e.valid = 1 AND e.destination_id = ?
			ORDER BY e.created, e.id`
	}

	rows, err := s.db.QueryContext(ctx, query, node.id)
	if err != nil {
		return nil, errors.NewStoreQueryFailed("incident edges", err)
	}
	defer rows.Close()

	var hits []store.RelationHit
	for rows.Next() {
		var hit store.RelationHit
		if err := rows.Scan(&hit.RelationID, &hit.Relationship, &hit.Source, &hit.SourceID, &hit.Destination, &hit.DestinationID); err != nil {
			return nil, errors.NewStoreQueryFailed("incident edges", err)
		}
		hit.Similarity = node.similarity
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// MergeTriple executes one candidate triple in a single transaction:
// upsert both endpoint nodes (by resolved id, else by exact name within the
// scope), then upsert the edge on its uniqueness constraint. Counters
// increment on everything touched; a re-added soft-deleted edge is revived.
func (s *Store) MergeTriple(ctx context.Context, plan store.MergePlan, f store.Filters) (store.Triple, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Triple{}, errors.NewStoreQueryFailed("merge triple", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()

	sourceID, sourceName, err := s.upsertNode(ctx, tx, plan.SourceID, plan.Source, plan.SourceType, plan.SourceEmbedding, f, now)
	if err != nil {
		return store.Triple{}, err
	}
	destID, destName, err := s.upsertNode(ctx, tx, plan.DestinationID, plan.Destination, plan.DestinationType, plan.DestinationEmbedding, f, now)
	if err != nil {
		return store.Triple{}, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO edges (id, source_id, destination_id, relationship, user_id, agent_id, run_id, mentions, valid, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, 1, ?, ?)
		ON CONFLICT(source_id, destination_id, relationship) DO UPDATE SET
			mentions = mentions + 1,
			valid = 1,
			updated = excluded.updated
	`, uuid.NewString(), sourceID, destID, plan.Relationship, f.UserID, nullable(f.AgentID), nullable(f.RunID), now, now)
	if err != nil {
		return store.Triple{}, errors.NewStoreQueryFailed("merge triple", err)
	}

	if err := tx.Commit(); err != nil {
		return store.Triple{}, errors.NewStoreQueryFailed("merge triple", err)
	}

	return store.Triple{Source: sourceName, Relationship: plan.Relationship, Destination: destName}, nil
}

// upsertNode reuses the resolved node when the plan carries its id, otherwise
// merges by exact normalized name within the scope, creating on miss.
// Embeddings are written on create only; a later mention of the edge is not a
// re-description of the node.
func (s *Store) upsertNode(ctx context.Context, tx *sql.Tx, resolvedID, name, entityType string, embedding []float32, f store.Filters, now int64) (string, string, error) {
	if resolvedID != "" {
		var existingName string
		err := tx.QueryRowContext(ctx, "SELECT name FROM nodes WHERE id = ?", resolvedID).Scan(&existingName)
		if err != nil {
			return "", "", errors.NewStoreQueryFailed("upsert node", err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE nodes SET mentions = mentions + 1, updated = ? WHERE id = ?", now, resolvedID); err != nil {
			return "", "", errors.NewStoreQueryFailed("upsert node", err)
		}
		return resolvedID, existingName, nil
	}

	clause, args := scopeClause("", f)
	query := fmt.Sprintf("SELECT id FROM nodes WHERE name = ? AND %s", clause)
	var id string
	err := tx.QueryRowContext(ctx, query, append([]interface{}{name}, args...)...).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		id = uuid.NewString()
		rawEmbedding, marshalErr := json.Marshal(embedding)
		if marshalErr != nil {
			return "", "", errors.NewStoreQueryFailed("upsert node", marshalErr)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO nodes (id, name, entity_type, embedding, user_id, agent_id, run_id, mentions, created, updated)
			VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		`, id, name, entityType, string(rawEmbedding), f.UserID, nullable(f.AgentID), nullable(f.RunID), now, now)
		if err != nil {
			return "", "", errors.NewStoreQueryFailed("upsert node", err)
		}
		return id, name, nil
	case err != nil:
		return "", "", errors.NewStoreQueryFailed("upsert node", err)
	default:
		if _, err := tx.ExecContext(ctx, "UPDATE nodes SET mentions = mentions + 1, updated = ? WHERE id = ?", now, id); err != nil {
			return "", "", errors.NewStoreQueryFailed("upsert node", err)
		}
		return id, name, nil
	}
}

// DeleteTriple soft-deletes the edge matching the exact triple within the
// scope. A missing edge reports Found=false, never an error.
func (s *Store) DeleteTriple(ctx context.Context, t store.Triple, f store.Filters) (store.DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clause, args := scopeClause("e", f)
	query := fmt.Sprintf(`
		UPDATE edges SET valid = 0, updated = ?
		WHERE id IN (
			SELECT e.id FROM edges e
			JOIN nodes s ON s.id = e.source_id
			JOIN nodes d ON d.id = e.destination_id
			WHERE e.valid = 1 AND s.name = ? AND d.name = ? AND e.relationship = ? AND %s
		)
	`, clause)

	execArgs := append([]interface{}{time.Now().UnixMilli(), t.Source, t.Destination, t.Relationship}, args...)
	res, err := s.db.ExecContext(ctx, query, execArgs...)
	if err != nil {
		return store.DeleteResult{}, errors.NewStoreQueryFailed("delete triple", err)
	}

	affected, _ := res.RowsAffected()
	return store.DeleteResult{Triple: t, Found: affected > 0}, nil
}

// GetAll dumps the scope's valid edges.
func (s *Store) GetAll(ctx context.Context, f store.Filters, limit int) ([]store.Triple, error) {
	clause, args := scopeClause("e", f)
	query := fmt.Sprintf(`
		SELECT s.name, e.relationship, d.name
		FROM edges e
		JOIN nodes s ON s.id = e.source_id
		JOIN nodes d ON d.id = e.destination_id
		WHERE e.valid = 1 AND %s
		ORDER BY e.created, e.id
		LIMIT ?
	`, clause)

	rows, err := s.db.QueryContext(ctx, query, append(args, limit)...)
	if err != nil {
		return nil, errors.NewStoreQueryFailed("get all", err)
	}
	defer rows.Close()

	var triples []store.Triple
	for rows.Next() {
		var t store.Triple
		if err := rows.Scan(&t.Source, &t.Relationship, &t.Destination); err != nil {
			return nil, errors.NewStoreQueryFailed("get all", err)
		}
		triples = append(triples, t)
	}
	return triples, rows.Err()
}

// DeleteAll hard-wipes the scope, nodes and edges both, regardless of the
// soft-delete policy for individual edges.
func (s *Store) DeleteAll(ctx context.Context, f store.Filters) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStoreQueryFailed("delete all", err)
	}
	defer tx.Rollback()

	edgeClause, edgeArgs := scopeClause("", f)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM edges WHERE %s", edgeClause), edgeArgs...); err != nil {
		return errors.NewStoreQueryFailed("delete all", err)
	}
	nodeClause, nodeArgs := scopeClause("", f)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM nodes WHERE %s", nodeClause), nodeArgs...); err != nil {
		return errors.NewStoreQueryFailed("delete all", err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStoreQueryFailed("delete all", err)
	}

	s.logger.Info("Scope wiped", zap.String("user_id", f.UserID))
	return nil
}

// Reset wipes every tenant's data.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM edges"); err != nil {
		return errors.NewStoreQueryFailed("reset", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM nodes"); err != nil {
		return errors.NewStoreQueryFailed("reset", err)
	}

	s.logger.Warn("Graph store reset, all tenants wiped")
	return nil
}
