// Package store defines the uniform contract every graph backend implements.
// The merge/dedup algorithm lives in internal/memory and is written once
// against this interface; backends only differ in how similarity search and
// the atomic merge are physically expressed.
package store

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"graphmem/pkg/errors"
)

// Filters is the tenant scope. UserID is mandatory on every operation except
// Reset; AgentID and RunID narrow the scope further when present. Scopes
// never merge.
type Filters struct {
	UserID  string `json:"user_id"`
	AgentID string `json:"agent_id,omitempty"`
	RunID   string `json:"run_id,omitempty"`
}

// Validate fails fast before any backend call when the scope is unusable.
func (f Filters) Validate() error {
	if err := validation.ValidateStruct(&f,
		validation.Field(&f.UserID, validation.Required),
	); err != nil {
		return errors.ErrMissingUserID
	}
	return nil
}

// Triple is one stored relationship, the unit returned by Search and GetAll.
type Triple struct {
	Source       string `json:"source"`
	Relationship string `json:"relationship"`
	Destination  string `json:"destination"`
}

// NodeMatch is the best existing node for a candidate embedding within a scope.
type NodeMatch struct {
	ID         string
	Name       string
	Similarity float64
}

// RelationHit is one edge incident to a node that matched a query embedding.
type RelationHit struct {
	Source        string
	SourceID      string
	Relationship  string
	RelationID    string
	Destination   string
	DestinationID string
	Similarity    float64
}

// MergePlan carries everything a backend needs to execute one candidate
// triple as a single idempotent merge. SourceID/DestinationID are set when
// the corresponding endpoint already resolved to an existing node; embeddings
// are always present so newly created nodes are never embedding-less.
type MergePlan struct {
	Source          string
	SourceType      string
	SourceID        string
	SourceEmbedding []float32

	Destination          string
	DestinationType      string
	DestinationID        string
	DestinationEmbedding []float32

	Relationship string
}

// DeleteResult records the per-item outcome of a best-effort deletion.
type DeleteResult struct {
	Triple
	Found bool `json:"found"`
}

// Store is the backend adapter contract. Implementations must be behaviorally
// identical under the tests in internal/memory regardless of whether they use
// a native vector index or a brute-force scan.
type Store interface {
	// ResolveNode returns the highest-similarity node in scope whose cosine
	// similarity against embedding is >= threshold, or nil when nothing
	// clears the threshold (the expected common case for first mentions).
	ResolveNode(ctx context.Context, embedding []float32, filters Filters, threshold float64) (*NodeMatch, error)

	// Neighborhood returns edges in both directions incident to nodes whose
	// similarity against embedding is >= threshold, best matches first.
	Neighborhood(ctx context.Context, embedding []float32, filters Filters, threshold float64, limit int) ([]RelationHit, error)

	// MergeTriple executes one candidate triple atomically: creates missing
	// endpoint nodes, upserts the edge, and increments mention counters on
	// everything it touches.
	MergeTriple(ctx context.Context, plan MergePlan, filters Filters) (Triple, error)

	// DeleteTriple removes (or invalidates, per backend policy) the edge
	// matching the triple exactly within the scope. A missing edge is not an
	// error; the result reports Found=false.
	DeleteTriple(ctx context.Context, t Triple, filters Filters) (DeleteResult, error)

	// GetAll dumps the scope's edges, up to limit.
	GetAll(ctx context.Context, filters Filters, limit int) ([]Triple, error)

	// DeleteAll hard-wipes the entire scope, nodes and edges, even on
	// backends that otherwise soft-delete individual edges.
	DeleteAll(ctx context.Context, filters Filters) error

	// Reset wipes everything across all tenants. Administrative use only.
	Reset(ctx context.Context) error

	Close(ctx context.Context) error
}
