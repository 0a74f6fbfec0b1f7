// Package memory implements the tenant-scoped graph memory engine: entity
// resolution, the add/merge state machine, supersession cleanup, and
// retrieval with lexical reranking. The algorithm is written once against
// store.Store; backends never see this logic.
package memory

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"graphmem/internal/extraction"
	"graphmem/internal/store"
	"graphmem/pkg/errors"
	"graphmem/pkg/logger"
)

const (
	// ResolveThreshold gates merge-time entity resolution. Conservative:
	// prefer creating a new node over a wrong merge.
	ResolveThreshold = 0.9

	// SearchThreshold gates retrieval-time semantic matching. Permissive:
	// prefer recall.
	SearchThreshold = 0.7

	defaultLimit = 100
)

// Extractor is the structured extraction surface (entity, relation and
// deletion modes). Implemented by extraction.Extractor.
type Extractor interface {
	ExtractEntities(ctx context.Context, text, selfRef string) (map[string]string, error)
	ExtractRelations(ctx context.Context, text string, entities []string, selfRef string) ([]extraction.RelationCandidate, error)
	ProposeDeletions(ctx context.Context, existingMemories, newText, selfRef string) ([]store.Triple, error)
}

// Embedder converts a string into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Memory is the graph memory engine over one backend store.
type Memory struct {
	store     store.Store
	extractor Extractor
	embedder  Embedder
	logger    *zap.Logger
}

// New creates a graph memory engine
func New(s store.Store, ex Extractor, em Embedder) *Memory {
	return &Memory{
		store:     s,
		extractor: ex,
		embedder:  em,
		logger:    logger.Get(),
	}
}

// AddResult reports what one Add call changed.
type AddResult struct {
	AddedEntities   []store.Triple       `json:"added_entities"`
	DeletedEntities []store.DeleteResult `json:"deleted_entities"`
}

// Add ingests text into the tenant's graph: extract entities and candidate
// triples, plan supersession deletions against the existing neighborhood,
// then merge each triple. Triples are processed strictly in order so later
// ones observe nodes created by earlier ones.
func (m *Memory) Add(ctx context.Context, text string, filters store.Filters) (*AddResult, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	entityTypeMap := m.extractEntitiesSoft(ctx, text, filters)

	entityNames := make([]string, 0, len(entityTypeMap))
	for name := range entityTypeMap {
		entityNames = append(entityNames, name)
	}

	candidates, err := m.extractor.ExtractRelations(ctx, text, entityNames, filters.UserID)
	if err != nil {
		// Soft failure: ingest continues with zero relations
		m.logger.Warn("Relation extraction failed", zap.Error(err))
		candidates = nil
	}

	neighborhood, err := m.collectNeighborhood(ctx, entityNames, filters, defaultLimit)
	if err != nil {
		return nil, err
	}

	toDelete := m.planDeletions(ctx, neighborhood, text, filters)

	result := &AddResult{}
	for _, t := range toDelete {
		deleted, err := m.store.DeleteTriple(ctx, t, filters)
		if err != nil {
			return nil, err
		}
		if !deleted.Found {
			m.logger.Debug("Proposed deletion matched no edge",
				zap.String("source", t.Source),
				zap.String("relationship", t.Relationship),
				zap.String("destination", t.Destination),
			)
		}
		result.DeletedEntities = append(result.DeletedEntities, deleted)
	}

	for _, c := range candidates {
		added, err := m.mergeCandidate(ctx, c, entityTypeMap, filters)
		if err != nil {
			return nil, err
		}
		result.AddedEntities = append(result.AddedEntities, added)
	}

	m.logger.Info("Graph memory updated",
		zap.String("user_id", filters.UserID),
		zap.Int("added", len(result.AddedEntities)),
		zap.Int("deleted", len(result.DeletedEntities)),
	)
	return result, nil
}

// mergeCandidate executes one candidate triple: embed both endpoints, resolve
// each against existing nodes at the conservative threshold, and hand the
// backend a single idempotent merge.
func (m *Memory) mergeCandidate(ctx context.Context, c extraction.RelationCandidate, entityTypeMap map[string]string, filters store.Filters) (store.Triple, error) {
	sourceEmbedding, err := m.embedder.Embed(ctx, c.Source)
	if err != nil {
		return store.Triple{}, err
	}
	destEmbedding, err := m.embedder.Embed(ctx, c.Destination)
	if err != nil {
		return store.Triple{}, err
	}

	sourceMatch, err := m.store.ResolveNode(ctx, sourceEmbedding, filters, ResolveThreshold)
	if err != nil {
		return store.Triple{}, err
	}
	destMatch, err := m.store.ResolveNode(ctx, destEmbedding, filters, ResolveThreshold)
	if err != nil {
		return store.Triple{}, err
	}

	plan := store.MergePlan{
		Source:               c.Source,
		SourceType:           entityType(entityTypeMap, c.Source, c.SourceType),
		SourceEmbedding:      sourceEmbedding,
		Destination:          c.Destination,
		DestinationType:      entityType(entityTypeMap, c.Destination, c.DestinationType),
		DestinationEmbedding: destEmbedding,
		Relationship:         c.Relationship,
	}
	if sourceMatch != nil {
		plan.SourceID = sourceMatch.ID
	}
	if destMatch != nil {
		plan.DestinationID = destMatch.ID
	}

	return m.store.MergeTriple(ctx, plan, filters)
}

// Search answers a query with the most relevant triples from the tenant's
// graph: resolve query entities at the permissive threshold, pull their
// neighborhoods concurrently, then rerank lexically against the query.
func (m *Memory) Search(ctx context.Context, query string, filters store.Filters, limit int) ([]store.Triple, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	entityTypeMap := m.extractEntitiesSoft(ctx, query, filters)
	if len(entityTypeMap) == 0 {
		return nil, nil
	}

	entityNames := make([]string, 0, len(entityTypeMap))
	for name := range entityTypeMap {
		entityNames = append(entityNames, name)
	}

	// Retrieval is read-only, safe to fan out per entity
	hitsPerEntity := make([][]store.RelationHit, len(entityNames))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range entityNames {
		i, name := i, name
		g.Go(func() error {
			embedding, err := m.embedder.Embed(gctx, name)
			if err != nil {
				// A failed embedding matches nothing; it is not fatal
				m.logger.Warn("Embedding failed during search", zap.String("entity", name), zap.Error(err))
				return nil
			}
			hits, err := m.store.Neighborhood(gctx, embedding, filters, SearchThreshold, limit)
			if err != nil {
				return err
			}
			hitsPerEntity[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[store.Triple]struct{})
	var triples []store.Triple
	for _, hits := range hitsPerEntity {
		for _, hit := range hits {
			t := store.Triple{Source: hit.Source, Relationship: hit.Relationship, Destination: hit.Destination}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			triples = append(triples, t)
		}
	}

	ranked := rankTriples(query, triples)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	m.logger.Info("Graph memory searched",
		zap.String("user_id", filters.UserID),
		zap.Int("results", len(ranked)),
	)
	return ranked, nil
}

// GetAll dumps the scope's edges for inspection.
func (m *Memory) GetAll(ctx context.Context, filters store.Filters, limit int) ([]store.Triple, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	return m.store.GetAll(ctx, filters, limit)
}

// DeleteAll wipes the entire scope.
func (m *Memory) DeleteAll(ctx context.Context, filters store.Filters) error {
	if err := filters.Validate(); err != nil {
		return err
	}
	return m.store.DeleteAll(ctx, filters)
}

// Reset wipes all tenants. Administrative operation; no scope required.
func (m *Memory) Reset(ctx context.Context) error {
	return m.store.Reset(ctx)
}

// extractEntitiesSoft degrades extraction failures to an empty map per the
// soft-fail policy.
func (m *Memory) extractEntitiesSoft(ctx context.Context, text string, filters store.Filters) map[string]string {
	entityTypeMap, err := m.extractor.ExtractEntities(ctx, text, filters.UserID)
	if err != nil {
		m.logger.Warn("Entity extraction failed",
			zap.Bool("soft", errors.IsSoftFailure(err)),
			zap.Error(err),
		)
		return map[string]string{}
	}
	return entityTypeMap
}

// collectNeighborhood gathers the existing edges around the mentioned
// entities, used as context for deletion planning.
func (m *Memory) collectNeighborhood(ctx context.Context, entityNames []string, filters store.Filters, limit int) ([]store.RelationHit, error) {
	var all []store.RelationHit
	for _, name := range entityNames {
		embedding, err := m.embedder.Embed(ctx, name)
		if err != nil {
			m.logger.Warn("Embedding failed during neighborhood scan", zap.String("entity", name), zap.Error(err))
			continue
		}
		hits, err := m.store.Neighborhood(ctx, embedding, filters, SearchThreshold, limit)
		if err != nil {
			return nil, err
		}
		all = append(all, hits...)
	}
	return all, nil
}

func entityType(entityTypeMap map[string]string, name, fallback string) string {
	if t, ok := entityTypeMap[name]; ok && t != "" {
		return t
	}
	if fallback != "" {
		return fallback
	}
	return "unknown"
}
