package neo4j

import (
	"fmt"
	"strings"

	"graphmem/internal/store"
)

// All nodes carry the fixed :Entity label with the extractor's type as a
// property, so labels never come from untrusted input. Relationship types
// cannot be parameterized in Cypher; sanitizeRelType restricts them to
// [a-z0-9_] before interpolation.

// cosineExpr computes cosine similarity between a stored embedding and the
// $embedding parameter, rounded to 4 places. Reduce-based so it works without
// a vector index plugin.
func cosineExpr(alias string) string {
	return fmt.Sprintf(`round(reduce(dot = 0.0, i IN range(0, size(%[1]s.embedding)-1) | dot + %[1]s.embedding[i] * $embedding[i]) /
		(sqrt(reduce(l2 = 0.0, i IN range(0, size(%[1]s.embedding)-1) | l2 + %[1]s.embedding[i] * %[1]s.embedding[i])) *
		sqrt(reduce(l2 = 0.0, i IN range(0, size($embedding)-1) | l2 + $embedding[i] * $embedding[i]))), 4)`, alias)
}

// scopeFilter builds the WHERE fragment for a tenant scope from the closed
// set of optional predicates. Parameters are shared across aliases since the
// scope is the same on both ends of an edge.
func scopeFilter(alias string, f store.Filters) (string, map[string]interface{}) {
	conditions := []string{fmt.Sprintf("%s.user_id = $user_id", alias)}
	params := map[string]interface{}{"user_id": f.UserID}
	if f.AgentID != "" {
		conditions = append(conditions, fmt.Sprintf("%s.agent_id = $agent_id", alias))
		params["agent_id"] = f.AgentID
	}
	if f.RunID != "" {
		conditions = append(conditions, fmt.Sprintf("%s.run_id = $run_id", alias))
		params["run_id"] = f.RunID
	}
	return strings.Join(conditions, " AND "), params
}

// scopeProps builds the property fragment appended inside a MERGE pattern so
// created nodes land in the right scope and merges never cross scopes.
func scopeProps(f store.Filters) (string, map[string]interface{}) {
	props := ", user_id: $user_id"
	params := map[string]interface{}{"user_id": f.UserID}
	if f.AgentID != "" {
		props += ", agent_id: $agent_id"
		params["agent_id"] = f.AgentID
	}
	if f.RunID != "" {
		props += ", run_id: $run_id"
		params["run_id"] = f.RunID
	}
	return props, params
}

// sanitizeRelType is the last line of defense before a relationship type is
// interpolated into Cypher. Input is already normalized by the extraction
// layer; anything else is stripped here.
func sanitizeRelType(label string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(label) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "related_to"
	}
	return out
}

func mergeParams(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// resolveNodeQuery finds the single best node at or above $threshold.
func resolveNodeQuery(f store.Filters) (string, map[string]interface{}) {
	clause, params := scopeFilter("n", f)
	query := fmt.Sprintf(`
		MATCH (n:Entity)
		WHERE n.embedding IS NOT NULL AND %s
		WITH n, %s AS similarity
		WHERE similarity >= $threshold
		ORDER BY similarity DESC
		LIMIT 1
		RETURN elementId(n) AS id, n.name AS name, similarity
	`, clause, cosineExpr("n"))
	return query, params
}

// neighborhoodQuery pulls edges in both directions around matching nodes,
// best similarity first.
func neighborhoodQuery(f store.Filters) (string, map[string]interface{}) {
	nClause, params := scopeFilter("n", f)
	mClause, _ := scopeFilter("m", f)
	query := fmt.Sprintf(`
		MATCH (n:Entity)
		WHERE n.embedding IS NOT NULL AND %[1]s
		WITH n, %[3]s AS similarity
		WHERE similarity >= $threshold
		MATCH (n)-[r]->(m:Entity)
		WHERE %[2]s
		RETURN n.name AS source, elementId(n) AS source_id, type(r) AS relationship,
		       elementId(r) AS relation_id, m.name AS destination, elementId(m) AS destination_id, similarity
		UNION
		MATCH (n:Entity)
		WHERE n.embedding IS NOT NULL AND %[1]s
		WITH n, %[3]s AS similarity
		WHERE similarity >= $threshold
		MATCH (m:Entity)-[r]->(n)
		WHERE %[2]s
		RETURN m.name AS source, elementId(m) AS source_id, type(r) AS relationship,
		       elementId(r) AS relation_id, n.name AS destination, elementId(n) AS destination_id, similarity
		ORDER BY similarity DESC
		LIMIT $limit
	`, nClause, mClause, cosineExpr("n"))
	return query, params
}

// mergeTripleQuery expresses one candidate triple as a single Cypher
// statement, branching on which endpoints already resolved. Mention counters
// increment on every node and edge the merge touches; embeddings are written
// on create only.
func mergeTripleQuery(plan store.MergePlan, f store.Filters) (string, map[string]interface{}) {
	relType := sanitizeRelType(plan.Relationship)
	props, propParams := scopeProps(f)

	edgeMerge := fmt.Sprintf(`
		MERGE (source)-[r:%s]->(destination)
		ON CREATE SET r.created = timestamp(), r.mentions = 1
		ON MATCH SET r.mentions = coalesce(r.mentions, 0) + 1, r.updated = timestamp()
		RETURN source.name AS source, type(r) AS relationship, destination.name AS destination`, relType)

	switch {
	case plan.SourceID != "" && plan.DestinationID != "":
		query := `
		MATCH (source:Entity) WHERE elementId(source) = $source_id
		SET source.mentions = coalesce(source.mentions, 0) + 1
		WITH source
		MATCH (destination:Entity) WHERE elementId(destination) = $destination_id
		SET destination.mentions = coalesce(destination.mentions, 0) + 1
		` + edgeMerge
		return query, map[string]interface{}{
			"source_id":      plan.SourceID,
			"destination_id": plan.DestinationID,
		}

	case plan.SourceID != "":
		query := fmt.Sprintf(`
		MATCH (source:Entity) WHERE elementId(source) = $source_id
		SET source.mentions = coalesce(source.mentions, 0) + 1
		WITH source
		MERGE (destination:Entity {name: $destination_name%s})
		ON CREATE SET
			destination.created = timestamp(),
			destination.mentions = 1,
			destination.entity_type = $destination_type,
			destination.embedding = $destination_embedding
		ON MATCH SET destination.mentions = coalesce(destination.mentions, 0) + 1
		WITH source, destination%s`, props, edgeMerge)
		return query, mergeParams(map[string]interface{}{
			"source_id":             plan.SourceID,
			"destination_name":      plan.Destination,
			"destination_type":      plan.DestinationType,
			"destination_embedding": toFloat64s(plan.DestinationEmbedding),
		}, propParams)

	case plan.DestinationID != "":
		query := fmt.Sprintf(`
		MATCH (destination:Entity) WHERE elementId(destination) = $destination_id
		SET destination.mentions = coalesce(destination.mentions, 0) + 1
		WITH destination
		MERGE (source:Entity {name: $source_name%s})
		ON CREATE SET
			source.created = timestamp(),
			source.mentions = 1,
			source.entity_type = $source_type,
			source.embedding = $source_embedding
		ON MATCH SET source.mentions = coalesce(source.mentions, 0) + 1
		WITH source, destination%s`, props, edgeMerge)
		return query, mergeParams(map[string]interface{}{
			"destination_id":   plan.DestinationID,
			"source_name":      plan.Source,
			"source_type":      plan.SourceType,
			"source_embedding": toFloat64s(plan.SourceEmbedding),
		}, propParams)

	default:
		query := fmt.Sprintf(`
		MERGE (source:Entity {name: $source_name%[1]s})
		ON CREATE SET
			source.created = timestamp(),
			source.mentions = 1,
			source.entity_type = $source_type,
			source.embedding = $source_embedding
		ON MATCH SET source.mentions = coalesce(source.mentions, 0) + 1
		WITH source
		MERGE (destination:Entity {name: $destination_name%[1]s})
		ON CREATE SET
			destination.created = timestamp(),
			destination.mentions = 1,
			destination.entity_type = $destination_type,
			destination.embedding = $destination_embedding
		ON MATCH SET destination.mentions = coalesce(destination.mentions, 0) + 1
		WITH source, destination%[2]s`, props, edgeMerge)
		return query, mergeParams(map[string]interface{}{
			"source_name":           plan.Source,
			"source_type":           plan.SourceType,
			"source_embedding":      toFloat64s(plan.SourceEmbedding),
			"destination_name":      plan.Destination,
			"destination_type":      plan.DestinationType,
			"destination_embedding": toFloat64s(plan.DestinationEmbedding),
		}, propParams)
	}
}

// deleteTripleQuery hard-deletes the exact edge within the scope.
func deleteTripleQuery(t store.Triple, f store.Filters) (string, map[string]interface{}) {
	nClause, params := scopeFilter("n", f)
	mClause, _ := scopeFilter("m", f)
	query := fmt.Sprintf(`
		MATCH (n:Entity)-[r:%s]->(m:Entity)
		WHERE n.name = $source_name AND m.name = $destination_name AND %s AND %s
		DELETE r
		RETURN n.name AS source, type(r) AS relationship, m.name AS destination
	`, sanitizeRelType(t.Relationship), nClause, mClause)
	params["source_name"] = t.Source
	params["destination_name"] = t.Destination
	return query, params
}

// getAllQuery dumps the scope's edges.
func getAllQuery(f store.Filters) (string, map[string]interface{}) {
	nClause, params := scopeFilter("n", f)
	mClause, _ := scopeFilter("m", f)
	query := fmt.Sprintf(`
		MATCH (n:Entity)-[r]->(m:Entity)
		WHERE %s AND %s
		RETURN n.name AS source, type(r) AS relationship, m.name AS destination
		LIMIT $limit
	`, nClause, mClause)
	return query, params
}

// deleteAllQuery detaches and deletes every node in the scope.
func deleteAllQuery(f store.Filters) (string, map[string]interface{}) {
	clause, params := scopeFilter("n", f)
	query := fmt.Sprintf(`
		MATCH (n:Entity)
		WHERE %s
		DETACH DELETE n
	`, clause)
	return query, params
}

// toFloat64s converts an embedding to the numeric type the bolt protocol
// serializes natively.
func toFloat64s(embedding []float32) []float64 {
	out := make([]float64, len(embedding))
	for i, v := range embedding {
		out[i] = float64(v)
	}
	return out
}
