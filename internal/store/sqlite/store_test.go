package sqlite

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphmem/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

// unitVec returns a unit vector along the given axis.
func unitVec(axis int) []float32 {
	v := make([]float32, 4)
	v[axis] = 1
	return v
}

func knowsPlan() store.MergePlan {
	return store.MergePlan{
		Source: "alice", SourceType: "person", SourceEmbedding: unitVec(0),
		Destination: "bob", DestinationType: "person", DestinationEmbedding: unitVec(1),
		Relationship: "knows",
	}
}

func TestMergeTripleCountsMentions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u1 := store.Filters{UserID: "u1"}

	triple, err := s.MergeTriple(ctx, knowsPlan(), u1)
	require.NoError(t, err)
	assert.Equal(t, store.Triple{Source: "alice", Relationship: "knows", Destination: "bob"}, triple)

	_, err = s.MergeTriple(ctx, knowsPlan(), u1)
	require.NoError(t, err)

	var edgeCount, edgeMentions int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*), MAX(mentions) FROM edges").Scan(&edgeCount, &edgeMentions))
	assert.Equal(t, 1, edgeCount, "re-merging the same triple must not duplicate the edge")
	assert.Equal(t, 2, edgeMentions)

	var nodeMentions int
	require.NoError(t, s.db.QueryRow("SELECT mentions FROM nodes WHERE name = ?", "alice").Scan(&nodeMentions))
	assert.Equal(t, 2, nodeMentions)
}

func TestMergeTripleReusesResolvedNode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u1 := store.Filters{UserID: "u1"}

	_, err := s.MergeTriple(ctx, knowsPlan(), u1)
	require.NoError(t, err)

	match, err := s.ResolveNode(ctx, unitVec(0), u1, 0.9)
	require.NoError(t, err)
	require.NotNil(t, match)

	// Same entity under a different surface name, resolved by embedding
	plan := store.MergePlan{
		Source: "alice_smith", SourceID: match.ID, SourceEmbedding: unitVec(0),
		Destination: "paris", DestinationType: "city", DestinationEmbedding: unitVec(2),
		Relationship: "lives_in",
	}
	triple, err := s.MergeTriple(ctx, plan, u1)
	require.NoError(t, err)
	assert.Equal(t, "alice", triple.Source, "resolved merges keep the canonical node name")

	var nodeCount int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM nodes WHERE user_id = ?", "u1").Scan(&nodeCount))
	assert.Equal(t, 3, nodeCount)
}

func TestResolveNodeThresholdBoundary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u1 := store.Filters{UserID: "u1"}

	_, err := s.MergeTriple(ctx, knowsPlan(), u1)
	require.NoError(t, err)

	query := []float32{0.8, 0.6, 0, 0}
	similarity := store.Cosine(query, unitVec(0))

	match, err := s.ResolveNode(ctx, query, u1, similarity)
	require.NoError(t, err)
	require.NotNil(t, match, "a node exactly at the threshold resolves")
	assert.Equal(t, "alice", match.Name)
	assert.InDelta(t, similarity, match.Similarity, 1e-9)

	match, err = s.ResolveNode(ctx, query, u1, math.Nextafter(similarity, 1))
	require.NoError(t, err)
	assert.Nil(t, match, "a node just below the threshold does not resolve")
}

func TestResolveNodePicksBestMatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u1 := store.Filters{UserID: "u1"}

	_, err := s.MergeTriple(ctx, knowsPlan(), u1)
	require.NoError(t, err)

	// Closer to alice (axis 0) than to bob (axis 1)
	match, err := s.ResolveNode(ctx, []float32{0.8, 0.6, 0, 0}, u1, 0.5)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "alice", match.Name)
}

func TestNeighborhoodCoversBothDirections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u1 := store.Filters{UserID: "u1"}

	_, err := s.MergeTriple(ctx, knowsPlan(), u1)
	require.NoError(t, err)

	// bob only appears as a destination; the edge must still surface
	hits, err := s.Neighborhood(ctx, unitVec(1), u1, 0.9, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "alice", hits[0].Source)
	assert.Equal(t, "knows", hits[0].Relationship)
	assert.Equal(t, "bob", hits[0].Destination)
}

func TestDeleteTripleSoftDeletesAndRevives(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u1 := store.Filters{UserID: "u1"}
	triple := store.Triple{Source: "alice", Relationship: "knows", Destination: "bob"}

	_, err := s.MergeTriple(ctx, knowsPlan(), u1)
	require.NoError(t, err)

	deleted, err := s.DeleteTriple(ctx, triple, u1)
	require.NoError(t, err)
	assert.True(t, deleted.Found)

	all, err := s.GetAll(ctx, u1, 10)
	require.NoError(t, err)
	assert.Empty(t, all, "soft-deleted edges are invisible")

	// The row survives the soft delete
	var rowCount int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM edges WHERE valid = 0").Scan(&rowCount))
	assert.Equal(t, 1, rowCount)

	// Re-merging the fact revives the same edge
	_, err = s.MergeTriple(ctx, knowsPlan(), u1)
	require.NoError(t, err)

	all, err = s.GetAll(ctx, u1, 10)
	require.NoError(t, err)
	assert.Equal(t, []store.Triple{triple}, all)

	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM edges").Scan(&rowCount))
	assert.Equal(t, 1, rowCount)
}

func TestDeleteTripleMissingEdge(t *testing.T) {
	s := newTestStore(t)

	deleted, err := s.DeleteTriple(context.Background(), store.Triple{
		Source: "alice", Relationship: "knows", Destination: "zeus",
	}, store.Filters{UserID: "u1"})
	require.NoError(t, err, "deleting a missing edge is not an error")
	assert.False(t, deleted.Found)
}

func TestScopeNarrowing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.MergeTriple(ctx, knowsPlan(), store.Filters{UserID: "u1"})
	require.NoError(t, err)
	_, err = s.MergeTriple(ctx, store.MergePlan{
		Source: "alice", SourceType: "person", SourceEmbedding: unitVec(0),
		Destination: "paris", DestinationType: "city", DestinationEmbedding: unitVec(2),
		Relationship: "lives_in",
	}, store.Filters{UserID: "u1", AgentID: "a1"})
	require.NoError(t, err)

	// User-only scope sees everything under the user
	all, err := s.GetAll(ctx, store.Filters{UserID: "u1"}, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Agent scope sees only the agent's slice
	all, err = s.GetAll(ctx, store.Filters{UserID: "u1", AgentID: "a1"}, 10)
	require.NoError(t, err)
	assert.Equal(t, []store.Triple{{Source: "alice", Relationship: "lives_in", Destination: "paris"}}, all)

	// Nodes never merge across scopes, even with identical names
	var aliceCount int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM nodes WHERE name = ?", "alice").Scan(&aliceCount))
	assert.Equal(t, 2, aliceCount)
}

func TestDeleteAllHardWipesScope(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.MergeTriple(ctx, knowsPlan(), store.Filters{UserID: "u1"})
	require.NoError(t, err)
	_, err = s.MergeTriple(ctx, knowsPlan(), store.Filters{UserID: "u2"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteAll(ctx, store.Filters{UserID: "u1"}))

	var nodeCount, edgeCount int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM nodes WHERE user_id = ?", "u1").Scan(&nodeCount))
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM edges WHERE user_id = ?", "u1").Scan(&edgeCount))
	assert.Zero(t, nodeCount)
	assert.Zero(t, edgeCount)

	kept, err := s.GetAll(ctx, store.Filters{UserID: "u2"}, 10)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestResetWipesEverything(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.MergeTriple(ctx, knowsPlan(), store.Filters{UserID: "u1"})
	require.NoError(t, err)
	_, err = s.MergeTriple(ctx, knowsPlan(), store.Filters{UserID: "u2"})
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))

	var nodeCount, edgeCount int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM nodes").Scan(&nodeCount))
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM edges").Scan(&edgeCount))
	assert.Zero(t, nodeCount)
	assert.Zero(t, edgeCount)
}
