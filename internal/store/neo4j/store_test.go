package neo4j

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphmem/internal/store"
)

// Integration test against a live Neo4j. Set NEO4J_TEST_URI (and optionally
// NEO4J_TEST_USER / NEO4J_TEST_PASSWORD) to run it, e.g. against
// `docker run -p 7687:7687 -e NEO4J_AUTH=neo4j/password neo4j:5`.
func TestStoreIntegration(t *testing.T) {
	uri := os.Getenv("NEO4J_TEST_URI")
	if uri == "" {
		t.Skip("NEO4J_TEST_URI not set")
	}
	user := os.Getenv("NEO4J_TEST_USER")
	if user == "" {
		user = "neo4j"
	}
	password := os.Getenv("NEO4J_TEST_PASSWORD")
	if password == "" {
		password = "password"
	}

	ctx := context.Background()
	s, err := Connect(ctx, uri, user, password)
	require.NoError(t, err)
	defer s.Close(ctx)
	require.NoError(t, s.Reset(ctx))

	u1 := store.Filters{UserID: "it_u1"}
	aliceVec := []float32{1, 0, 0, 0}
	bobVec := []float32{0, 1, 0, 0}

	plan := store.MergePlan{
		Source: "alice", SourceType: "person", SourceEmbedding: aliceVec,
		Destination: "bob", DestinationType: "person", DestinationEmbedding: bobVec,
		Relationship: "knows",
	}
	triple, err := s.MergeTriple(ctx, plan, u1)
	require.NoError(t, err)
	assert.Equal(t, store.Triple{Source: "alice", Relationship: "knows", Destination: "bob"}, triple)

	// Re-merge is idempotent
	_, err = s.MergeTriple(ctx, plan, u1)
	require.NoError(t, err)
	all, err := s.GetAll(ctx, u1, 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// Resolution at the conservative threshold
	match, err := s.ResolveNode(ctx, aliceVec, u1, 0.9)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "alice", match.Name)
	assert.InDelta(t, 1.0, match.Similarity, 1e-3)

	// Resolved-endpoint merge reuses the node
	planResolved := store.MergePlan{
		Source: "alice_smith", SourceID: match.ID, SourceEmbedding: aliceVec,
		Destination: "paris", DestinationType: "city", DestinationEmbedding: []float32{0, 0, 1, 0},
		Relationship: "lives_in",
	}
	triple, err = s.MergeTriple(ctx, planResolved, u1)
	require.NoError(t, err)
	assert.Equal(t, "alice", triple.Source)

	// Neighborhood covers incoming edges too
	hits, err := s.Neighborhood(ctx, bobVec, u1, 0.9, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "alice", hits[0].Source)
	assert.Equal(t, "bob", hits[0].Destination)

	// Tenant isolation
	other, err := s.GetAll(ctx, store.Filters{UserID: "it_u2"}, 10)
	require.NoError(t, err)
	assert.Empty(t, other)

	// Exact-triple deletion is a hard delete here
	deleted, err := s.DeleteTriple(ctx, store.Triple{Source: "alice", Relationship: "knows", Destination: "bob"}, u1)
	require.NoError(t, err)
	assert.True(t, deleted.Found)

	deleted, err = s.DeleteTriple(ctx, store.Triple{Source: "alice", Relationship: "knows", Destination: "bob"}, u1)
	require.NoError(t, err)
	assert.False(t, deleted.Found)

	require.NoError(t, s.DeleteAll(ctx, u1))
	all, err = s.GetAll(ctx, u1, 10)
	require.NoError(t, err)
	assert.Empty(t, all)
}
