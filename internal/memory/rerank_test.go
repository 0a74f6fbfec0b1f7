package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"graphmem/internal/store"
)

func TestRankTriples(t *testing.T) {
	triples := []store.Triple{
		{Source: "alice", Relationship: "lives_in", Destination: "paris"},
		{Source: "alice", Relationship: "plays", Destination: "tennis"},
		{Source: "bob", Relationship: "works_at", Destination: "acme_corp"},
	}

	ranked := rankTriples("alice plays tennis", triples)
	assert.Equal(t, store.Triple{Source: "alice", Relationship: "plays", Destination: "tennis"}, ranked[0])
	assert.Len(t, ranked, 3)
}

func TestRankTriplesStableOnTies(t *testing.T) {
	triples := []store.Triple{
		{Source: "a", Relationship: "r1", Destination: "b"},
		{Source: "c", Relationship: "r2", Destination: "d"},
	}

	// No overlap at all: input order is preserved
	ranked := rankTriples("zzz", triples)
	assert.Equal(t, triples, ranked)
}

func TestRankTriplesEmptyQuery(t *testing.T) {
	triples := []store.Triple{{Source: "a", Relationship: "r", Destination: "b"}}
	assert.Equal(t, triples, rankTriples("  !! ", triples))
}

func TestOverlapScorePrefersExactShortMatches(t *testing.T) {
	query := map[string]struct{}{"alice": {}, "tennis": {}}

	exact := overlapScore(query, store.Triple{Source: "alice", Relationship: "plays", Destination: "tennis"})
	rambling := overlapScore(query, store.Triple{Source: "alice", Relationship: "was_once_seen_near", Destination: "tennis"})
	assert.Greater(t, exact, rambling)
}

func TestTokenizeSplitsNormalizedNames(t *testing.T) {
	assert.Equal(t, []string{"new", "york"}, tokenize("new_york"))
	assert.Equal(t, []string{"what", "s", "up"}, tokenize("What's up?"))
	assert.Empty(t, tokenize("---"))
}
