package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"graphmem/internal/store"
)

func TestSerializeNeighborhood(t *testing.T) {
	hits := []store.RelationHit{
		{Source: "alice", Relationship: "lives_in", Destination: "paris"},
		{Source: "alice", Relationship: "knows", Destination: "bob"},
	}
	assert.Equal(t, "alice -- lives_in -- paris\nalice -- knows -- bob", serializeNeighborhood(hits))
}

func TestSerializeNeighborhoodEmpty(t *testing.T) {
	assert.Equal(t, "", serializeNeighborhood(nil))
}
