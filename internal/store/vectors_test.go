package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// Scale invariance
	assert.InDelta(t, 1.0, Cosine([]float32{2, 2}, []float32{5, 5}), 1e-9)
}

func TestCosine_MalformedInputScoresZero(t *testing.T) {
	// Malformed embeddings must never error, they just never match
	assert.Zero(t, Cosine(nil, []float32{1, 0}))
	assert.Zero(t, Cosine([]float32{1, 0}, nil))
	assert.Zero(t, Cosine([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 0}))
}

func TestFiltersValidate(t *testing.T) {
	assert.Error(t, Filters{}.Validate())
	assert.Error(t, Filters{AgentID: "a1"}.Validate())
	assert.NoError(t, Filters{UserID: "u1"}.Validate())
	assert.NoError(t, Filters{UserID: "u1", AgentID: "a1", RunID: "r1"}.Validate())
}
