package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsErrorType(t *testing.T) {
	assert.True(t, IsErrorType(ErrMissingUserID, ErrorTypeScope))
	assert.False(t, IsErrorType(ErrMissingUserID, ErrorTypeStore))
	assert.False(t, IsErrorType(nil, ErrorTypeScope))

	// Concrete wrappers embedding BaseError keep their kind
	assert.True(t, IsErrorType(NewExtractionFailed("entities", assert.AnError), ErrorTypeExtraction))
	assert.True(t, IsErrorType(NewStoreQueryFailed("merge triple", assert.AnError), ErrorTypeStore))
	assert.True(t, IsErrorType(NewUnknownBackend("redis"), ErrorTypeConfig))
}

func TestIsErrorType_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("during add: %w", NewEmbeddingFailed("alice", assert.AnError))
	assert.True(t, IsErrorType(wrapped, ErrorTypeEmbedding))
	assert.False(t, IsErrorType(fmt.Errorf("plain"), ErrorTypeEmbedding))
}

func TestIsSoftFailure(t *testing.T) {
	assert.True(t, IsSoftFailure(NewExtractionFailed("relations", assert.AnError)))
	assert.False(t, IsSoftFailure(NewStoreQueryFailed("get all", assert.AnError)))
	assert.False(t, IsSoftFailure(NewEmbeddingFailed("alice", assert.AnError)))
	assert.False(t, IsSoftFailure(nil))
}

func TestErrorMessages(t *testing.T) {
	err := NewStoreConnectionFailed("bolt://localhost:7687", assert.AnError)
	assert.Contains(t, err.Error(), "bolt://localhost:7687")
	assert.Contains(t, err.Error(), "[store]")
	assert.ErrorIs(t, err, assert.AnError)
}
