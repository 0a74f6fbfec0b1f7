package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeExtraction represents entity/relation extraction errors
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeEmbedding represents embedding service errors
	ErrorTypeEmbedding ErrorType = "embedding"
	// ErrorTypeStore represents graph store errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypePlanner represents deletion planning errors
	ErrorTypePlanner ErrorType = "planner"
	// ErrorTypeScope represents tenant scope errors
	ErrorTypeScope ErrorType = "scope"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// Kind returns the error category. Promoted into every wrapper that embeds
// BaseError, so IsErrorType works on the concrete types too.
func (e *BaseError) Kind() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Scope Errors

// ErrMissingUserID is returned when an operation is attempted without a user scope.
// Every operation except Reset requires at least a user id.
var ErrMissingUserID = NewBaseError(ErrorTypeScope, "user_id is required", nil)

// Extraction Errors

// ErrExtractionFailed is returned when the extraction service fails or returns
// malformed structured output. Callers treat it as "zero entities found".
type ErrExtractionFailed struct {
	*BaseError
	Mode string // "entities", "relations" or "deletions"
}

func NewExtractionFailed(mode string, err error) *ErrExtractionFailed {
	return &ErrExtractionFailed{
		BaseError: NewBaseError(ErrorTypeExtraction, fmt.Sprintf("extraction failed in %s mode", mode), err),
		Mode:      mode,
	}
}

// ErrNoToolCall is returned when the LLM response carries no structured tool call
var ErrNoToolCall = NewBaseError(ErrorTypeExtraction, "no tool call in response", nil)

// Embedding Errors

// ErrEmbeddingFailed is returned when the embedding service fails
type ErrEmbeddingFailed struct {
	*BaseError
	Text string
}

func NewEmbeddingFailed(text string, err error) *ErrEmbeddingFailed {
	return &ErrEmbeddingFailed{
		BaseError: NewBaseError(ErrorTypeEmbedding, "failed to embed text", err),
		Text:      text,
	}
}

// Store Errors

// ErrStoreConnectionFailed is returned when the backend store cannot be reached
type ErrStoreConnectionFailed struct {
	*BaseError
	URI string
}

func NewStoreConnectionFailed(uri string, err error) *ErrStoreConnectionFailed {
	return &ErrStoreConnectionFailed{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("failed to connect to store: %s", uri), err),
		URI:       uri,
	}
}

// ErrStoreQueryFailed is returned when a backend query or write fails.
// Store failures are fatal for the current call.
type ErrStoreQueryFailed struct {
	*BaseError
	Operation string
}

func NewStoreQueryFailed(operation string, err error) *ErrStoreQueryFailed {
	return &ErrStoreQueryFailed{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("store operation failed: %s", operation), err),
		Operation: operation,
	}
}

// ErrUnknownBackend is returned when an unrecognized store backend is configured
type ErrUnknownBackend struct {
	*BaseError
	Backend string
}

func NewUnknownBackend(backend string) *ErrUnknownBackend {
	return &ErrUnknownBackend{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("unknown graph store backend: %s", backend), nil),
		Backend:   backend,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Context Errors

// ErrContextCancelled is returned when context is cancelled
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

// Helper functions

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}
	if kinded, ok := err.(interface{ Kind() ErrorType }); ok {
		return kinded.Kind() == errType
	}
	if wrapper, ok := err.(interface{ Unwrap() error }); ok {
		if inner := wrapper.Unwrap(); inner != nil {
			return IsErrorType(inner, errType)
		}
	}
	return false
}

// IsSoftFailure reports whether an error may be degraded to an empty result
// instead of aborting the calling operation. Extraction and planner failures
// are soft; store failures never are.
func IsSoftFailure(err error) bool {
	return IsErrorType(err, ErrorTypeExtraction) || IsErrorType(err, ErrorTypePlanner)
}
