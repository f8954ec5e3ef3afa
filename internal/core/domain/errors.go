package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider, backend or file type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrRateLimited indicates a remote backend kept answering HTTP 429
	// after the retry budget was spent.
	ErrRateLimited = errors.New("rate limited")

	// ErrDimensionMismatch indicates a vector does not match the
	// dimensionality the store was built with.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrQueueClosed indicates the ingestion queue no longer accepts work.
	ErrQueueClosed = errors.New("ingestion queue closed")
)

// ExtractionError reports that a source file could not be turned into text.
// The file is skipped; the pipeline continues.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingBackendError reports a failed call to an embedding backend.
type EmbeddingBackendError struct {
	Backend    string
	StatusCode int
	Err        error
}

func (e *EmbeddingBackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s embedding error (status %d): %v", e.Backend, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s embedding error: %v", e.Backend, e.Err)
}

func (e *EmbeddingBackendError) Unwrap() error { return e.Err }

// GenerationBackendError reports a failed call to a text generation backend.
type GenerationBackendError struct {
	Backend    string
	StatusCode int
	Err        error
}

func (e *GenerationBackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s generation error (status %d): %v", e.Backend, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s generation error: %v", e.Backend, e.Err)
}

func (e *GenerationBackendError) Unwrap() error { return e.Err }

// StoreIOError reports a failed read or write of persisted store state.
// Op names the operation ("write page", "read summary", ...).
type StoreIOError struct {
	Op   string
	Page int
	Err  error
}

func (e *StoreIOError) Error() string {
	if e.Page >= 0 {
		return fmt.Sprintf("store %s %d: %v", e.Op, e.Page, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreIOError) Unwrap() error { return e.Err }

// NotReadyError is returned when a component is used before it reached
// the Ready state, or after it failed.
type NotReadyError struct {
	Component string
	State     ComponentState
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("%s not ready (state: %s)", e.Component, e.State)
}
