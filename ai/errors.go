package ai

import "errors"

var (
	// ErrUnavailable indicates the embedding service is refusing calls,
	// for example because its circuit breaker is open.
	ErrUnavailable = errors.New("embedding service unavailable")

	// ErrUnexpectedDimensions indicates an embedding has the wrong length.
	ErrUnexpectedDimensions = errors.New("unexpected embedding dimensions")

	// ErrResultCount indicates a batch returned a different number of
	// embeddings than inputs.
	ErrResultCount = errors.New("embedding count does not match input count")
)
