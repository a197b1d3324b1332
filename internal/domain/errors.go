package domain

import "errors"

var (
	// ErrNotFound signals a missing contractor record.
	ErrNotFound = errors.New("not found")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals an answer generation provider failure.
	ErrGenerationProviderError = errors.New("generation provider error")
	// ErrMalformedAnswer signals unparseable generator output.
	ErrMalformedAnswer = errors.New("malformed generated answer")
)
