package domain

import "errors"

var (
	// ErrInvalidInput signals a malformed or missing request field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidQuery signals an empty or non-text search query.
	ErrInvalidQuery = errors.New("query string is required")
	// ErrDuplicateHandle signals that a candidate with the same handle is already stored.
	ErrDuplicateHandle = errors.New("candidate handle already exists")
	// ErrVectorDimMismatch signals a vector whose length differs from the index dimension.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingUnavailable signals an embedding provider failure or timeout.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	// ErrGenerationUnavailable signals a generative model failure, timeout or open circuit.
	ErrGenerationUnavailable = errors.New("generative model unavailable")
	// ErrMalformedOutput signals model output that does not match the requested structure.
	ErrMalformedOutput = errors.New("malformed model output")
	// ErrRateLimited signals that a local rate limiter refused to wait.
	ErrRateLimited = errors.New("rate limited")
	// ErrTokenBudgetExhausted signals that the daily or monthly token cap of a model is spent.
	ErrTokenBudgetExhausted = errors.New("token budget exhausted")
)
