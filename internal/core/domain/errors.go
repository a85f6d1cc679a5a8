package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a MIME type with no registered extractor.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrSourceUnavailable indicates the watched source could not be listed.
	// A cycle hitting this error aborts without mutating any state, so the
	// same delta is recomputed on the next cycle.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrRateLimited indicates the embedding API rate limit was exceeded.
	// Safe to retry with backoff.
	ErrRateLimited = errors.New("rate limited")

	// ErrWatcherValidation indicates watcher validation failed.
	// The watch target is misconfigured or credentials are invalid.
	ErrWatcherValidation = errors.New("watcher validation failed")

	// ErrWatcherClosed indicates the watcher has been closed.
	ErrWatcherClosed = errors.New("watcher closed")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
