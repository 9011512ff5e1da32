package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates a caller passed a value outside the accepted range,
	// such as a non-positive top_k or n. It is never clamped silently.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEncoding indicates a record could not be turned into document text.
	// Callers skip the record and continue the batch.
	ErrEncoding = errors.New("record has no usable columns")

	// ErrIndexUnavailable indicates the persisted index is unreadable or corrupt.
	// The caller decides whether to clear and rebuild or halt.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured
	// or failed. Context building degrades to deterministic-only output.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrDimensionMismatch indicates a vector does not match the dimensionality
	// already held by the index. Mixing embedding models corrupts similarity scores.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrNoSnapshot indicates no dataset snapshot has been loaded yet.
	ErrNoSnapshot = errors.New("no dataset snapshot loaded")

	// ErrDatasetUnavailable indicates the dataset provider could not deliver a snapshot.
	ErrDatasetUnavailable = errors.New("dataset provider unavailable")

	// ErrUnsupportedType indicates an unknown provider or backend name in configuration.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrReindexInProgress indicates a reindex is already running.
	ErrReindexInProgress = errors.New("reindex in progress")
)
