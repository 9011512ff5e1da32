package driven

import (
	"context"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

// IndexStore persists documents with their embeddings and answers
// nearest-neighbour queries over them.
//
// Implementations allow a single writer and many concurrent readers.
// Readers never observe a partially replaced index.
type IndexStore interface {
	// AddBatch upserts documents by ID. Embeddings are pre-computed.
	// Returns ErrDimensionMismatch when a vector's size differs from the
	// dimensionality already in the store.
	AddBatch(ctx context.Context, docs []domain.Document) (int, error)

	// Query returns up to topK documents ordered by descending cosine similarity,
	// ties broken by ascending document ID. Filters are exact-match conjunctions
	// over document metadata. An empty store yields an empty slice.
	// Returns ErrInvalidArgument when topK <= 0.
	Query(ctx context.Context, vector []float32, topK int, filters map[string]string) ([]domain.ScoredDocument, error)

	// Replace removes every document and adds docs as one exclusive write.
	Replace(ctx context.Context, docs []domain.Document) (int, error)

	// Clear removes every document.
	Clear(ctx context.Context) error

	// Size returns the number of stored documents.
	Size(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// FingerprintStore persists the digest of the last successfully indexed
// snapshot and the embedding model that produced its vectors.
type FingerprintStore interface {
	// LoadFingerprint returns the stored digest, or "" when none was recorded.
	LoadFingerprint(ctx context.Context) (domain.Fingerprint, error)

	// SaveFingerprint overwrites the stored digest.
	SaveFingerprint(ctx context.Context, fp domain.Fingerprint) error

	// LoadEmbeddingModel returns the recorded model, or the zero model when none was recorded.
	LoadEmbeddingModel(ctx context.Context) (domain.EmbeddingModel, error)

	// SaveEmbeddingModel overwrites the recorded model.
	SaveEmbeddingModel(ctx context.Context, model domain.EmbeddingModel) error
}
