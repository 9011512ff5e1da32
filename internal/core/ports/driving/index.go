package driving

import (
	"context"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

// IndexService rebuilds and reports on the semantic index.
type IndexService interface {
	// Reindex rebuilds the index from snapshot when the change detector reports
	// a difference. Unchanged snapshots return a result with Unchanged set.
	Reindex(ctx context.Context, snapshot *domain.Snapshot) (*domain.ReindexResult, error)

	// ReindexWithOptions is Reindex with explicit options.
	ReindexWithOptions(ctx context.Context, snapshot *domain.Snapshot, opts domain.ReindexOptions) (*domain.ReindexResult, error)

	// Status reports document count and staleness against snapshot.
	Status(ctx context.Context, snapshot *domain.Snapshot) (*domain.IndexStatus, error)
}

// RowEncoder serialises records into document text and metadata.
type RowEncoder interface {
	// Encode is pure. Records with no usable column return domain.ErrEncoding.
	Encode(record domain.Record) (string, map[string]string, error)

	// EncodeDataset encodes every row of a dataset, resolving column roles once.
	// Rows that fail encoding are reported in skipped and omitted from docs.
	EncodeDataset(dataset domain.Dataset) (docs []domain.Document, skipped int)
}

// ChangeDetector decides whether a snapshot differs from the last indexed one.
type ChangeDetector interface {
	// Fingerprint returns the digest of snapshot's shape.
	Fingerprint(snapshot *domain.Snapshot) domain.Fingerprint

	// NeedsReindex is true when no digest is recorded or it differs from fp.
	NeedsReindex(ctx context.Context, fp domain.Fingerprint) (bool, error)

	// Record stores fp after a successful full reindex.
	Record(ctx context.Context, fp domain.Fingerprint) error

	// Last returns the recorded digest.
	Last(ctx context.Context) (domain.Fingerprint, error)

	// ModelChanged is true when the recorded embedding model differs from model.
	ModelChanged(ctx context.Context, model domain.EmbeddingModel) (bool, error)

	// RecordModel stores model after a successful full reindex.
	RecordModel(ctx context.Context, model domain.EmbeddingModel) error

	// LastModel returns the recorded embedding model.
	LastModel(ctx context.Context) (domain.EmbeddingModel, error)
}
