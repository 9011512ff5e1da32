package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/quasar/internal/core/domain"
	"github.com/custodia-labs/quasar/internal/core/ports/driven"
	"github.com/custodia-labs/quasar/internal/core/ports/driving"
	"github.com/custodia-labs/quasar/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// Default indexing tuning.
const (
	defaultBatchSize   = 64
	defaultConcurrency = 4
)

// ProgressFunc reports embedded documents out of total during a reindex.
// It may be called from several goroutines at once.
type ProgressFunc func(done, total int)

// IndexService rebuilds the semantic index from a snapshot.
//
// Documents are embedded before anything is written, then published with a
// single IndexStore.Replace, so the previous index keeps serving queries for
// the whole run and a failed or cancelled run leaves it untouched.
type IndexService struct {
	encoder  driving.RowEncoder
	index    driven.IndexStore
	embedder driven.EmbeddingService
	detector driving.ChangeDetector

	batchSize   int
	concurrency int
	progress    ProgressFunc

	mu sync.Mutex
}

// NewIndexService creates an index service.
// The embedder is optional; without it Reindex fails with ErrEmbeddingUnavailable.
func NewIndexService(
	encoder driving.RowEncoder,
	index driven.IndexStore,
	embedder driven.EmbeddingService,
	detector driving.ChangeDetector,
) *IndexService {
	return &IndexService{
		encoder:     encoder,
		index:       index,
		embedder:    embedder,
		detector:    detector,
		batchSize:   defaultBatchSize,
		concurrency: defaultConcurrency,
	}
}

// SetBatching sets documents per embedding call and in-flight call limit.
// Non-positive values keep the current setting.
func (s *IndexService) SetBatching(batchSize, concurrency int) {
	if batchSize > 0 {
		s.batchSize = batchSize
	}
	if concurrency > 0 {
		s.concurrency = concurrency
	}
}

// SetProgress sets a callback invoked after each embedded batch.
func (s *IndexService) SetProgress(fn ProgressFunc) {
	s.progress = fn
}

// Reindex rebuilds the index when the snapshot's fingerprint changed.
func (s *IndexService) Reindex(ctx context.Context, snapshot *domain.Snapshot) (*domain.ReindexResult, error) {
	return s.ReindexWithOptions(ctx, snapshot, domain.ReindexOptions{})
}

// ReindexWithOptions rebuilds the index. Force skips the fingerprint check.
func (s *IndexService) ReindexWithOptions(
	ctx context.Context, snapshot *domain.Snapshot, opts domain.ReindexOptions,
) (*domain.ReindexResult, error) {
	if snapshot == nil {
		return nil, domain.ErrNoSnapshot
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("reindex: %w", domain.ErrEmbeddingUnavailable)
	}
	if !s.mu.TryLock() {
		return nil, domain.ErrReindexInProgress
	}
	defer s.mu.Unlock()

	result := &domain.ReindexResult{
		RunID:       uuid.NewString(),
		Fingerprint: s.detector.Fingerprint(snapshot),
	}
	logger.Section("Reindex " + result.RunID)
	logger.Debug("Fingerprint: %s, force: %t", result.Fingerprint.Short(), opts.Force)

	needs, err := s.detector.NeedsReindex(ctx, result.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("reindex: %w", err)
	}
	model := s.model()
	modelChanged, err := s.detector.ModelChanged(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("reindex: %w", err)
	}
	if modelChanged && !needs {
		logger.Info("Embedding model changed to %s, rebuilding index", model)
	}
	if !needs && !modelChanged && !opts.Force {
		result.Unchanged = true
		logger.Info("Snapshot unchanged, nothing to index")
		return result, nil
	}

	var docs []domain.Document
	for _, ds := range snapshot.Datasets {
		encoded, skipped := s.encoder.EncodeDataset(ds)
		if skipped > 0 {
			logger.Warn("Dataset %s: skipped %d rows with no usable columns", ds.ID, skipped)
		}
		result.RecordsSkipped += skipped
		docs = append(docs, encoded...)
	}
	logger.Debug("Encoded %d documents (%d skipped)", len(docs), result.RecordsSkipped)

	if err := s.embedAll(ctx, docs); err != nil {
		return nil, fmt.Errorf("reindex: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("reindex: %w", err)
	}

	done := logger.Stage("publish index")
	n, err := s.index.Replace(ctx, docs)
	done()
	if err != nil {
		return nil, fmt.Errorf("reindex: publish: %w", err)
	}
	if err := s.detector.Record(ctx, result.Fingerprint); err != nil {
		return nil, fmt.Errorf("reindex: %w", err)
	}
	if err := s.detector.RecordModel(ctx, model); err != nil {
		return nil, fmt.Errorf("reindex: %w", err)
	}

	result.DocumentsIndexed = n
	logger.Info("Reindex %s complete: %d documents", result.RunID, n)
	return result, nil
}

// embedAll fills each document's Embedding in batches with bounded concurrency.
// The context is checked between batches so a superseded run stops early.
func (s *IndexService) embedAll(ctx context.Context, docs []domain.Document) error {
	defer logger.Stage(fmt.Sprintf("embed %d documents", len(docs)))()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	var embedded atomic.Int64
	total := len(docs)
	for start := 0; start < total; start += s.batchSize {
		if gctx.Err() != nil {
			break
		}
		end := min(start+s.batchSize, total)
		batch := docs[start:end]

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			texts := make([]string, len(batch))
			for i := range batch {
				texts[i] = batch[i].Text
			}
			vectors, err := s.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed batch %d-%d: %w", start, end, err)
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("embed batch %d-%d: got %d vectors for %d texts: %w",
					start, end, len(vectors), len(batch), domain.ErrEmbeddingUnavailable)
			}
			for i := range batch {
				batch[i].Embedding = vectors[i]
			}
			n := int(embedded.Add(int64(len(batch))))
			if s.progress != nil {
				s.progress(n, total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Status reports index size and staleness against snapshot.
func (s *IndexService) Status(ctx context.Context, snapshot *domain.Snapshot) (*domain.IndexStatus, error) {
	size, err := s.index.Size(ctx)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	last, err := s.detector.Last(ctx)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	indexedModel, err := s.detector.LastModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	status := &domain.IndexStatus{
		Documents:          size,
		IndexedFingerprint: last,
		SnapshotLoaded:     snapshot != nil,
		IndexedModel:       indexedModel,
	}
	if s.embedder != nil {
		status.EmbeddingModel = s.embedder.ModelName()
	}
	if snapshot != nil {
		status.LiveFingerprint = s.detector.Fingerprint(snapshot)
		status.Stale = last != status.LiveFingerprint
		if s.embedder != nil && indexedModel != s.model() {
			status.Stale = true
		}
	}
	return status, nil
}

// model identifies the configured embedder.
func (s *IndexService) model() domain.EmbeddingModel {
	return domain.EmbeddingModel{Name: s.embedder.ModelName(), Dimensions: s.embedder.Dimensions()}
}
