package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/quasar/internal/adapters/driven/storage/similarity"
	"github.com/custodia-labs/quasar/internal/core/domain"
	"github.com/custodia-labs/quasar/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// IndexStore is an in-memory implementation of driven.IndexStore.
// Replace builds the new map outside the lock and swaps it in.
type IndexStore struct {
	mu         sync.RWMutex
	documents  map[string]domain.Document
	dimensions int
}

// NewIndexStore creates a new in-memory index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{
		documents: make(map[string]domain.Document),
	}
}

// AddBatch upserts documents by ID.
func (s *IndexStore) AddBatch(_ context.Context, docs []domain.Document) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dims := s.dimensions
	for i := range docs {
		if err := similarity.CheckDimensions(dims, len(docs[i].Embedding)); err != nil {
			return 0, err
		}
		dims = len(docs[i].Embedding)
	}
	for i := range docs {
		s.documents[docs[i].ID] = cloneDocument(docs[i])
	}
	s.dimensions = dims
	return len(docs), nil
}

// Query returns the topK most similar documents matching filters.
func (s *IndexStore) Query(
	_ context.Context, vector []float32, topK int, filters map[string]string,
) ([]domain.ScoredDocument, error) {
	ranker, err := similarity.NewRanker(vector, topK)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.documents) > 0 {
		if err := similarity.CheckDimensions(s.dimensions, len(vector)); err != nil {
			return nil, err
		}
	}
	for id := range s.documents {
		doc := s.documents[id]
		if !similarity.Matches(doc.Metadata, filters) {
			continue
		}
		if err := ranker.Offer(doc); err != nil {
			return nil, err
		}
	}
	return ranker.Results(), nil
}

// Replace swaps the whole document set.
func (s *IndexStore) Replace(_ context.Context, docs []domain.Document) (int, error) {
	next := make(map[string]domain.Document, len(docs))
	dims := 0
	for i := range docs {
		if err := similarity.CheckDimensions(dims, len(docs[i].Embedding)); err != nil {
			return 0, err
		}
		dims = len(docs[i].Embedding)
		next[docs[i].ID] = cloneDocument(docs[i])
	}

	s.mu.Lock()
	s.documents = next
	s.dimensions = dims
	s.mu.Unlock()
	return len(next), nil
}

// Clear removes every document.
func (s *IndexStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = make(map[string]domain.Document)
	s.dimensions = 0
	return nil
}

// Size returns the number of stored documents.
func (s *IndexStore) Size(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents), nil
}

// Close is a no-op for the memory store.
func (s *IndexStore) Close() error {
	return nil
}

func cloneDocument(doc domain.Document) domain.Document {
	out := doc
	out.Embedding = append([]float32(nil), doc.Embedding...)
	if doc.Metadata != nil {
		out.Metadata = make(map[string]string, len(doc.Metadata))
		for k, v := range doc.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
