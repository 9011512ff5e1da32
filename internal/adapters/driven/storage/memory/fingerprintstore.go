package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/quasar/internal/core/domain"
	"github.com/custodia-labs/quasar/internal/core/ports/driven"
)

// Ensure FingerprintStore implements the interface.
var _ driven.FingerprintStore = (*FingerprintStore)(nil)

// FingerprintStore is an in-memory implementation of driven.FingerprintStore.
type FingerprintStore struct {
	mu    sync.RWMutex
	fp    domain.Fingerprint
	model domain.EmbeddingModel
}

// NewFingerprintStore creates an empty fingerprint store.
func NewFingerprintStore() *FingerprintStore {
	return &FingerprintStore{}
}

// LoadFingerprint returns the stored digest, or "" when none was saved.
func (s *FingerprintStore) LoadFingerprint(_ context.Context) (domain.Fingerprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fp, nil
}

// SaveFingerprint overwrites the stored digest.
func (s *FingerprintStore) SaveFingerprint(_ context.Context, fp domain.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fp = fp
	return nil
}

// LoadEmbeddingModel returns the stored model, or the zero model when none was saved.
func (s *FingerprintStore) LoadEmbeddingModel(_ context.Context) (domain.EmbeddingModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model, nil
}

// SaveEmbeddingModel overwrites the stored model.
func (s *FingerprintStore) SaveEmbeddingModel(_ context.Context, model domain.EmbeddingModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = model
	return nil
}
