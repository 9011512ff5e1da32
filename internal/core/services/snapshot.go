package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/custodia-labs/quasar/internal/core/domain"
	"github.com/custodia-labs/quasar/internal/core/ports/driven"
	"github.com/custodia-labs/quasar/internal/core/ports/driving"
	"github.com/custodia-labs/quasar/internal/logger"
)

// Ensure SnapshotHolder implements the interface.
var _ driving.SnapshotSource = (*SnapshotHolder)(nil)

// SnapshotHolder owns the live dataset snapshot.
// Readers get an immutable snapshot; reloads publish a new one by pointer swap.
type SnapshotHolder struct {
	provider driven.DatasetProvider
	current  atomic.Pointer[domain.Snapshot]
}

// NewSnapshotHolder creates a holder that reloads from provider.
// The provider may be nil for holders fed only through Publish.
func NewSnapshotHolder(provider driven.DatasetProvider) *SnapshotHolder {
	return &SnapshotHolder{provider: provider}
}

// Current returns the live snapshot, or nil when none was loaded.
func (h *SnapshotHolder) Current() *domain.Snapshot {
	return h.current.Load()
}

// Publish replaces the live snapshot.
func (h *SnapshotHolder) Publish(snapshot *domain.Snapshot) {
	h.current.Store(snapshot)
}

// Reload loads a fresh snapshot and publishes it. On failure the previous
// snapshot stays live.
func (h *SnapshotHolder) Reload(ctx context.Context) (*domain.Snapshot, error) {
	if h.provider == nil {
		return nil, fmt.Errorf("reload: no dataset provider: %w", domain.ErrDatasetUnavailable)
	}
	done := logger.Stage("load datasets from " + h.provider.Name())
	snapshot, err := h.provider.Load(ctx)
	done()
	if err != nil {
		return nil, fmt.Errorf("reload: %w", err)
	}
	h.Publish(snapshot)
	logger.Info("Loaded %d datasets, %d records", len(snapshot.Datasets), snapshot.RecordCount())
	return snapshot, nil
}
