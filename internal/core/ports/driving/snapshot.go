package driving

import (
	"context"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

// SnapshotSource hands out the current immutable snapshot.
type SnapshotSource interface {
	// Current returns the live snapshot, or nil when none was loaded.
	Current() *domain.Snapshot

	// Reload asks the dataset provider for a fresh snapshot and publishes it.
	Reload(ctx context.Context) (*domain.Snapshot, error)
}
