package driven

import (
	"context"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

// DatasetProvider loads every configured dataset as one snapshot.
// A provider either returns a complete snapshot or an error; it never
// returns a partially loaded one.
type DatasetProvider interface {
	// Load reads all datasets. Failures wrap domain.ErrDatasetUnavailable.
	Load(ctx context.Context) (*domain.Snapshot, error)

	// Name identifies the provider in logs and status output.
	Name() string
}

// DatasetWatcher notifies when the underlying datasets may have changed.
type DatasetWatcher interface {
	// Watch sends on the returned channel after each change burst until ctx is
	// cancelled, at which point the channel is closed.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
