package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/custodia-labs/quasar/internal/adapters/driven/config/file"
	"github.com/custodia-labs/quasar/internal/adapters/driven/dataset/csvdir"
	"github.com/custodia-labs/quasar/internal/adapters/driven/dataset/sheets"
	"github.com/custodia-labs/quasar/internal/adapters/driven/embedding"
	"github.com/custodia-labs/quasar/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/quasar/internal/adapters/driven/storage/pgvector"
	"github.com/custodia-labs/quasar/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/quasar/internal/adapters/driving/cli"
	"github.com/custodia-labs/quasar/internal/core/domain"
	"github.com/custodia-labs/quasar/internal/core/ports/driven"
	"github.com/custodia-labs/quasar/internal/core/services"
	"github.com/custodia-labs/quasar/internal/logger"
	"github.com/custodia-labs/quasar/internal/metrics"
)

// sheetsPollInterval is how often serve mode reloads Google Sheets, which
// offer no change notifications.
const sheetsPollInterval = 5 * time.Minute

// bootstrap wires adapters and services from the configuration in configDir.
func bootstrap(ctx context.Context, configDir string) (*cli.Services, error) {
	if configDir == "" {
		dir, err := file.DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	settingsService.SetEmbeddingValidator(embedding.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		return &cli.Services{Settings: settingsService}, err
	}
	if settings.Index.DataDir == "" {
		settings.Index.DataDir = filepath.Join(configDir, "data")
	}

	svc, err := wire(ctx, settings)
	if err != nil {
		return &cli.Services{Settings: settingsService}, err
	}
	svc.Settings = settingsService
	return svc, nil
}

// closers releases adapters in reverse order of creation.
type closers []func() error

func (c *closers) add(fn func() error) {
	*c = append(*c, fn)
}

func (c closers) close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// wire builds the services described by settings.
func wire(ctx context.Context, settings *domain.AppSettings) (*cli.Services, error) {
	var cleanup closers

	provider, watcher, interval, err := newDatasetProvider(ctx, settings.Dataset)
	if err != nil {
		return nil, err
	}

	embedder, err := embedding.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		// Context building degrades to aggregation only and reindex reports
		// the embedder as unavailable.
		logger.Warn("embedding provider %s unavailable: %v", settings.Embedding.Provider, err)
		embedder = nil
	} else {
		cleanup.add(embedder.Close)
	}

	index, fingerprints, err := newIndex(ctx, settings.Index, dimensionsOf(embedder), &cleanup)
	if err != nil {
		_ = cleanup.close()
		return nil, err
	}

	m := metrics.New("quasar")

	snapshots := services.NewSnapshotHolder(provider)
	aggregation := services.NewAggregationService()
	detector := services.NewChangeDetector(fingerprints)
	classifier := services.NewQueryClassifier(
		aggregation,
		settings.Context.DefaultTopN,
		settings.Context.LatestPeriodDefault,
	)

	contextSvc := services.NewContextService(snapshots, classifier, aggregation, index, embedder)
	contextSvc.SetChangeDetector(detector)
	contextSvc.SetTopK(settings.Context.TopK)

	indexer := services.NewIndexService(services.NewRowEncoder(), index, embedder, detector)
	indexer.SetBatching(settings.Indexing.BatchSize, settings.Indexing.Concurrency)
	instrumentedIndex := m.InstrumentIndex(indexer)

	reloader := services.NewReloader(snapshots, instrumentedIndex, watcher, interval)
	reloader.OnReindex = func(res *domain.ReindexResult, err error) {
		if err == nil && res != nil && !res.Unchanged {
			logger.Info("Reindexed %d documents (run %s)", res.DocumentsIndexed, res.RunID)
		}
	}

	return &cli.Services{
		Context:     m.InstrumentContext(contextSvc),
		Aggregation: aggregation,
		Index:       instrumentedIndex,
		Snapshots:   snapshots,
		Reloader:    reloader,
		Metrics:     m.Handler(),
		SetProgress: func(fn func(done, total int)) { indexer.SetProgress(fn) },
		Reset: func(ctx context.Context) error {
			if err := index.Clear(ctx); err != nil {
				return err
			}
			if err := fingerprints.SaveFingerprint(ctx, ""); err != nil {
				return err
			}
			return fingerprints.SaveEmbeddingModel(ctx, domain.EmbeddingModel{})
		},
		Close: cleanup.close,
	}, nil
}

func newDatasetProvider(
	ctx context.Context,
	cfg domain.DatasetSettings,
) (driven.DatasetProvider, driven.DatasetWatcher, time.Duration, error) {
	switch cfg.Provider {
	case domain.DatasetProviderSheets:
		p, err := sheets.New(ctx, sheets.Config{
			SpreadsheetIDs:  cfg.SheetIDs,
			Range:           cfg.SheetRange,
			CredentialsFile: cfg.CredentialsFile,
		})
		if err != nil {
			return nil, nil, 0, err
		}
		return p, nil, sheetsPollInterval, nil
	case domain.DatasetProviderCSV, "":
		p := csvdir.New(cfg.CSVDir)
		return p, p, 0, nil
	default:
		return nil, nil, 0, fmt.Errorf("dataset provider %q: %w", cfg.Provider, domain.ErrUnsupportedType)
	}
}

func dimensionsOf(embedder driven.EmbeddingService) int {
	if embedder == nil {
		return 0
	}
	return embedder.Dimensions()
}

func newIndex(
	ctx context.Context,
	cfg domain.IndexSettings,
	dimensions int,
	cleanup *closers,
) (driven.IndexStore, driven.FingerprintStore, error) {
	switch cfg.Backend {
	case domain.IndexBackendMemory:
		return memory.NewIndexStore(), memory.NewFingerprintStore(), nil
	case domain.IndexBackendPgvector:
		store, err := pgvector.New(ctx, pgvector.Config{DSN: cfg.PgvectorDSN, Dimensions: dimensions})
		if err != nil {
			return nil, nil, err
		}
		cleanup.add(store.Close)
		return store, store, nil
	case domain.IndexBackendSQLite, "":
		store, err := sqlite.NewStore(cfg.DataDir)
		if errors.Is(err, domain.ErrIndexUnavailable) {
			// The index is derived data; drop it and let the next reindex rebuild it.
			logger.Warn("index unreadable, rebuilding: %v", err)
			if resetErr := sqlite.Reset(cfg.DataDir); resetErr != nil {
				return nil, nil, errors.Join(err, resetErr)
			}
			store, err = sqlite.NewStore(cfg.DataDir)
		}
		if err != nil {
			return nil, nil, err
		}
		cleanup.add(store.Close)
		return store.IndexStore(), store.FingerprintStore(), nil
	default:
		return nil, nil, fmt.Errorf("index backend %q: %w", cfg.Backend, domain.ErrUnsupportedType)
	}
}
