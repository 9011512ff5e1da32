// Package cli provides the command-line interface for quasar.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quasar/internal/core/domain"
	"github.com/custodia-labs/quasar/internal/core/ports/driving"
	"github.com/custodia-labs/quasar/internal/logger"
)

// version is set at build time.
var version = "dev"

// Flag values.
var (
	verbose   bool
	configDir string
)

// Service instances injected by Bootstrap (or directly by tests).
var (
	contextService     driving.ContextService
	aggregationService driving.AggregationService
	indexService       driving.IndexService
	snapshotSource     driving.SnapshotSource
	settingsService    driving.SettingsService
	reloader           Reloader
	metricsHandler     http.Handler
	setProgress        func(func(done, total int))
	resetIndex         func(ctx context.Context) error
	closeServices      func() error
)

var bootstrap BootstrapFunc

// Reloader keeps the snapshot and index current in long-running modes.
type Reloader interface {
	Start(ctx context.Context) error
	Stop() error
}

// Services is the set of wired services handed to the commands.
type Services struct {
	Context     driving.ContextService
	Aggregation driving.AggregationService
	Index       driving.IndexService
	Snapshots   driving.SnapshotSource
	Settings    driving.SettingsService

	// Reloader is started by serve. Optional.
	Reloader Reloader

	// Metrics serves the Prometheus registry. Optional.
	Metrics http.Handler

	// SetProgress installs a reindex progress callback. Optional.
	SetProgress func(func(done, total int))

	// Reset clears the index and its recorded fingerprint. Optional.
	Reset func(ctx context.Context) error

	// Close releases adapters. Optional.
	Close func() error
}

// BootstrapFunc builds the services from the config directory. On error it may
// still return services with Settings set so configuration can be repaired.
type BootstrapFunc func(ctx context.Context, configDir string) (*Services, error)

var rootCmd = &cobra.Command{
	Use:   "quasar",
	Short: "Grounded context for questions over sales records",
	Long: `Quasar answers questions about tabular sales records by combining exact
aggregations over the live dataset with semantic retrieval from an index of
encoded rows. The merged result is a bounded context payload for a language
model.`,
	SilenceUsage:      true,
	PersistentPreRunE: runPreRun,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default ~/.quasar)")
}

// SetServices injects the services used by the commands.
func SetServices(s *Services) {
	contextService = s.Context
	aggregationService = s.Aggregation
	indexService = s.Index
	snapshotSource = s.Snapshots
	settingsService = s.Settings
	reloader = s.Reloader
	metricsHandler = s.Metrics
	setProgress = s.SetProgress
	resetIndex = s.Reset
	closeServices = s.Close
}

// Execute runs the root command. bootstrap is invoked lazily by commands that
// need services.
func Execute(ctx context.Context, v string, fn BootstrapFunc) error {
	if v != "" {
		version = v
	}
	bootstrap = fn
	defer func() {
		if closeServices != nil {
			if err := closeServices(); err != nil {
				logger.Warn("close: %v", err)
			}
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func runPreRun(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if cmd == versionCmd || bootstrap == nil || contextService != nil {
		return nil
	}
	services, err := bootstrap(commandContext(cmd), configDir)
	if err != nil {
		if isSettingsCommand(cmd) && services != nil && services.Settings != nil {
			logger.Warn("initialise: %v", err)
			settingsService = services.Settings
			return nil
		}
		return fmt.Errorf("initialise: %w", err)
	}
	SetServices(services)
	return nil
}

func isSettingsCommand(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c == settingsCmd {
			return true
		}
	}
	return false
}

// liveSnapshot returns the published snapshot, loading it on first use.
func liveSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	if snapshotSource == nil {
		return nil, errors.New("snapshot source not configured")
	}
	if snapshot := snapshotSource.Current(); snapshot != nil {
		return snapshot, nil
	}
	return snapshotSource.Reload(ctx)
}

// commandContext returns the command context, or Background when unset.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
