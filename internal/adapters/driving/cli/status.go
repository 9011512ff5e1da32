package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dataset and index status",
	Long: `Loads the datasets and reports record counts, the indexed document count
and whether the index is stale relative to the live dataset.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statusCmd)
}

type statusOutput struct {
	Datasets           int    `json:"datasets"`
	Records            int    `json:"records"`
	Documents          int    `json:"documents"`
	SnapshotLoaded     bool   `json:"snapshot_loaded"`
	Stale              bool   `json:"stale"`
	IndexedFingerprint string `json:"indexed_fingerprint,omitempty"`
	LiveFingerprint    string `json:"live_fingerprint,omitempty"`
	EmbeddingModel     string `json:"embedding_model,omitempty"`
	IndexedModel       string `json:"indexed_model,omitempty"`
	LatestPeriod       string `json:"latest_period,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	ctx := commandContext(cmd)
	snapshot, err := liveSnapshot(ctx)
	if err != nil {
		// Index status is still useful without a dataset.
		cmd.PrintErrf("Warning: %v\n", err)
		snapshot = nil
	}

	st, err := indexService.Status(ctx, snapshot)
	if err != nil {
		return fmt.Errorf("index status: %w", err)
	}

	out := statusOutput{
		Documents:          st.Documents,
		SnapshotLoaded:     st.SnapshotLoaded,
		Stale:              st.Stale,
		IndexedFingerprint: st.IndexedFingerprint.String(),
		LiveFingerprint:    st.LiveFingerprint.String(),
		EmbeddingModel:     st.EmbeddingModel,
		IndexedModel:       st.IndexedModel.String(),
	}
	if snapshot != nil {
		out.Datasets = len(snapshot.Datasets)
		out.Records = snapshot.RecordCount()
		if aggregationService != nil {
			if p, ok := aggregationService.LatestPeriod(snapshot); ok {
				out.LatestPeriod = p.String()
			}
		}
	}

	if statusJSON {
		return printJSON(cmd.OutOrStdout(), out)
	}

	cmd.Println("Dataset")
	if out.SnapshotLoaded {
		cmd.Printf("  Datasets: %d\n", out.Datasets)
		cmd.Printf("  Records:  %d\n", out.Records)
		if out.LatestPeriod != "" {
			cmd.Printf("  Latest period: %s\n", out.LatestPeriod)
		}
		cmd.Printf("  Fingerprint: %s\n", displayFingerprint(st.LiveFingerprint))
	} else {
		cmd.Println("  (not loaded)")
	}
	cmd.Println()
	cmd.Println("Index")
	cmd.Printf("  Documents: %d\n", out.Documents)
	if out.EmbeddingModel != "" {
		cmd.Printf("  Embedding model: %s\n", out.EmbeddingModel)
	}
	if out.IndexedModel != "" {
		cmd.Printf("  Indexed with: %s\n", out.IndexedModel)
	}
	cmd.Printf("  Fingerprint: %s\n", displayFingerprint(st.IndexedFingerprint))
	cmd.Printf("  State: %s\n", indexState(st))
	return nil
}

func indexState(st *domain.IndexStatus) string {
	switch {
	case !st.SnapshotLoaded:
		return "unknown"
	case st.Stale:
		return "stale (run 'quasar reindex')"
	default:
		return "current"
	}
}
