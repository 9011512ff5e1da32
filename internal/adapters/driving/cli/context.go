package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

var (
	contextMaxChars int
	contextJSON     bool
)

var contextCmd = &cobra.Command{
	Use:   "context [query]",
	Short: "Build a context payload for a question",
	Long: `Classifies the question, runs the exact aggregation path and the semantic
retrieval path, and prints the merged payload bounded by --max-chars.

A failing embedding provider degrades the payload to aggregation results only;
the status line reports it as semantic_degraded.`,
	Args: cobra.ExactArgs(1),
	RunE: runContext,
}

func init() {
	contextCmd.Flags().IntVarP(&contextMaxChars, "max-chars", "m", 0, "payload budget in characters (0 = configured default)")
	contextCmd.Flags().BoolVar(&contextJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(contextCmd)
}

// contextOutput is the JSON form of a context payload.
type contextOutput struct {
	Context           string `json:"context"`
	Status            string `json:"status"`
	Intent            string `json:"intent"`
	Stale             bool   `json:"stale"`
	UsedDeterministic bool   `json:"used_deterministic"`
	UsedSemantic      bool   `json:"used_semantic"`
	SegmentsDropped   int    `json:"segments_dropped"`
}

func runContext(cmd *cobra.Command, args []string) error {
	if contextService == nil {
		return errors.New("context service not configured")
	}

	maxChars := contextMaxChars
	if maxChars <= 0 {
		maxChars = configuredMaxChars()
	}

	ctx := commandContext(cmd)
	if snapshotSource != nil && snapshotSource.Current() == nil {
		// The context service degrades without a snapshot; loading is best effort.
		if _, err := snapshotSource.Reload(ctx); err != nil {
			cmd.PrintErrf("Warning: %v\n", err)
		}
	}

	payload, err := contextService.BuildContext(ctx, args[0], maxChars)
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}

	if contextJSON {
		return printJSON(cmd.OutOrStdout(), contextOutput{
			Context:           payload.Payload,
			Status:            payload.Status.String(),
			Intent:            payload.Intent.Kind.String(),
			Stale:             payload.Stale,
			UsedDeterministic: payload.UsedDeterministic,
			UsedSemantic:      payload.UsedSemantic,
			SegmentsDropped:   payload.SegmentsDropped,
		})
	}

	cmd.Println(payload.Payload)
	cmd.Println()
	cmd.Printf("status=%s intent=%s", payload.Status, payload.Intent.Kind)
	if payload.Stale {
		cmd.Print(" stale=true")
	}
	if payload.SegmentsDropped > 0 {
		cmd.Printf(" dropped=%d", payload.SegmentsDropped)
	}
	cmd.Println()
	return nil
}

// configuredMaxChars reads the budget from settings, else the built-in default.
func configuredMaxChars() int {
	return configuredContext().MaxChars
}

func configuredTopN() int {
	return configuredContext().DefaultTopN
}

func configuredContext() domain.ContextSettings {
	defaults := domain.DefaultAppSettings().Context
	if settingsService == nil {
		return defaults
	}
	settings, err := settingsService.Get()
	if err != nil || settings == nil {
		return defaults
	}
	ctx := settings.Context
	if ctx.MaxChars <= 0 {
		ctx.MaxChars = defaults.MaxChars
	}
	if ctx.DefaultTopN <= 0 {
		ctx.DefaultTopN = defaults.DefaultTopN
	}
	return ctx
}
