package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

var (
	topMetric   string
	topBy       string
	topPeriod   string
	topByPeriod bool
	topN        int
	topJSON     bool
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Rank products or categories by an exact aggregate",
	Long: `Ranks entities by the summed metric over the live dataset. The ranking is
computed from the records directly and never consults the semantic index.

--by selects the ranked dimension: product (default) or category.

--period accepts YYYY-MM or "latest". Without it the ranking spans every
period, or one ranking per period with --by-period.`,
	Args: cobra.NoArgs,
	RunE: runTop,
}

func init() {
	topCmd.Flags().StringVar(&topMetric, "metric", string(domain.MetricRevenue), "metric to rank by (revenue, quantity)")
	topCmd.Flags().StringVar(&topBy, "by", string(domain.EntityProduct), "dimension to rank (product, category)")
	topCmd.Flags().StringVar(&topPeriod, "period", "", "period as YYYY-MM or latest (default every period)")
	topCmd.Flags().BoolVar(&topByPeriod, "by-period", false, "one ranking per period")
	topCmd.Flags().IntVarP(&topN, "limit", "n", 0, "entries per ranking (0 = configured default)")
	topCmd.Flags().BoolVar(&topJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(topCmd)
}

type rankEntryOutput struct {
	Rank   int     `json:"rank"`
	Entity string  `json:"entity"`
	Value  float64 `json:"value"`
}

type rankingOutput struct {
	Period  string            `json:"period,omitempty"`
	Entries []rankEntryOutput `json:"entries"`
}

type topOutput struct {
	Metric   string          `json:"metric"`
	Entity   string          `json:"entity"`
	Found    bool            `json:"found"`
	Rankings []rankingOutput `json:"rankings"`
}

func runTop(cmd *cobra.Command, _ []string) error {
	if aggregationService == nil {
		return errors.New("aggregation service not configured")
	}

	metric := domain.Metric(strings.ToLower(strings.TrimSpace(topMetric)))
	if !metric.IsValid() {
		return fmt.Errorf("unknown metric %q: %w", topMetric, domain.ErrInvalidArgument)
	}
	entity, err := domain.ParseEntity(topBy)
	if err != nil {
		return err
	}
	n := topN
	if n < 0 {
		return fmt.Errorf("limit must be positive: %w", domain.ErrInvalidArgument)
	}
	if n == 0 {
		n = configuredTopN()
	}

	ctx := commandContext(cmd)
	snapshot, err := liveSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	query := domain.TopNQuery{Metric: metric, Entity: entity, GroupByPeriod: topByPeriod, N: n}
	switch p := strings.ToLower(strings.TrimSpace(topPeriod)); p {
	case "":
	case "latest":
		latest, ok := aggregationService.LatestPeriod(snapshot)
		if !ok {
			// No dated rows, so there is no latest period to rank.
			return printTop(cmd, topOutput{Metric: metric.String(), Entity: entity.String(), Rankings: []rankingOutput{}})
		}
		query.Period = &latest
	default:
		period, err := domain.ParsePeriod(p)
		if err != nil {
			return err
		}
		query.Period = &period
	}

	res, err := aggregationService.TopN(ctx, snapshot, query)
	if err != nil {
		return fmt.Errorf("top: %w", err)
	}

	return printTop(cmd, toTopOutput(res))
}

func printTop(cmd *cobra.Command, out topOutput) error {
	if topJSON {
		return printJSON(cmd.OutOrStdout(), out)
	}

	if !out.Found {
		cmd.Println("No records for the requested period.")
		return nil
	}
	for i, r := range out.Rankings {
		if i > 0 {
			cmd.Println()
		}
		title := "All periods"
		if r.Period != "" {
			title = r.Period
		}
		cmd.Printf("%s (%s by %s)\n", title, out.Metric, out.Entity)
		if len(r.Entries) == 0 {
			cmd.Println("  (no entries)")
			continue
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, e := range r.Entries {
			fmt.Fprintf(w, "  %d.\t%s\t%s\n", e.Rank, e.Entity, strconv.FormatFloat(e.Value, 'f', -1, 64))
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func toTopOutput(res *domain.AggregateResult) topOutput {
	out := topOutput{
		Metric:   res.Metric.String(),
		Entity:   res.Entity.String(),
		Found:    res.Found,
		Rankings: make([]rankingOutput, 0, len(res.Groups)),
	}
	for _, g := range res.Groups {
		r := rankingOutput{Entries: make([]rankEntryOutput, 0, len(g.Entries))}
		if !g.Period.IsZero() {
			r.Period = g.Period.String()
		}
		for _, e := range g.Entries {
			r.Entries = append(r.Entries, rankEntryOutput{Rank: e.Rank, Entity: e.Entity, Value: e.Value})
		}
		out.Rankings = append(out.Rankings, r)
	}
	return out
}
