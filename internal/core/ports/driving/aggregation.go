package driving

import (
	"context"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

// AggregationService computes exact answers from the live snapshot.
// It never reads the semantic index.
type AggregationService interface {
	// TopN ranks entities by summed metric.
	TopN(ctx context.Context, snapshot *domain.Snapshot, q domain.TopNQuery) (*domain.AggregateResult, error)

	// Total sums metric over one period, or every period when period is nil.
	Total(ctx context.Context, snapshot *domain.Snapshot, metric domain.Metric, period *domain.Period) (*domain.AggregateResult, error)

	// ByTransaction sums metric for rows carrying transactionID.
	ByTransaction(ctx context.Context, snapshot *domain.Snapshot, transactionID string, metric domain.Metric, period *domain.Period) (*domain.AggregateResult, error)

	// Periods lists every period present in snapshot, ascending.
	Periods(snapshot *domain.Snapshot) []domain.Period

	// LatestPeriod returns the most recent period present in snapshot.
	LatestPeriod(snapshot *domain.Snapshot) (domain.Period, bool)

	// LatestYearForMonth returns the latest year holding rows for month.
	LatestYearForMonth(snapshot *domain.Snapshot, month int) (int, bool)
}
