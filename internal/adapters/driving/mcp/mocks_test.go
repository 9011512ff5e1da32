package mcp

import (
	"context"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

// mockContextService is a mock implementation of driving.ContextService.
type mockContextService struct {
	payload  *domain.ContextPayload
	err      error
	maxChars int
	query    string
}

func (m *mockContextService) BuildContext(_ context.Context, query string, maxChars int) (*domain.ContextPayload, error) {
	m.query = query
	m.maxChars = maxChars
	return m.payload, m.err
}

// mockAggregationService is a mock implementation of driving.AggregationService.
type mockAggregationService struct {
	result *domain.AggregateResult
	err    error
	latest domain.Period
	query  domain.TopNQuery
	calls  int
}

func (m *mockAggregationService) TopN(
	_ context.Context,
	_ *domain.Snapshot,
	q domain.TopNQuery,
) (*domain.AggregateResult, error) {
	m.query = q
	m.calls++
	return m.result, m.err
}

func (m *mockAggregationService) Total(
	context.Context, *domain.Snapshot, domain.Metric, *domain.Period,
) (*domain.AggregateResult, error) {
	return m.result, m.err
}

func (m *mockAggregationService) ByTransaction(
	context.Context, *domain.Snapshot, string, domain.Metric, *domain.Period,
) (*domain.AggregateResult, error) {
	return m.result, m.err
}

func (m *mockAggregationService) Periods(*domain.Snapshot) []domain.Period {
	return []domain.Period{m.latest}
}

func (m *mockAggregationService) LatestPeriod(*domain.Snapshot) (domain.Period, bool) {
	return m.latest, !m.latest.IsZero()
}

func (m *mockAggregationService) LatestYearForMonth(*domain.Snapshot, int) (int, bool) {
	return m.latest.Year, !m.latest.IsZero()
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	result *domain.ReindexResult
	status *domain.IndexStatus
	err    error
	opts   domain.ReindexOptions
}

func (m *mockIndexService) Reindex(ctx context.Context, snap *domain.Snapshot) (*domain.ReindexResult, error) {
	return m.ReindexWithOptions(ctx, snap, domain.ReindexOptions{})
}

func (m *mockIndexService) ReindexWithOptions(
	_ context.Context,
	_ *domain.Snapshot,
	opts domain.ReindexOptions,
) (*domain.ReindexResult, error) {
	m.opts = opts
	return m.result, m.err
}

func (m *mockIndexService) Status(context.Context, *domain.Snapshot) (*domain.IndexStatus, error) {
	return m.status, m.err
}

// mockSnapshotSource is a mock implementation of driving.SnapshotSource.
type mockSnapshotSource struct {
	snapshot  *domain.Snapshot
	reloadErr error
	reloads   int
}

func (m *mockSnapshotSource) Current() *domain.Snapshot {
	return m.snapshot
}

func (m *mockSnapshotSource) Reload(context.Context) (*domain.Snapshot, error) {
	m.reloads++
	if m.reloadErr != nil {
		return nil, m.reloadErr
	}
	return m.snapshot, nil
}
