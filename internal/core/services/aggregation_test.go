package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

func entities(entries []domain.RankEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Entity
	}
	return out
}

func TestAggregationService_TopN_RevenueMarch(t *testing.T) {
	svc := NewAggregationService()

	res, err := svc.TopN(context.Background(), tenRowSnapshot(), domain.TopNQuery{
		Metric: domain.MetricRevenue,
		Period: period(2024, time.March),
		N:      3,
	})

	require.NoError(t, err)
	assert.True(t, res.Found)
	require.Len(t, res.Groups, 1)
	assert.Equal(t, "2024-03", res.Groups[0].Period.String())
	assert.Equal(t, []domain.RankEntry{
		{Rank: 1, Entity: "Laptop X1", Value: 9000},
		{Rank: 2, Entity: "Monitor", Value: 3200},
		{Rank: 3, Entity: "Headset", Value: 800},
	}, res.Groups[0].Entries)
}

func TestAggregationService_TopN_QuantityTieBreak(t *testing.T) {
	svc := NewAggregationService()

	res, err := svc.TopN(context.Background(), tenRowSnapshot(), domain.TopNQuery{
		Metric: domain.MetricQuantity,
		Period: period(2024, time.March),
		N:      4,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Mouse", "Keyboard", "Headset", "Monitor"}, entities(res.Groups[0].Entries))
}

func TestAggregationService_TopN_ByCategory(t *testing.T) {
	svc := NewAggregationService()
	ctx := context.Background()

	res, err := svc.TopN(ctx, tenRowSnapshot(), domain.TopNQuery{
		Metric: domain.MetricRevenue,
		Entity: domain.EntityCategory,
		Period: period(2024, time.March),
		N:      3,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EntityCategory, res.Entity)
	assert.Equal(t, []domain.RankEntry{
		{Rank: 1, Entity: "Computers", Value: 9000},
		{Rank: 2, Entity: "Displays", Value: 3200},
		{Rank: 3, Entity: "Accessories", Value: 2100},
	}, res.Groups[0].Entries)

	res, err = svc.TopN(ctx, tenRowSnapshot(), domain.TopNQuery{
		Metric: domain.MetricQuantity,
		Entity: domain.EntityCategory,
		Period: period(2024, time.March),
		N:      1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Accessories"}, entities(res.Groups[0].Entries))
}

func TestAggregationService_TopN_DefaultEntityIsProduct(t *testing.T) {
	res, err := NewAggregationService().TopN(context.Background(), tenRowSnapshot(), domain.TopNQuery{
		Metric: domain.MetricRevenue,
		Period: period(2024, time.March),
		N:      1,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EntityProduct, res.Entity)
	assert.Equal(t, []string{"Laptop X1"}, entities(res.Groups[0].Entries))
}

func TestAggregationService_TopN_InvalidEntity(t *testing.T) {
	_, err := NewAggregationService().TopN(context.Background(), tenRowSnapshot(), domain.TopNQuery{
		Metric: domain.MetricRevenue,
		Entity: domain.Entity("region"),
		N:      3,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestAggregationService_TopN_NoDataForPeriod(t *testing.T) {
	svc := NewAggregationService()

	res, err := svc.TopN(context.Background(), tenRowSnapshot(), domain.TopNQuery{
		Metric: domain.MetricRevenue,
		Period: period(2019, time.January),
		N:      3,
	})

	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Empty(t, res.Groups)
}

func TestAggregationService_TopN_InvalidN(t *testing.T) {
	svc := NewAggregationService()

	for _, n := range []int{0, -1} {
		_, err := svc.TopN(context.Background(), tenRowSnapshot(), domain.TopNQuery{Metric: domain.MetricRevenue, N: n})
		assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
	}
}

func TestAggregationService_TopN_NoSnapshot(t *testing.T) {
	svc := NewAggregationService()

	_, err := svc.TopN(context.Background(), nil, domain.TopNQuery{Metric: domain.MetricRevenue, N: 1})

	assert.True(t, errors.Is(err, domain.ErrNoSnapshot))
}

func TestAggregationService_TopN_GroupByPeriod(t *testing.T) {
	svc := NewAggregationService()

	res, err := svc.TopN(context.Background(), tenRowSnapshot(), domain.TopNQuery{
		Metric:        domain.MetricRevenue,
		GroupByPeriod: true,
		N:             1,
	})

	require.NoError(t, err)
	require.Len(t, res.Groups, 3)
	assert.Equal(t, "2023-03", res.Groups[0].Period.String())
	assert.Equal(t, "Webcam", res.Groups[0].Entries[0].Entity)
	assert.Equal(t, "2024-02", res.Groups[1].Period.String())
	assert.Equal(t, "Laptop X1", res.Groups[1].Entries[0].Entity)
	assert.InDelta(t, 15000, res.Groups[1].Entries[0].Value, 1e-9)
	assert.Equal(t, "2024-03", res.Groups[2].Period.String())
}

func TestAggregationService_TopN_AllPeriods(t *testing.T) {
	svc := NewAggregationService()

	res, err := svc.TopN(context.Background(), tenRowSnapshot(), domain.TopNQuery{Metric: domain.MetricRevenue, N: 1})

	require.NoError(t, err)
	assert.True(t, res.Groups[0].Period.IsZero())
	assert.Equal(t, domain.RankEntry{Rank: 1, Entity: "Laptop X1", Value: 24000}, res.Groups[0].Entries[0])
}

func TestAggregationService_Total(t *testing.T) {
	svc := NewAggregationService()

	res, err := svc.Total(context.Background(), tenRowSnapshot(), domain.MetricRevenue, period(2024, time.March))
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.InDelta(t, 14300, res.Groups[0].Entries[0].Value, 1e-9)

	res, err = svc.Total(context.Background(), tenRowSnapshot(), domain.MetricQuantity, period(2024, time.February))
	require.NoError(t, err)
	assert.InDelta(t, 25, res.Groups[0].Entries[0].Value, 1e-9)

	res, err = svc.Total(context.Background(), tenRowSnapshot(), domain.MetricRevenue, period(2020, time.May))
	require.NoError(t, err)
	assert.False(t, res.Found)
}

func TestAggregationService_ByTransaction(t *testing.T) {
	svc := NewAggregationService()

	res, err := svc.ByTransaction(context.Background(), tenRowSnapshot(), "T-202403-0003", domain.MetricRevenue, nil)
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, "T-202403-0003", res.Groups[0].Entries[0].Entity)
	assert.InDelta(t, 2400, res.Groups[0].Entries[0].Value, 1e-9)

	res, err = svc.ByTransaction(context.Background(), tenRowSnapshot(), "T-202403-0003", domain.MetricRevenue, period(2024, time.February))
	require.NoError(t, err)
	assert.False(t, res.Found)

	_, err = svc.ByTransaction(context.Background(), tenRowSnapshot(), " ", domain.MetricRevenue, nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestAggregationService_Periods(t *testing.T) {
	svc := NewAggregationService()
	snap := tenRowSnapshot()

	periods := svc.Periods(snap)
	require.Len(t, periods, 3)

	latest, ok := svc.LatestPeriod(snap)
	require.True(t, ok)
	assert.Equal(t, "2024-03", latest.String())

	year, ok := svc.LatestYearForMonth(snap, 3)
	require.True(t, ok)
	assert.Equal(t, 2024, year)

	_, ok = svc.LatestYearForMonth(snap, 12)
	assert.False(t, ok)

	_, ok = svc.LatestPeriod(nil)
	assert.False(t, ok)
}

func TestAggregationService_TitlePeriodFallback(t *testing.T) {
	svc := NewAggregationService()
	cols := []string{"Produto", "Receita"}
	ds := domain.Dataset{
		ID:      "jan",
		Title:   "Vendas Janeiro 2025",
		Columns: cols,
		Records: []domain.Record{
			{DatasetID: "jan", RowIndex: 0, Columns: cols, Values: map[string]any{"Produto": "Cabo", "Receita": "R$ 1.000,00"}},
			{DatasetID: "jan", RowIndex: 1, Columns: cols, Values: map[string]any{"Produto": "Cabo", "Receita": "250,50"}},
		},
	}
	snap := domain.NewSnapshot([]domain.Dataset{ds}, time.Now())

	res, err := svc.TopN(context.Background(), snap, domain.TopNQuery{
		Metric: domain.MetricRevenue,
		Period: period(2025, time.January),
		N:      3,
	})

	require.NoError(t, err)
	require.True(t, res.Found)
	assert.InDelta(t, 1250.5, res.Groups[0].Entries[0].Value, 1e-9)
}
