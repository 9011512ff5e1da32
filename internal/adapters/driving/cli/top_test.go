package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

func TestTopCmd_Flags(t *testing.T) {
	metric := topCmd.Flags().Lookup("metric")
	require.NotNil(t, metric)
	assert.Equal(t, "revenue", metric.DefValue)

	limit := topCmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "n", limit.Shorthand)

	assert.NotNil(t, topCmd.Flags().Lookup("period"))
	assert.NotNil(t, topCmd.Flags().Lookup("by-period"))

	by := topCmd.Flags().Lookup("by")
	require.NotNil(t, by)
	assert.Equal(t, "product", by.DefValue)
}

func TestTopCmd_PrintsRanking(t *testing.T) {
	ts, cleanup := setupTestServicesWith()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"top"})

	require.NoError(t, rootCmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "All periods (revenue by product)")
	assert.Contains(t, out, "Notebook")
	assert.Contains(t, out, "1250.5")
	assert.Equal(t, domain.MetricRevenue, ts.aggregation.lastQuery.Metric)
	assert.Equal(t, domain.EntityProduct, ts.aggregation.lastQuery.Entity)
	assert.Equal(t, 3, ts.aggregation.lastQuery.N, "configured default")
	assert.Nil(t, ts.aggregation.lastQuery.Period)
}

func TestTopCmd_QuantityWithPeriodAndLimit(t *testing.T) {
	ts, cleanup := setupTestServicesWith()
	defer cleanup()

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"top", "--metric", "Quantity", "--period", "2024-02", "-n", "5"})

	require.NoError(t, rootCmd.Execute())

	q := ts.aggregation.lastQuery
	assert.Equal(t, domain.MetricQuantity, q.Metric)
	assert.Equal(t, 5, q.N)
	require.NotNil(t, q.Period)
	assert.Equal(t, domain.Period{Year: 2024, Month: time.February}, *q.Period)
}

func TestTopCmd_LatestPeriod(t *testing.T) {
	ts, cleanup := setupTestServicesWith()
	defer cleanup()

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"top", "--period", "latest", "--by-period"})

	require.NoError(t, rootCmd.Execute())

	q := ts.aggregation.lastQuery
	require.NotNil(t, q.Period)
	assert.Equal(t, "2024-03", q.Period.String())
	assert.True(t, q.GroupByPeriod)
}

func TestTopCmd_ByCategory(t *testing.T) {
	ts, cleanup := setupTestServicesWith()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"top", "--by", "category", "--period", "2024-03"})

	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, domain.EntityCategory, ts.aggregation.lastQuery.Entity)
	assert.Contains(t, buf.String(), "All periods (revenue by category)")
	require.NotNil(t, ts.aggregation.lastQuery.Period)
	assert.Equal(t, "2024-03", ts.aggregation.lastQuery.Period.String())
}

func TestTopCmd_LatestWithoutDatedRows(t *testing.T) {
	ts, cleanup := setupTestServicesWith()
	defer cleanup()
	ts.aggregation.hasLatest = false

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"top", "--period", "latest"})

	require.NoError(t, rootCmd.Execute())

	assert.Zero(t, ts.aggregation.calls, "must not rank every period instead")
	assert.Contains(t, buf.String(), "No records for the requested period.")
}

func TestTopCmd_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown metric", args: []string{"top", "--metric", "profit"}, want: "unknown metric"},
		{name: "bad period", args: []string{"top", "--period", "March"}, want: "YYYY-MM"},
		{name: "negative limit", args: []string{"top", "-n", "-1"}, want: "limit must be positive"},
		{name: "unknown entity", args: []string{"top", "--by", "region"}, want: "product or category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := setupTestServices()
			defer cleanup()

			rootCmd.SetOut(new(bytes.Buffer))
			rootCmd.SetErr(new(bytes.Buffer))
			rootCmd.SetArgs(tt.args)

			err := rootCmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}
}

func TestTopCmd_NotFound(t *testing.T) {
	ts, cleanup := setupTestServicesWith()
	defer cleanup()
	ts.aggregation.result = &domain.AggregateResult{Kind: domain.AggregateTopN, Metric: domain.MetricRevenue}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"top", "--period", "1999-01"})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "No records for the requested period.")
}

func TestTopCmd_JSONByPeriod(t *testing.T) {
	ts, cleanup := setupTestServicesWith()
	defer cleanup()
	ts.aggregation.result = &domain.AggregateResult{
		Kind:   domain.AggregateTopN,
		Metric: domain.MetricQuantity,
		Found:  true,
		Groups: []domain.PeriodRanking{
			{Period: domain.Period{Year: 2024, Month: time.February}, Entries: []domain.RankEntry{{Rank: 1, Entity: "Mouse", Value: 10}}},
			{Period: domain.Period{Year: 2024, Month: time.March}},
		},
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"top", "--by-period", "--json"})

	require.NoError(t, rootCmd.Execute())

	var out topOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "quantity", out.Metric)
	require.Len(t, out.Rankings, 2)
	assert.Equal(t, "2024-02", out.Rankings[0].Period)
	assert.Equal(t, "Mouse", out.Rankings[0].Entries[0].Entity)
	assert.Empty(t, out.Rankings[1].Entries)
	assert.NotNil(t, out.Rankings[1].Entries, "empty rankings encode as []")
}

func TestTopCmd_SnapshotUnavailable(t *testing.T) {
	ts, cleanup := setupTestServicesWith()
	defer cleanup()
	ts.snapshots.reloadErr = domain.ErrDatasetUnavailable

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"top"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDatasetUnavailable)
}
