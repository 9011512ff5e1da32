package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/quasar/internal/core/domain"
	"github.com/custodia-labs/quasar/internal/core/ports/driving"
	"github.com/custodia-labs/quasar/internal/logger"
)

// Ensure AggregationService implements the interface.
var _ driving.AggregationService = (*AggregationService)(nil)

// AggregationService computes exact rankings and totals over a snapshot.
// It is stateless; every call reads only the snapshot it is given.
type AggregationService struct{}

// NewAggregationService creates an aggregation service.
func NewAggregationService() *AggregationService {
	return &AggregationService{}
}

// row is a record projected onto the columns aggregation needs.
type row struct {
	period      domain.Period
	hasPeriod   bool
	product     string
	category    string
	transaction string
	quantity    float64
	revenue     float64
}

func (r row) value(m domain.Metric) float64 {
	if m == domain.MetricQuantity {
		return r.quantity
	}
	return r.revenue
}

// projectRows flattens every dataset of the snapshot into aggregation rows.
func projectRows(snapshot *domain.Snapshot) []row {
	if snapshot == nil {
		return nil
	}
	rows := make([]row, 0, snapshot.RecordCount())
	for i := range snapshot.Datasets {
		ds := &snapshot.Datasets[i]
		roles := resolveColumnRoles(ds.Columns)
		fallback := periodFromTitle(ds.Title)
		for _, rec := range ds.Records {
			r := row{}
			r.period, r.hasPeriod = roles.period(rec, fallback)
			r.product, _ = roles.text(rec, roleProduct)
			r.category, _ = roles.text(rec, roleCategory)
			r.transaction, _ = roles.text(rec, roleTransaction)
			if r.product == "" {
				// Sheets without a product column are keyed by transaction id.
				r.product = r.transaction
			}
			r.quantity, _ = roles.number(rec, roleQuantity)
			r.revenue, _ = roles.number(rec, roleRevenue)
			rows = append(rows, r)
		}
	}
	return rows
}

func filterPeriod(rows []row, period *domain.Period) []row {
	if period == nil {
		return rows
	}
	out := make([]row, 0, len(rows))
	for _, r := range rows {
		if r.hasPeriod && r.period == *period {
			out = append(out, r)
		}
	}
	return out
}

// TopN ranks products, or categories when q.Entity asks for them, by summed metric.
// Rows without a value for the entity are left out of the ranking.
func (s *AggregationService) TopN(
	ctx context.Context, snapshot *domain.Snapshot, q domain.TopNQuery,
) (*domain.AggregateResult, error) {
	if q.N <= 0 {
		return nil, fmt.Errorf("top n: n must be positive, got %d: %w", q.N, domain.ErrInvalidArgument)
	}
	if !q.Metric.IsValid() {
		return nil, fmt.Errorf("top n: metric %q: %w", q.Metric, domain.ErrInvalidArgument)
	}
	if !q.Entity.IsValid() {
		return nil, fmt.Errorf("top n: entity %q: %w", q.Entity, domain.ErrInvalidArgument)
	}
	if snapshot == nil {
		return nil, domain.ErrNoSnapshot
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows := filterPeriod(projectRows(snapshot), q.Period)
	entity := q.Entity.OrDefault()
	key := entityKey(entity)
	result := &domain.AggregateResult{Kind: domain.AggregateTopN, Metric: q.Metric, Entity: entity}
	if len(rows) == 0 {
		logger.Debug("top n: no rows for period %v", q.Period)
		return result, nil
	}
	result.Found = true

	if !q.GroupByPeriod {
		var period domain.Period
		if q.Period != nil {
			period = *q.Period
		}
		result.Groups = []domain.PeriodRanking{{
			Period:  period,
			Entries: rank(sumBy(rows, q.Metric, key), q.N),
		}}
		return result, nil
	}

	byPeriod := make(map[domain.Period][]row)
	for _, r := range rows {
		if r.hasPeriod {
			byPeriod[r.period] = append(byPeriod[r.period], r)
		}
	}
	for _, p := range sortedPeriods(byPeriod) {
		result.Groups = append(result.Groups, domain.PeriodRanking{
			Period:  p,
			Entries: rank(sumBy(byPeriod[p], q.Metric, key), q.N),
		})
	}
	if len(result.Groups) == 0 {
		result.Found = false
	}
	return result, nil
}

// Total sums metric over one period, or every period when period is nil.
func (s *AggregationService) Total(
	ctx context.Context, snapshot *domain.Snapshot, metric domain.Metric, period *domain.Period,
) (*domain.AggregateResult, error) {
	if !metric.IsValid() {
		return nil, fmt.Errorf("total: metric %q: %w", metric, domain.ErrInvalidArgument)
	}
	if snapshot == nil {
		return nil, domain.ErrNoSnapshot
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows := filterPeriod(projectRows(snapshot), period)
	result := &domain.AggregateResult{Kind: domain.AggregateTotal, Metric: metric}
	if len(rows) == 0 {
		return result, nil
	}

	total := 0.0
	for _, r := range rows {
		total += r.value(metric)
	}
	var p domain.Period
	if period != nil {
		p = *period
	}
	result.Found = true
	result.Groups = []domain.PeriodRanking{{
		Period:  p,
		Entries: []domain.RankEntry{{Rank: 1, Entity: "total", Value: total}},
	}}
	return result, nil
}

// ByTransaction sums metric over rows whose transaction id (or product key,
// for sheets keyed by transaction) equals transactionID.
func (s *AggregationService) ByTransaction(
	ctx context.Context, snapshot *domain.Snapshot, transactionID string, metric domain.Metric, period *domain.Period,
) (*domain.AggregateResult, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, fmt.Errorf("by transaction: empty id: %w", domain.ErrInvalidArgument)
	}
	if !metric.IsValid() {
		return nil, fmt.Errorf("by transaction: metric %q: %w", metric, domain.ErrInvalidArgument)
	}
	if snapshot == nil {
		return nil, domain.ErrNoSnapshot
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &domain.AggregateResult{Kind: domain.AggregateTransaction, Metric: metric}
	found := false
	total := 0.0
	for _, r := range filterPeriod(projectRows(snapshot), period) {
		if r.transaction == transactionID || r.product == transactionID {
			found = true
			total += r.value(metric)
		}
	}
	if !found {
		return result, nil
	}
	var p domain.Period
	if period != nil {
		p = *period
	}
	result.Found = true
	result.Groups = []domain.PeriodRanking{{
		Period:  p,
		Entries: []domain.RankEntry{{Rank: 1, Entity: transactionID, Value: total}},
	}}
	return result, nil
}

// Periods lists every period present in snapshot, ascending.
func (s *AggregationService) Periods(snapshot *domain.Snapshot) []domain.Period {
	set := make(map[domain.Period][]row)
	for _, r := range projectRows(snapshot) {
		if r.hasPeriod {
			set[r.period] = nil
		}
	}
	return sortedPeriods(set)
}

// LatestPeriod returns the most recent period present in snapshot.
func (s *AggregationService) LatestPeriod(snapshot *domain.Snapshot) (domain.Period, bool) {
	periods := s.Periods(snapshot)
	if len(periods) == 0 {
		return domain.Period{}, false
	}
	return periods[len(periods)-1], true
}

// LatestYearForMonth returns the latest year holding rows for month.
func (s *AggregationService) LatestYearForMonth(snapshot *domain.Snapshot, month int) (int, bool) {
	year := 0
	for _, p := range s.Periods(snapshot) {
		if p.Month == time.Month(month) && p.Year > year {
			year = p.Year
		}
	}
	return year, year != 0
}

func entityKey(e domain.Entity) func(row) string {
	if e == domain.EntityCategory {
		return func(r row) string { return r.category }
	}
	return func(r row) string { return r.product }
}

func sumBy(rows []row, metric domain.Metric, key func(row) string) map[string]float64 {
	sums := make(map[string]float64)
	for _, r := range rows {
		k := key(r)
		if k == "" {
			continue
		}
		sums[k] += r.value(metric)
	}
	return sums
}

// rank orders sums descending by value, ties by entity ascending, and keeps n.
func rank(sums map[string]float64, n int) []domain.RankEntry {
	entries := make([]domain.RankEntry, 0, len(sums))
	for entity, v := range sums {
		entries = append(entries, domain.RankEntry{Entity: entity, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].Entity < entries[j].Entity
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func sortedPeriods[V any](m map[domain.Period]V) []domain.Period {
	out := make([]domain.Period, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Before(out[j])
	})
	return out
}
