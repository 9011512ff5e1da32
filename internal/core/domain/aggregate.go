package domain

import (
	"fmt"
	"strings"
	"time"
)

// Metric is a numeric column aggregated by the aggregation engine.
type Metric string

// Supported metrics.
const (
	// MetricQuantity sums units sold.
	MetricQuantity Metric = "quantity"

	// MetricRevenue sums monetary value.
	MetricRevenue Metric = "revenue"
)

// IsValid returns true if the metric is recognised.
func (m Metric) IsValid() bool {
	switch m {
	case MetricQuantity, MetricRevenue:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m Metric) String() string {
	return string(m)
}

// AllMetrics returns every supported metric in a stable order.
func AllMetrics() []Metric {
	return []Metric{MetricRevenue, MetricQuantity}
}

// Entity is the dimension a ranking groups rows by.
type Entity string

// Supported ranking dimensions. The zero value ranks products.
const (
	EntityProduct  Entity = "product"
	EntityCategory Entity = "category"
)

// IsValid returns true if the entity is recognised. Empty counts as product.
func (e Entity) IsValid() bool {
	switch e {
	case "", EntityProduct, EntityCategory:
		return true
	default:
		return false
	}
}

// OrDefault returns EntityProduct for the zero value.
func (e Entity) OrDefault() Entity {
	if e == "" {
		return EntityProduct
	}
	return e
}

// String returns the string representation.
func (e Entity) String() string {
	return string(e.OrDefault())
}

// ParseEntity maps user input (singular or plural, any case) to an Entity.
func ParseEntity(s string) (Entity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "product", "products":
		return EntityProduct, nil
	case "category", "categories":
		return EntityCategory, nil
	default:
		return "", fmt.Errorf("%w: entity %q must be product or category", ErrInvalidArgument, s)
	}
}

// Period is a calendar month.
type Period struct {
	Year  int
	Month time.Month
}

// String renders the period as "YYYY-MM".
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Before reports whether p is strictly earlier than other.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod parses a "YYYY-MM" string.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: period %q must be YYYY-MM", ErrInvalidArgument, s)
	}
	return PeriodOf(t), nil
}

// AggregateKind identifies which aggregation produced a result.
type AggregateKind string

// Aggregation kinds.
const (
	// AggregateTopN ranks entities by a metric.
	AggregateTopN AggregateKind = "top_n"

	// AggregateTotal sums a metric over a period.
	AggregateTotal AggregateKind = "total"

	// AggregateTransaction sums a metric for one transaction id.
	AggregateTransaction AggregateKind = "transaction"
)

// RankEntry is one ranked entity.
type RankEntry struct {
	// Rank is 1-based.
	Rank int

	// Entity is the grouped dimension value (a product, a category, a transaction id).
	Entity string

	// Value is the summed metric.
	Value float64
}

// PeriodRanking is the ranking for one period.
// Period is zero when the aggregation covered every period at once.
type PeriodRanking struct {
	Period  Period
	Entries []RankEntry
}

// AggregateResult is the output of a deterministic aggregation.
// Found=false means the period filter matched no rows, which is distinct from
// a found result whose ranking happens to be empty.
type AggregateResult struct {
	Kind   AggregateKind
	Metric Metric

	// Entity is the ranked dimension. Set for top_n results only.
	Entity Entity

	Found  bool
	Groups []PeriodRanking
}

// TopNQuery requests the N highest entities by metric.
type TopNQuery struct {
	// Metric is the value summed per entity.
	Metric Metric

	// Entity is the grouping dimension. Empty ranks products.
	Entity Entity

	// Period filters rows to one month. Nil means every period.
	Period *Period

	// GroupByPeriod produces one ranking per period instead of a single ranking.
	GroupByPeriod bool

	// N is the maximum number of entries per ranking. Must be positive.
	N int
}
