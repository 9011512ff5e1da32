package domain

// IntentKind tags the variant produced by the query classifier.
type IntentKind string

// Intent kinds.
const (
	// IntentAggregation is a question answered by deterministic computation.
	IntentAggregation IntentKind = "aggregation"

	// IntentSemantic is a free-form question answered by similarity search.
	IntentSemantic IntentKind = "semantic"

	// IntentAmbiguous is a question where both paths are attempted.
	IntentAmbiguous IntentKind = "ambiguous"
)

// String returns the string representation.
func (k IntentKind) String() string {
	return string(k)
}

// AggregationQuery is the structured request extracted from a question.
type AggregationQuery struct {
	// Kind selects the aggregation.
	Kind AggregateKind

	// Metrics lists the metrics to compute. Ambiguous rankings carry both.
	Metrics []Metric

	// Period filters to one month. Nil means the resolver found none.
	Period *Period

	// GroupByPeriod asks for one ranking per period.
	GroupByPeriod bool

	// N is the ranking size for top_n queries.
	N int

	// Entity is the ranked dimension for top_n queries. Empty ranks products.
	Entity Entity

	// TransactionID is set for transaction queries.
	TransactionID string
}

// Intent is the classified form of a user question.
type Intent struct {
	Kind IntentKind

	// Aggregation is set for Aggregation and Ambiguous intents.
	Aggregation *AggregationQuery

	// Period is any period mentioned in the question, used to filter
	// semantic retrieval. It may be set for Semantic intents as well.
	Period *Period
}

// HasAggregation reports whether the deterministic path should run.
func (i Intent) HasAggregation() bool {
	return i.Aggregation != nil && (i.Kind == IntentAggregation || i.Kind == IntentAmbiguous)
}
