package services

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/quasar/internal/core/domain"
	"github.com/custodia-labs/quasar/internal/core/ports/driving"
	"github.com/custodia-labs/quasar/internal/logger"
)

// Ensure QueryClassifier implements the interface.
var _ driving.QueryClassifier = (*QueryClassifier)(nil)

// Keyword lists are matched against accent-folded, lower-cased questions.
var (
	rankingPhrases = []string{
		"top", "best", "highest", "most sold", "best selling", "best-selling", "ranking",
		"mais vendido", "mais vendidos", "melhor", "melhores", "maior", "maiores",
	}
	revenuePhrases = []string{
		"revenue", "sales value", "income", "receita", "faturamento", "fatura", "valor",
	}
	quantityPhrases = []string{
		"quantity", "units", "volume", "quantidade", "unidades", "qtd",
	}
	totalPhrases = []string{
		"total", "receita", "faturamento", "fatura", "revenue",
	}
	perPeriodPhrases = []string{
		"each month", "every month", "per month", "by month", "all months", "monthly",
		"cada mes", "por mes", "todos os meses", "mensal",
	}
	singularEntityPhrases = []string{
		"top product", "best product", "best selling product", "top seller",
		"produto mais vendido", "melhor produto",
		"top category", "best category", "categoria mais vendida", "melhor categoria",
	}
	categoryPhrases = []string{
		"category", "categories", "categoria", "product line", "segment",
	}
)

var (
	topNPattern        = regexp.MustCompile(`\btop\s*(\d{1,3})\b`)
	transactionPattern = regexp.MustCompile(`\b([A-Za-z]{1,4}-\d{6}-\d+)\b`)
)

// QueryClassifier maps a natural-language question to a tagged intent.
//
// Ranking words with an explicit metric produce an Aggregation intent; naming
// a category ranks categories instead of products.
// Ranking words without a metric produce an Ambiguous intent that ranks by
// both metrics and also runs semantic retrieval. Everything else is Semantic.
type QueryClassifier struct {
	agg                 *AggregationService
	defaultTopN         int
	latestPeriodDefault bool
}

// NewQueryClassifier creates a classifier. defaultTopN applies when a ranking
// question names no size; latestPeriodDefault resolves questions without a
// period to the latest period in the snapshot.
func NewQueryClassifier(agg *AggregationService, defaultTopN int, latestPeriodDefault bool) *QueryClassifier {
	if defaultTopN <= 0 {
		defaultTopN = 3
	}
	if agg == nil {
		agg = NewAggregationService()
	}
	return &QueryClassifier{
		agg:                 agg,
		defaultTopN:         defaultTopN,
		latestPeriodDefault: latestPeriodDefault,
	}
}

// Classify resolves keywords, periods and ranking sizes against snapshot.
func (c *QueryClassifier) Classify(query string, snapshot *domain.Snapshot) domain.Intent {
	folded := foldText(query)
	mentioned := c.resolvePeriod(folded, snapshot)
	intent := domain.Intent{Kind: domain.IntentSemantic, Period: mentioned}

	grouped := containsAny(folded, perPeriodPhrases)
	ranking := containsAny(folded, rankingPhrases) || topNPattern.MatchString(folded)
	revenue := containsAny(folded, revenuePhrases)
	quantity := containsAny(folded, quantityPhrases)

	switch {
	case ranking:
		q := &domain.AggregationQuery{
			Kind:          domain.AggregateTopN,
			N:             c.rankSize(folded),
			GroupByPeriod: grouped,
		}
		if containsAny(folded, categoryPhrases) {
			q.Entity = domain.EntityCategory
		}
		switch {
		case revenue && !quantity:
			q.Metrics = []domain.Metric{domain.MetricRevenue}
			intent.Kind = domain.IntentAggregation
		case quantity && !revenue:
			q.Metrics = []domain.Metric{domain.MetricQuantity}
			intent.Kind = domain.IntentAggregation
		default:
			q.Metrics = domain.AllMetrics()
			intent.Kind = domain.IntentAmbiguous
		}
		if !grouped {
			q.Period = c.defaultPeriod(mentioned, snapshot)
		}
		intent.Aggregation = q

	case transactionPattern.MatchString(query) && (revenue || containsAny(folded, totalPhrases)):
		intent.Kind = domain.IntentAggregation
		intent.Aggregation = &domain.AggregationQuery{
			Kind:          domain.AggregateTransaction,
			Metrics:       []domain.Metric{domain.MetricRevenue},
			Period:        mentioned,
			TransactionID: transactionPattern.FindString(query),
		}

	case containsAny(folded, totalPhrases):
		metric := domain.MetricRevenue
		if quantity && !revenue {
			metric = domain.MetricQuantity
		}
		intent.Kind = domain.IntentAggregation
		intent.Aggregation = &domain.AggregationQuery{
			Kind:    domain.AggregateTotal,
			Metrics: []domain.Metric{metric},
			Period:  c.defaultPeriod(mentioned, snapshot),
		}
	}

	logger.Debug("Classified %q as %s (period=%v)", query, intent.Kind, periodString(intent.Period))
	return intent
}

// resolvePeriod extracts a period from the question. A month without a year
// resolves to the latest year holding that month; a bare year is ignored.
func (c *QueryClassifier) resolvePeriod(folded string, snapshot *domain.Snapshot) *domain.Period {
	month, year := extractMonthYear(folded)
	if month == 0 {
		return nil
	}
	if year == 0 {
		y, ok := c.agg.LatestYearForMonth(snapshot, int(month))
		if !ok {
			return nil
		}
		year = y
	}
	return &domain.Period{Year: year, Month: month}
}

func (c *QueryClassifier) defaultPeriod(mentioned *domain.Period, snapshot *domain.Snapshot) *domain.Period {
	if mentioned != nil || !c.latestPeriodDefault {
		return mentioned
	}
	if p, ok := c.agg.LatestPeriod(snapshot); ok {
		return &p
	}
	return nil
}

func (c *QueryClassifier) rankSize(folded string) int {
	if m := topNPattern.FindStringSubmatch(folded); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}
	for _, p := range singularEntityPhrases {
		if containsWord(folded, p, false) {
			return 1
		}
	}
	return c.defaultTopN
}

// containsAny reports whether s contains any phrase on word boundaries.
func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if containsPhrase(s, p) {
			return true
		}
	}
	return false
}

func containsPhrase(s, phrase string) bool {
	return containsWord(s, phrase, true)
}

// containsWord matches phrase on word boundaries, optionally followed by a plural "s".
func containsWord(s, phrase string, plural bool) bool {
	for start := 0; start < len(s); {
		i := strings.Index(s[start:], phrase)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(phrase)
		before := i == 0 || !isWordByte(s[i-1])
		after := end == len(s) || !isWordByte(s[end]) ||
			(plural && s[end] == 's' && (end+1 == len(s) || !isWordByte(s[end+1])))
		if before && after {
			return true
		}
		start = i + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

func periodString(p *domain.Period) string {
	if p == nil {
		return "none"
	}
	return p.String()
}
