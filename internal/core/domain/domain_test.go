package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDocumentID_RoundTrip tests that document ids trace back to one row
func TestDocumentID_RoundTrip(t *testing.T) {
	id := DocumentID("sheet-1::Vendas", 42)
	assert.Equal(t, "sheet-1::Vendas::000042", id)

	datasetID, row, err := ParseDocumentID(id)
	require.NoError(t, err)
	assert.Equal(t, "sheet-1::Vendas", datasetID)
	assert.Equal(t, 42, row)
}

// TestDocumentID_OrdersLexically tests that zero padding keeps row order
func TestDocumentID_OrdersLexically(t *testing.T) {
	assert.Less(t, DocumentID("ds", 9), DocumentID("ds", 10))
}

// TestParseDocumentID_Malformed tests rejection of malformed ids
func TestParseDocumentID_Malformed(t *testing.T) {
	for _, id := range []string{"", "no-separator", "ds::abc"} {
		_, _, err := ParseDocumentID(id)
		assert.True(t, errors.Is(err, ErrInvalidArgument), id)
	}
}

// TestScoredDocument_Distance tests distance derivation
func TestScoredDocument_Distance(t *testing.T) {
	sd := ScoredDocument{Score: 0.75}
	assert.InDelta(t, 0.25, sd.Distance(), 1e-9)
}

// TestNewSnapshot_SortsDatasets tests dataset ordering
func TestNewSnapshot_SortsDatasets(t *testing.T) {
	input := []Dataset{{ID: "b"}, {ID: "a"}, {ID: "c"}}
	snap := NewSnapshot(input, time.Now())

	require.Len(t, snap.Datasets, 3)
	assert.Equal(t, "a", snap.Datasets[0].ID)
	assert.Equal(t, "c", snap.Datasets[2].ID)
	assert.Equal(t, "b", input[0].ID, "caller slice must not be reordered")
}

// TestSnapshot_RecordCount tests row totals and nil safety
func TestSnapshot_RecordCount(t *testing.T) {
	var nilSnap *Snapshot
	assert.Equal(t, 0, nilSnap.RecordCount())

	snap := NewSnapshot([]Dataset{
		{ID: "a", Records: make([]Record, 3)},
		{ID: "b", Records: make([]Record, 2)},
	}, time.Now())
	assert.Equal(t, 5, snap.RecordCount())

	ds, ok := snap.Dataset("b")
	require.True(t, ok)
	assert.Equal(t, 2, ds.RowCount())

	_, ok = snap.Dataset("missing")
	assert.False(t, ok)
}

// TestPeriod tests rendering, parsing and ordering
func TestPeriod(t *testing.T) {
	p := Period{Year: 2024, Month: time.March}
	assert.Equal(t, "2024-03", p.String())
	assert.False(t, p.IsZero())
	assert.True(t, Period{}.IsZero())

	parsed, err := ParsePeriod("2024-03")
	require.NoError(t, err)
	assert.Equal(t, p, parsed)

	_, err = ParsePeriod("March")
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	assert.True(t, Period{Year: 2023, Month: time.December}.Before(p))
	assert.True(t, Period{Year: 2024, Month: time.February}.Before(p))
	assert.False(t, p.Before(p))
}

// TestMetric_IsValid tests metric validation
func TestMetric_IsValid(t *testing.T) {
	assert.True(t, MetricRevenue.IsValid())
	assert.True(t, MetricQuantity.IsValid())
	assert.False(t, Metric("profit").IsValid())
	assert.Len(t, AllMetrics(), 2)
}

// TestEntity tests ranking dimension parsing and the product default
func TestEntity(t *testing.T) {
	assert.True(t, Entity("").IsValid())
	assert.False(t, Entity("region").IsValid())
	assert.Equal(t, "product", Entity("").String())

	e, err := ParseEntity(" Categories ")
	require.NoError(t, err)
	assert.Equal(t, EntityCategory, e)

	e, err = ParseEntity("")
	require.NoError(t, err)
	assert.Equal(t, EntityProduct, e)

	_, err = ParseEntity("region")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

// TestIntent_HasAggregation tests the deterministic path gate
func TestIntent_HasAggregation(t *testing.T) {
	q := &AggregationQuery{Kind: AggregateTopN}
	assert.True(t, Intent{Kind: IntentAggregation, Aggregation: q}.HasAggregation())
	assert.True(t, Intent{Kind: IntentAmbiguous, Aggregation: q}.HasAggregation())
	assert.False(t, Intent{Kind: IntentSemantic, Aggregation: q}.HasAggregation())
	assert.False(t, Intent{Kind: IntentAggregation}.HasAggregation())
}

// TestFingerprint_Short tests display truncation
func TestFingerprint_Short(t *testing.T) {
	assert.Equal(t, "abc", Fingerprint("abc").Short())
	assert.Equal(t, "0123456789ab", Fingerprint("0123456789abcdef").Short())
	assert.True(t, Fingerprint("").IsZero())
}

// TestDefaultAppSettings tests default values
func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()
	assert.Equal(t, EmbeddingProviderHashing, s.Embedding.Provider)
	assert.True(t, s.Embedding.IsConfigured())
	assert.Equal(t, IndexBackendSQLite, s.Index.Backend)
	assert.Equal(t, 3, s.Context.DefaultTopN)
	assert.Positive(t, s.Context.MaxChars)
	assert.Positive(t, s.Indexing.BatchSize)
}

// TestEmbeddingSettings_IsConfigured tests API key requirements
func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	assert.False(t, EmbeddingSettings{Provider: EmbeddingProviderOpenAI}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: EmbeddingProviderOpenAI, APIKey: "sk"}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: EmbeddingProviderOllama}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: "bogus"}.IsConfigured())
}

// TestProviderValidation tests enum validation helpers
func TestProviderValidation(t *testing.T) {
	assert.True(t, DatasetProviderCSV.IsValid())
	assert.True(t, DatasetProviderSheets.IsValid())
	assert.False(t, DatasetProviderType("s3").IsValid())
	assert.True(t, IndexBackendPgvector.IsValid())
	assert.False(t, IndexBackend("faiss").IsValid())
	assert.Equal(t, "Hashing (offline)", EmbeddingProviderHashing.Description())
	assert.Equal(t, unknownDescription, EmbeddingProvider("x").Description())
}
