package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

type stubContextService struct {
	payload *domain.ContextPayload
	err     error
}

func (s *stubContextService) BuildContext(context.Context, string, int) (*domain.ContextPayload, error) {
	return s.payload, s.err
}

type stubIndexService struct {
	result *domain.ReindexResult
	status *domain.IndexStatus
	err    error
	opts   []domain.ReindexOptions
}

func (s *stubIndexService) Reindex(ctx context.Context, snap *domain.Snapshot) (*domain.ReindexResult, error) {
	return s.ReindexWithOptions(ctx, snap, domain.ReindexOptions{})
}

func (s *stubIndexService) ReindexWithOptions(
	_ context.Context,
	_ *domain.Snapshot,
	opts domain.ReindexOptions,
) (*domain.ReindexResult, error) {
	s.opts = append(s.opts, opts)
	return s.result, s.err
}

func (s *stubIndexService) Status(context.Context, *domain.Snapshot) (*domain.IndexStatus, error) {
	return s.status, s.err
}

func TestInstrumentContext(t *testing.T) {
	m := New("")
	stub := &stubContextService{payload: &domain.ContextPayload{
		Payload:         "top_n metric=revenue",
		Status:          domain.ContextStatusOK,
		SegmentsDropped: 2,
		Intent:          domain.Intent{Kind: domain.IntentAggregation},
	}}
	svc := m.InstrumentContext(stub)

	payload, err := svc.BuildContext(context.Background(), "q", 100)
	require.NoError(t, err)
	assert.Same(t, stub.payload, payload)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.contextBuilds.WithLabelValues("ok", "aggregation")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.segmentsDropped))

	stub.payload, stub.err = nil, errors.New("boom")
	_, err = svc.BuildContext(context.Background(), "q", 100)
	assert.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.contextBuilds.WithLabelValues("error", "unknown")))
}

func TestInstrumentIndex_Outcomes(t *testing.T) {
	m := New("test")
	stub := &stubIndexService{result: &domain.ReindexResult{DocumentsIndexed: 10, RecordsSkipped: 1}}
	svc := m.InstrumentIndex(stub)
	ctx := context.Background()

	_, err := svc.Reindex(ctx, nil)
	require.NoError(t, err)

	stub.result = &domain.ReindexResult{Unchanged: true}
	_, err = svc.ReindexWithOptions(ctx, nil, domain.ReindexOptions{Force: true})
	require.NoError(t, err)

	stub.result, stub.err = nil, domain.ErrReindexInProgress
	_, _ = svc.Reindex(ctx, nil)
	stub.err = context.Canceled
	_, _ = svc.Reindex(ctx, nil)
	stub.err = domain.ErrEmbeddingUnavailable
	_, _ = svc.Reindex(ctx, nil)

	for _, o := range []string{OutcomeIndexed, OutcomeUnchanged, OutcomeRejected, OutcomeCancelled, OutcomeFailed} {
		assert.Equal(t, 1.0, testutil.ToFloat64(m.reindexRuns.WithLabelValues(o)), o)
	}
	assert.Equal(t, 10.0, testutil.ToFloat64(m.documentsIndexed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recordsSkipped))
	assert.Equal(t, []domain.ReindexOptions{{}, {Force: true}, {}, {}, {}}, stub.opts)
}

func TestInstrumentIndex_Status(t *testing.T) {
	m := New("")
	stub := &stubIndexService{status: &domain.IndexStatus{Documents: 42, Stale: true}}
	svc := m.InstrumentIndex(stub)

	st, err := svc.Status(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 42, st.Documents)
	assert.Equal(t, 42.0, testutil.ToFloat64(m.indexDocuments))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.indexStale))

	stub.status.Stale = false
	_, _ = svc.Status(context.Background(), nil)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.indexStale))
}

func TestHandler(t *testing.T) {
	m := New("")
	svc := m.InstrumentContext(&stubContextService{payload: &domain.ContextPayload{
		Status: domain.ContextStatusEmpty,
		Intent: domain.Intent{Kind: domain.IntentSemantic},
	}})
	_, _ = svc.BuildContext(context.Background(), "q", 10)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `quasar_context_builds_total{intent="semantic",status="empty"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
