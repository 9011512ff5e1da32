// Package metrics instruments the context and index services with Prometheus
// collectors. Decorators wrap the driving ports so callers are unchanged.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/quasar/internal/core/domain"
	"github.com/custodia-labs/quasar/internal/core/ports/driving"
)

// Reindex outcomes used as label values.
const (
	OutcomeIndexed   = "indexed"
	OutcomeUnchanged = "unchanged"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
	OutcomeRejected  = "rejected"
)

// Metrics owns a registry and the collectors recorded by the decorators.
type Metrics struct {
	registry *prometheus.Registry

	contextBuilds   *prometheus.CounterVec
	contextDuration *prometheus.HistogramVec
	payloadChars    prometheus.Histogram
	segmentsDropped prometheus.Counter

	reindexRuns      *prometheus.CounterVec
	reindexDuration  prometheus.Histogram
	documentsIndexed prometheus.Counter
	recordsSkipped   prometheus.Counter
	indexDocuments   prometheus.Gauge
	indexStale       prometheus.Gauge
}

// New creates the collectors under namespace (default "quasar") and registers
// them with a fresh registry alongside the Go and process collectors.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "quasar"
	}

	m := &Metrics{registry: prometheus.NewRegistry()}

	m.contextBuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_builds_total",
			Help:      "Context builds by result status and intent.",
		},
		[]string{"status", "intent"},
	)
	m.contextDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "context_build_duration_seconds",
			Help:      "Context build latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"intent"},
	)
	m.payloadChars = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "context_payload_chars",
			Help:      "Size of returned payloads in characters.",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 10),
		},
	)
	m.segmentsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_segments_dropped_total",
			Help:      "Segments dropped to fit the character budget.",
		},
	)
	m.reindexRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reindex_runs_total",
			Help:      "Reindex runs by outcome.",
		},
		[]string{"outcome"},
	)
	m.reindexDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reindex_duration_seconds",
			Help:      "Reindex run latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
	m.documentsIndexed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_indexed_total",
			Help:      "Documents written to the index.",
		},
	)
	m.recordsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Records skipped because they had no usable columns.",
		},
	)
	m.indexDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_documents",
			Help:      "Documents in the index at the last status check.",
		},
	)
	m.indexStale = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_stale",
			Help:      "1 when the index fingerprint differs from the live snapshot.",
		},
	)

	m.registry.MustRegister(
		m.contextBuilds,
		m.contextDuration,
		m.payloadChars,
		m.segmentsDropped,
		m.reindexRuns,
		m.reindexDuration,
		m.documentsIndexed,
		m.recordsSkipped,
		m.indexDocuments,
		m.indexStale,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// InstrumentContext wraps svc so every build is counted and timed.
func (m *Metrics) InstrumentContext(svc driving.ContextService) driving.ContextService {
	return &contextService{next: svc, m: m}
}

// InstrumentIndex wraps svc so every reindex run is counted and timed.
func (m *Metrics) InstrumentIndex(svc driving.IndexService) driving.IndexService {
	return &indexService{next: svc, m: m}
}

type contextService struct {
	next driving.ContextService
	m    *Metrics
}

func (s *contextService) BuildContext(ctx context.Context, query string, maxChars int) (*domain.ContextPayload, error) {
	start := time.Now()
	payload, err := s.next.BuildContext(ctx, query, maxChars)

	intent := "unknown"
	status := "error"
	if payload != nil {
		intent = payload.Intent.Kind.String()
		status = payload.Status.String()
		s.m.payloadChars.Observe(float64(len([]rune(payload.Payload))))
		s.m.segmentsDropped.Add(float64(payload.SegmentsDropped))
	}
	if err != nil {
		status = "error"
	}
	s.m.contextBuilds.WithLabelValues(status, intent).Inc()
	s.m.contextDuration.WithLabelValues(intent).Observe(time.Since(start).Seconds())
	return payload, err
}

type indexService struct {
	next driving.IndexService
	m    *Metrics
}

func (s *indexService) Reindex(ctx context.Context, snapshot *domain.Snapshot) (*domain.ReindexResult, error) {
	return s.ReindexWithOptions(ctx, snapshot, domain.ReindexOptions{})
}

func (s *indexService) ReindexWithOptions(
	ctx context.Context,
	snapshot *domain.Snapshot,
	opts domain.ReindexOptions,
) (*domain.ReindexResult, error) {
	start := time.Now()
	res, err := s.next.ReindexWithOptions(ctx, snapshot, opts)
	s.m.reindexDuration.Observe(time.Since(start).Seconds())
	s.m.reindexRuns.WithLabelValues(outcome(res, err)).Inc()
	if err == nil && res != nil {
		s.m.documentsIndexed.Add(float64(res.DocumentsIndexed))
		s.m.recordsSkipped.Add(float64(res.RecordsSkipped))
	}
	return res, err
}

func (s *indexService) Status(ctx context.Context, snapshot *domain.Snapshot) (*domain.IndexStatus, error) {
	st, err := s.next.Status(ctx, snapshot)
	if err == nil && st != nil {
		s.m.indexDocuments.Set(float64(st.Documents))
		if st.Stale {
			s.m.indexStale.Set(1)
		} else {
			s.m.indexStale.Set(0)
		}
	}
	return st, err
}

func outcome(res *domain.ReindexResult, err error) string {
	switch {
	case errors.Is(err, domain.ErrReindexInProgress):
		return OutcomeRejected
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	case err != nil:
		return OutcomeFailed
	case res != nil && res.Unchanged:
		return OutcomeUnchanged
	default:
		return OutcomeIndexed
	}
}
