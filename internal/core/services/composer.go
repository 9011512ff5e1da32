package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/quasar/internal/core/domain"
	"github.com/custodia-labs/quasar/internal/core/ports/driven"
	"github.com/custodia-labs/quasar/internal/core/ports/driving"
	"github.com/custodia-labs/quasar/internal/logger"
)

// Ensure ContextService implements the interface.
var _ driving.ContextService = (*ContextService)(nil)

// segmentSeparator joins serialised segments in the payload.
const segmentSeparator = "\n"

// defaultTopK is the semantic retrieval size when none is configured.
const defaultTopK = 5

// ContextService builds bounded context payloads from deterministic
// aggregates and semantic retrieval.
type ContextService struct {
	snapshots  driving.SnapshotSource
	classifier driving.QueryClassifier
	agg        driving.AggregationService
	index      driven.IndexStore
	embedder   driven.EmbeddingService
	detector   driving.ChangeDetector
	topK       int
}

// NewContextService creates a context service.
// The index and embedder parameters are optional (can be nil); without them
// payloads are deterministic-only and semantic attempts report degradation.
func NewContextService(
	snapshots driving.SnapshotSource,
	classifier driving.QueryClassifier,
	agg driving.AggregationService,
	index driven.IndexStore,
	embedder driven.EmbeddingService,
) *ContextService {
	return &ContextService{
		snapshots:  snapshots,
		classifier: classifier,
		agg:        agg,
		index:      index,
		embedder:   embedder,
		topK:       defaultTopK,
	}
}

// SetChangeDetector enables staleness reporting.
func (s *ContextService) SetChangeDetector(detector driving.ChangeDetector) {
	s.detector = detector
}

// SetTopK sets the number of documents retrieved by the semantic path.
func (s *ContextService) SetTopK(k int) {
	if k > 0 {
		s.topK = k
	}
}

// BuildContext classifies query, runs the applicable paths and merges their
// segments into a payload of at most maxChars characters. When no segment
// fits the payload is NoContextSentinel, whatever maxChars is.
func (s *ContextService) BuildContext(ctx context.Context, query string, maxChars int) (*domain.ContextPayload, error) {
	logger.Section("Context Build")
	logger.Debug("Query: %q, max chars: %d", query, maxChars)

	if maxChars <= 0 {
		return nil, fmt.Errorf("build context: max chars must be positive, got %d: %w", maxChars, domain.ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snapshot := s.snapshots.Current()
	if snapshot == nil {
		return nil, domain.ErrNoSnapshot
	}

	intent := s.classifier.Classify(query, snapshot)
	payload := &domain.ContextPayload{
		Status: domain.ContextStatusOK,
		Intent: intent,
		Stale:  s.isStale(ctx, snapshot),
	}

	deterministic, noData, err := s.deterministicSegments(ctx, snapshot, intent)
	if err != nil {
		return nil, err
	}
	logger.Debug("Deterministic segments: %d (no data: %t)", len(deterministic), noData)

	var semantic []string
	if !noData && joinedLen(deterministic) < maxChars {
		semantic, err = s.semanticSegments(ctx, query, intent)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("Semantic retrieval degraded: %v", err)
			payload.Status = domain.ContextStatusSemanticDegraded
		}
		logger.Debug("Semantic segments: %d", len(semantic))
	}

	keptDet, keptSem, dropped := mergeSegments(deterministic, semantic, maxChars)
	payload.SegmentsDropped = dropped
	payload.UsedDeterministic = len(keptDet) > 0
	payload.UsedSemantic = len(keptSem) > 0

	kept := append(keptDet, keptSem...)
	if len(kept) == 0 {
		if payload.Status != domain.ContextStatusSemanticDegraded {
			payload.Status = domain.ContextStatusEmpty
		}
		payload.Payload = domain.NoContextSentinel
		logger.Info("Context empty (dropped %d segments, status %s)", dropped, payload.Status)
		return payload, nil
	}

	payload.Payload = strings.Join(kept, segmentSeparator)
	logger.Info("Context built: %d chars, %d segments kept, %d dropped, status %s",
		utf8.RuneCountInString(payload.Payload), len(kept), dropped, payload.Status)
	return payload, nil
}

// deterministicSegments runs the aggregation for intent. noData is true when an
// Aggregation intent produced no result, in which case the returned segments
// hold a single no-data marker.
func (s *ContextService) deterministicSegments(
	ctx context.Context, snapshot *domain.Snapshot, intent domain.Intent,
) (segments []string, noData bool, err error) {
	if !intent.HasAggregation() {
		return nil, false, nil
	}
	q := intent.Aggregation

	found := false
	for _, metric := range q.Metrics {
		res, err := s.aggregate(ctx, snapshot, q, metric)
		if err != nil {
			return nil, false, fmt.Errorf("aggregate %s: %w", q.Kind, err)
		}
		if !res.Found {
			continue
		}
		found = true
		segments = append(segments, aggregateSegments(res)...)
	}

	if !found && intent.Kind == domain.IntentAggregation {
		return []string{noDataSegment(q)}, true, nil
	}
	return segments, false, nil
}

func (s *ContextService) aggregate(
	ctx context.Context, snapshot *domain.Snapshot, q *domain.AggregationQuery, metric domain.Metric,
) (*domain.AggregateResult, error) {
	switch q.Kind {
	case domain.AggregateTotal:
		return s.agg.Total(ctx, snapshot, metric, q.Period)
	case domain.AggregateTransaction:
		return s.agg.ByTransaction(ctx, snapshot, q.TransactionID, metric, q.Period)
	default:
		return s.agg.TopN(ctx, snapshot, domain.TopNQuery{
			Metric:        metric,
			Entity:        q.Entity,
			Period:        q.Period,
			GroupByPeriod: q.GroupByPeriod,
			N:             q.N,
		})
	}
}

// semanticSegments embeds query and serialises the nearest documents in rank order.
func (s *ContextService) semanticSegments(ctx context.Context, query string, intent domain.Intent) ([]string, error) {
	if s.embedder == nil || s.index == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var filters map[string]string
	if intent.Period != nil {
		filters = map[string]string{domain.MetaPeriod: intent.Period.String()}
	}

	hits, err := s.index.Query(ctx, vector, s.topK, filters)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	segments := make([]string, 0, len(hits))
	for _, hit := range hits {
		segments = append(segments, documentSegment(hit))
	}
	return segments, nil
}

func (s *ContextService) isStale(ctx context.Context, snapshot *domain.Snapshot) bool {
	if s.detector == nil {
		return false
	}
	needs, err := s.detector.NeedsReindex(ctx, s.detector.Fingerprint(snapshot))
	if err == nil && !needs && s.embedder != nil {
		needs, err = s.detector.ModelChanged(ctx, domain.EmbeddingModel{
			Name:       s.embedder.ModelName(),
			Dimensions: s.embedder.Dimensions(),
		})
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Warn("Staleness check failed: %v", err)
		}
		return false
	}
	return needs
}

// mergeSegments keeps deterministic then semantic segments greedily, stopping at
// the first segment that does not fit. Segments are never split.
func mergeSegments(deterministic, semantic []string, maxChars int) (keptDet, keptSem []string, dropped int) {
	used := 0
	full := false
	take := func(seg string) bool {
		if full {
			return false
		}
		cost := utf8.RuneCountInString(seg)
		if used > 0 {
			cost += utf8.RuneCountInString(segmentSeparator)
		}
		if used+cost > maxChars {
			full = true
			return false
		}
		used += cost
		return true
	}

	for _, seg := range deterministic {
		if take(seg) {
			keptDet = append(keptDet, seg)
		} else {
			dropped++
		}
	}
	for _, seg := range semantic {
		if take(seg) {
			keptSem = append(keptSem, seg)
		} else {
			dropped++
		}
	}
	return keptDet, keptSem, dropped
}

func joinedLen(segments []string) int {
	if len(segments) == 0 {
		return 0
	}
	return utf8.RuneCountInString(strings.Join(segments, segmentSeparator))
}

// aggregateSegments serialises one self-contained key=value line per entry.
func aggregateSegments(res *domain.AggregateResult) []string {
	var out []string
	for _, g := range res.Groups {
		for _, e := range g.Entries {
			switch res.Kind {
			case domain.AggregateTotal:
				out = append(out, fmt.Sprintf("total metric=%s period=%s value=%s",
					res.Metric, periodLabel(g.Period), formatFloat(e.Value)))
			case domain.AggregateTransaction:
				out = append(out, fmt.Sprintf("transaction id=%q metric=%s period=%s value=%s",
					e.Entity, res.Metric, periodLabel(g.Period), formatFloat(e.Value)))
			default:
				out = append(out, fmt.Sprintf("top_n%s metric=%s period=%s rank=%d entity=%q value=%s",
					byLabel(res.Entity), res.Metric, periodLabel(g.Period), e.Rank, e.Entity, formatFloat(e.Value)))
			}
		}
	}
	return out
}

func noDataSegment(q *domain.AggregationQuery) string {
	var p domain.Period
	if q.Period != nil {
		p = *q.Period
	}
	metrics := make([]string, len(q.Metrics))
	for i, m := range q.Metrics {
		metrics[i] = m.String()
	}
	seg := fmt.Sprintf("no_data kind=%s%s metric=%s period=%s",
		q.Kind, byLabel(q.Entity), strings.Join(metrics, ","), periodLabel(p))
	if q.TransactionID != "" {
		seg += fmt.Sprintf(" id=%q", q.TransactionID)
	}
	return seg
}

// byLabel tags category rankings; product rankings keep the plain form.
func byLabel(e domain.Entity) string {
	if e == domain.EntityCategory {
		return " by=category"
	}
	return ""
}

func documentSegment(hit domain.ScoredDocument) string {
	return fmt.Sprintf("• %s (similarity %.2f)", hit.Document.Text, hit.Score)
}

func periodLabel(p domain.Period) string {
	if p.IsZero() {
		return "all"
	}
	return p.String()
}
