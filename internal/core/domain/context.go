package domain

// NoContextSentinel is returned as the payload when nothing fits or nothing was found.
const NoContextSentinel = "[no context available]"

// ContextStatus describes how a context payload was produced.
type ContextStatus string

// Context statuses.
const (
	// ContextStatusOK means every attempted path succeeded.
	ContextStatusOK ContextStatus = "ok"

	// ContextStatusSemanticDegraded means the semantic path failed and was skipped.
	ContextStatusSemanticDegraded ContextStatus = "semantic_degraded"

	// ContextStatusEmpty means the payload is the no-context sentinel.
	ContextStatusEmpty ContextStatus = "empty"
)

// String returns the string representation.
func (s ContextStatus) String() string {
	return string(s)
}

// ContextPayload is the bounded text handed to a language-model caller.
type ContextPayload struct {
	// Payload is the merged text. Its rune length never exceeds the requested budget.
	Payload string

	// UsedDeterministic is true when at least one aggregation segment was kept.
	UsedDeterministic bool

	// UsedSemantic is true when at least one retrieved document segment was kept.
	UsedSemantic bool

	// Status reports degradation.
	Status ContextStatus

	// Stale is true when the live snapshot differs from the indexed one.
	Stale bool

	// SegmentsDropped counts segments omitted by truncation.
	SegmentsDropped int

	// Intent is the classification used to build the payload.
	Intent Intent
}

// ReindexOptions controls a reindex run.
type ReindexOptions struct {
	// Force rebuilds even when the fingerprint is unchanged.
	Force bool
}

// ReindexResult summarises a reindex run.
type ReindexResult struct {
	// RunID identifies the run in logs.
	RunID string

	// DocumentsIndexed is the number of documents published.
	DocumentsIndexed int

	// RecordsSkipped counts records that failed encoding.
	RecordsSkipped int

	// Fingerprint is the digest of the indexed snapshot.
	Fingerprint Fingerprint

	// Unchanged is true when the run was skipped because nothing changed.
	Unchanged bool
}

// IndexStatus reports index health for status surfaces.
type IndexStatus struct {
	Documents          int
	IndexedFingerprint Fingerprint
	LiveFingerprint    Fingerprint
	Stale              bool
	SnapshotLoaded     bool
	EmbeddingModel     string
	IndexedModel       EmbeddingModel
}
