// Package domain defines the core business entities for Quasar.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Record / Dataset / Snapshot: the tabular rows loaded from a provider
//   - Document: the indexed, embedded unit derived from one Record
//   - Fingerprint: a change-detection digest over dataset shape
//   - AggregateResult: a deterministic ranking computed from a Snapshot
//   - ContextPayload: the bounded text handed to a language model
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
