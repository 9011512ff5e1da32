package mcp

import "errors"

// Errors returned when validating ports.
var (
	// ErrMissingContextService is returned when no context service is wired.
	ErrMissingContextService = errors.New("mcp: context service is required")

	// ErrMissingSnapshotSource is returned when aggregation or index ports are
	// wired without a snapshot source to read from.
	ErrMissingSnapshotSource = errors.New("mcp: snapshot source is required for top_n and reindex")
)
