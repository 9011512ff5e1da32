package mcp

import (
	"github.com/custodia-labs/quasar/internal/core/domain"
	"github.com/custodia-labs/quasar/internal/core/ports/driving"
)

// Ports is what the MCP server needs from the core. Only Context is required;
// each optional port enables the tool or resource that uses it.
type Ports struct {
	// Context builds bounded context payloads. Required.
	Context driving.ContextService

	// Aggregation backs the top_n tool. Optional.
	Aggregation driving.AggregationService

	// Index backs the reindex tool and the status resource. Optional.
	Index driving.IndexService

	// Snapshots supplies the live snapshot to Aggregation and Index.
	Snapshots driving.SnapshotSource

	// DefaultMaxChars is used when build_context is called without max_chars.
	DefaultMaxChars int

	// DefaultTopN is used when top_n is called without n.
	DefaultTopN int
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Context == nil {
		return ErrMissingContextService
	}
	if (p.Aggregation != nil || p.Index != nil) && p.Snapshots == nil {
		return ErrMissingSnapshotSource
	}
	return nil
}

func (p *Ports) maxChars() int {
	if p.DefaultMaxChars > 0 {
		return p.DefaultMaxChars
	}
	return domain.DefaultAppSettings().Context.MaxChars
}

func (p *Ports) topN() int {
	if p.DefaultTopN > 0 {
		return p.DefaultTopN
	}
	return domain.DefaultAppSettings().Context.DefaultTopN
}
