package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

// BuildContextInput is the input schema for the build_context tool.
type BuildContextInput struct {
	Query    string `json:"query" jsonschema:"the user question to build context for"`
	MaxChars int    `json:"max_chars,omitempty" jsonschema:"character budget for the payload (default from settings)"`
}

// BuildContextOutput is the output schema for the build_context tool.
type BuildContextOutput struct {
	Context           string `json:"context"`
	Status            string `json:"status"`
	Intent            string `json:"intent"`
	Stale             bool   `json:"stale"`
	UsedDeterministic bool   `json:"used_deterministic"`
	UsedSemantic      bool   `json:"used_semantic"`
	SegmentsDropped   int    `json:"segments_dropped"`
}

// TopNInput is the input schema for the top_n tool.
type TopNInput struct {
	Metric   string `json:"metric" jsonschema:"metric to rank by: revenue or quantity"`
	Entity   string `json:"entity,omitempty" jsonschema:"dimension to rank: product (default) or category"`
	Period   string `json:"period,omitempty" jsonschema:"month as YYYY-MM or latest; empty ranks across every period"`
	ByPeriod bool   `json:"by_period,omitempty" jsonschema:"return one ranking per month"`
	N        int    `json:"n,omitempty" jsonschema:"number of entries per ranking (default from settings)"`
}

// TopNOutput is the output schema for the top_n tool.
type TopNOutput struct {
	Metric   string          `json:"metric"`
	Entity   string          `json:"entity"`
	Found    bool            `json:"found"`
	Rankings []RankingOutput `json:"rankings"`
}

// RankingOutput is one ranking, optionally scoped to a period.
type RankingOutput struct {
	Period  string        `json:"period,omitempty"`
	Entries []EntryOutput `json:"entries"`
}

// EntryOutput is one ranked entity.
type EntryOutput struct {
	Rank   int     `json:"rank"`
	Entity string  `json:"entity"`
	Value  float64 `json:"value"`
}

// ReindexInput is the input schema for the reindex tool.
type ReindexInput struct {
	Force bool `json:"force,omitempty" jsonschema:"rebuild even when the dataset is unchanged"`
}

// ReindexOutput is the output schema for the reindex tool.
type ReindexOutput struct {
	RunID            string `json:"run_id"`
	DocumentsIndexed int    `json:"documents_indexed"`
	RecordsSkipped   int    `json:"records_skipped"`
	Fingerprint      string `json:"fingerprint"`
	Unchanged        bool   `json:"unchanged"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "build_context",
		Description: "Build a bounded context payload of sales facts and matching records for a question",
	}, s.handleBuildContext)

	if s.ports.Aggregation != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "top_n",
			Description: "Rank products or categories by summed revenue or quantity, computed exactly from the live dataset",
		}, s.handleTopN)
	}

	if s.ports.Index != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "reindex",
			Description: "Reload the dataset and rebuild the semantic index if it changed",
		}, s.handleReindex)
	}
}

// handleBuildContext handles the build_context tool invocation.
func (s *Server) handleBuildContext(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input BuildContextInput,
) (*mcp.CallToolResult, BuildContextOutput, error) {
	maxChars := input.MaxChars
	if maxChars <= 0 {
		maxChars = s.ports.maxChars()
	}

	payload, err := s.ports.Context.BuildContext(ctx, input.Query, maxChars)
	if err != nil {
		return nil, BuildContextOutput{}, err
	}

	return nil, BuildContextOutput{
		Context:           payload.Payload,
		Status:            payload.Status.String(),
		Intent:            payload.Intent.Kind.String(),
		Stale:             payload.Stale,
		UsedDeterministic: payload.UsedDeterministic,
		UsedSemantic:      payload.UsedSemantic,
		SegmentsDropped:   payload.SegmentsDropped,
	}, nil
}

// handleTopN handles the top_n tool invocation.
func (s *Server) handleTopN(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TopNInput,
) (*mcp.CallToolResult, TopNOutput, error) {
	snapshot := s.ports.Snapshots.Current()
	if snapshot == nil {
		return nil, TopNOutput{}, domain.ErrNoSnapshot
	}

	metric := domain.Metric(strings.ToLower(strings.TrimSpace(input.Metric)))
	if !metric.IsValid() {
		return nil, TopNOutput{}, fmt.Errorf("metric %q: %w", input.Metric, domain.ErrInvalidArgument)
	}

	entity, err := domain.ParseEntity(input.Entity)
	if err != nil {
		return nil, TopNOutput{}, err
	}

	query := domain.TopNQuery{
		Metric:        metric,
		Entity:        entity,
		GroupByPeriod: input.ByPeriod,
		N:             input.N,
	}
	if query.N == 0 {
		query.N = s.ports.topN()
	}

	period, ok, err := s.resolvePeriod(input.Period)
	if err != nil {
		return nil, TopNOutput{}, err
	}
	if !ok {
		// "latest" on a dataset without dated rows ranks nothing.
		return nil, TopNOutput{Metric: metric.String(), Entity: entity.String(), Rankings: []RankingOutput{}}, nil
	}
	query.Period = period

	res, err := s.ports.Aggregation.TopN(ctx, snapshot, query)
	if err != nil {
		return nil, TopNOutput{}, err
	}

	return nil, topNOutput(res), nil
}

// resolvePeriod maps "" to every period and "latest" to the newest month.
// ok is false when "latest" is asked of a dataset with no dated rows.
func (s *Server) resolvePeriod(raw string) (period *domain.Period, ok bool, err error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "":
		return nil, true, nil
	case "latest":
		p, found := s.ports.Aggregation.LatestPeriod(s.ports.Snapshots.Current())
		if !found {
			return nil, false, nil
		}
		return &p, true, nil
	}
	p, err := domain.ParsePeriod(raw)
	if err != nil {
		return nil, false, fmt.Errorf("period %q: %w", raw, domain.ErrInvalidArgument)
	}
	return &p, true, nil
}

func topNOutput(res *domain.AggregateResult) TopNOutput {
	out := TopNOutput{
		Metric:   res.Metric.String(),
		Entity:   res.Entity.String(),
		Found:    res.Found,
		Rankings: make([]RankingOutput, 0, len(res.Groups)),
	}
	for _, g := range res.Groups {
		ranking := RankingOutput{Entries: make([]EntryOutput, 0, len(g.Entries))}
		if !g.Period.IsZero() {
			ranking.Period = g.Period.String()
		}
		for _, e := range g.Entries {
			ranking.Entries = append(ranking.Entries, EntryOutput{Rank: e.Rank, Entity: e.Entity, Value: e.Value})
		}
		out.Rankings = append(out.Rankings, ranking)
	}
	return out
}

// handleReindex handles the reindex tool invocation.
func (s *Server) handleReindex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ReindexInput,
) (*mcp.CallToolResult, ReindexOutput, error) {
	snapshot, err := s.ports.Snapshots.Reload(ctx)
	if err != nil {
		return nil, ReindexOutput{}, fmt.Errorf("reloading dataset: %w", err)
	}

	res, err := s.ports.Index.ReindexWithOptions(ctx, snapshot, domain.ReindexOptions{Force: input.Force})
	if err != nil {
		return nil, ReindexOutput{}, err
	}

	return nil, ReindexOutput{
		RunID:            res.RunID,
		DocumentsIndexed: res.DocumentsIndexed,
		RecordsSkipped:   res.RecordsSkipped,
		Fingerprint:      string(res.Fingerprint),
		Unchanged:        res.Unchanged,
	}, nil
}
