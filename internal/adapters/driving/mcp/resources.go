package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for quasar resources.
	uriScheme = "quasar://"

	// StatusURI addresses the index status resource.
	StatusURI = uriScheme + "index/status"
)

// StatusOutput is the JSON body of the index status resource.
type StatusOutput struct {
	Documents          int    `json:"documents"`
	IndexedFingerprint string `json:"indexed_fingerprint"`
	LiveFingerprint    string `json:"live_fingerprint"`
	Stale              bool   `json:"stale"`
	SnapshotLoaded     bool   `json:"snapshot_loaded"`
	EmbeddingModel     string `json:"embedding_model,omitempty"`
	Datasets           int    `json:"datasets"`
	Records            int    `json:"records"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Index == nil {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         StatusURI,
		Name:        "index-status",
		Description: "Document count and staleness of the semantic index against the live dataset",
		MIMEType:    "application/json",
	}, s.handleStatusResource)
}

// handleStatusResource returns the index status as JSON.
func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	snapshot := s.ports.Snapshots.Current()
	st, err := s.ports.Index.Status(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("reading index status: %w", err)
	}

	data, err := json.MarshalIndent(statusOutput(st, snapshot), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling status: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func statusOutput(st *domain.IndexStatus, snapshot *domain.Snapshot) StatusOutput {
	out := StatusOutput{
		Documents:          st.Documents,
		IndexedFingerprint: st.IndexedFingerprint.String(),
		LiveFingerprint:    st.LiveFingerprint.String(),
		Stale:              st.Stale,
		SnapshotLoaded:     st.SnapshotLoaded,
		EmbeddingModel:     st.EmbeddingModel,
		Records:            snapshot.RecordCount(),
	}
	if snapshot != nil {
		out.Datasets = len(snapshot.Datasets)
	}
	return out
}
