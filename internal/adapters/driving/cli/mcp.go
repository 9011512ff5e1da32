package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quasar/internal/adapters/driving/mcp"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

Tools:
  build_context  bounded context payload for a question
  top_n          exact ranking by revenue or quantity
  reindex        rebuild the semantic index

Resource:
  quasar://index/status

By default the server communicates over stdio. Use --http to serve the
streamable HTTP transport instead.

Examples:
  # Stdio mode (for desktop assistants)
  quasar mcp

  # HTTP mode
  quasar mcp --http localhost:8080`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	server, err := newMCPServer()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	if snapshotSource != nil && snapshotSource.Current() == nil {
		if _, err := snapshotSource.Reload(ctx); err != nil {
			cmd.PrintErrf("Warning: %v\n", err)
		}
	}

	if mcpHTTPAddr != "" {
		cmd.PrintErrf("MCP server listening on http://%s\n", mcpHTTPAddr)
		return server.RunHTTP(ctx, mcpHTTPAddr)
	}
	return server.Run(ctx)
}

func newMCPServer() (*mcp.Server, error) {
	if contextService == nil {
		return nil, errors.New("context service not configured")
	}
	settings := configuredContext()
	return mcp.NewServer(&mcp.Ports{
		Context:         contextService,
		Aggregation:     aggregationService,
		Index:           indexService,
		Snapshots:       snapshotSource,
		DefaultMaxChars: settings.MaxChars,
		DefaultTopN:     settings.DefaultTopN,
	})
}
