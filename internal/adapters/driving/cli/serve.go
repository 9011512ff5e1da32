package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quasar/internal/logger"
)

var (
	serveAddr  string
	serveNoMCP bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the long-lived server",
	Long: `Runs the background reloader, which reloads the datasets on change and
reindexes them, and serves HTTP:

  /metrics  Prometheus metrics
  /mcp      MCP streamable HTTP transport
  /healthz  liveness`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost:9464", "listen address")
	serveCmd.Flags().BoolVar(&serveNoMCP, "no-mcp", false, "do not mount the MCP transport")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	mux, err := newServeMux(!serveNoMCP)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	ln, err := net.Listen("tcp", serveAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", serveAddr, err)
	}
	cmd.PrintErrf("Serving on http://%s\n", ln.Addr())

	return serve(ctx, ln, mux)
}

// serve runs the reloader and the HTTP server until ctx is cancelled.
func serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	reloaderDone := make(chan struct{})
	if reloader != nil {
		go func() {
			defer close(reloaderDone)
			if err := reloader.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("reloader: %v", err)
			}
		}()
	} else {
		close(reloaderDone)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown: %v", err)
		}
	}()

	err := srv.Serve(ln)
	if reloader != nil {
		if stopErr := reloader.Stop(); stopErr != nil {
			logger.Warn("reloader stop: %v", stopErr)
		}
	}
	<-reloaderDone
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func newServeMux(withMCP bool) (*http.ServeMux, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}
	if withMCP {
		server, err := newMCPServer()
		if err != nil {
			return nil, err
		}
		mux.Handle("/mcp", server.Handler())
	}
	return mux, nil
}
