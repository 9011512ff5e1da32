package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

var (
	reindexForce bool
	reindexReset bool
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the semantic index from the live dataset",
	Long: `Reloads the datasets, encodes every record and embeds the documents into
the index. When the dataset fingerprint matches the last indexed one the run is
skipped unless --force is given.

--reset clears the index and its recorded fingerprint before rebuilding.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	reindexCmd.Flags().BoolVarP(&reindexForce, "force", "f", false, "rebuild even when nothing changed")
	reindexCmd.Flags().BoolVar(&reindexReset, "reset", false, "clear the index before rebuilding")
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}
	if snapshotSource == nil {
		return errors.New("snapshot source not configured")
	}

	ctx := commandContext(cmd)

	// Always index what is on disk now, not what an earlier command loaded.
	snapshot, err := snapshotSource.Reload(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	if reindexReset {
		if resetIndex == nil {
			return errors.New("index reset not supported")
		}
		if err := resetIndex(ctx); err != nil {
			return fmt.Errorf("reset index: %w", err)
		}
		cmd.Println("Index cleared.")
	}

	progress := newProgressBar(cmd.OutOrStdout())
	if setProgress != nil {
		setProgress(progress.update)
		defer setProgress(nil)
	}

	cmd.Printf("Indexing %d records from %d datasets...\n", snapshot.RecordCount(), len(snapshot.Datasets))
	res, err := indexService.ReindexWithOptions(ctx, snapshot, domain.ReindexOptions{Force: reindexForce || reindexReset})
	progress.finish()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("reindex cancelled")
		}
		return fmt.Errorf("reindex failed: %w", err)
	}

	if res.Unchanged {
		cmd.Println("Index is up to date.")
		return nil
	}
	cmd.Printf("Indexed %d documents", res.DocumentsIndexed)
	if res.RecordsSkipped > 0 {
		cmd.Printf(" (%d records skipped)", res.RecordsSkipped)
	}
	cmd.Println()
	cmd.Printf("Run %s, fingerprint %s\n", res.RunID, displayFingerprint(res.Fingerprint))
	return nil
}

// progressBar renders embedding progress on an interactive terminal.
// On other writers it stays silent.
type progressBar struct {
	mu    sync.Mutex
	w     io.Writer
	fd    int
	tty   bool
	drawn bool
}

func newProgressBar(w io.Writer) *progressBar {
	p := &progressBar{w: w}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.tty = true
	}
	return p
}

func (p *progressBar) update(done, total int) {
	if !p.tty || total <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	label := fmt.Sprintf(" %d/%d", done, total)
	width := 40
	if cols, _, err := term.GetSize(p.fd); err == nil && cols > len(label)+4 {
		width = min(cols-len(label)-3, 60)
	}
	filled := width * done / total
	fmt.Fprintf(p.w, "\r[%s%s]%s", strings.Repeat("=", filled), strings.Repeat(" ", width-filled), label)
	p.drawn = true
}

func (p *progressBar) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn {
		fmt.Fprintln(p.w)
		p.drawn = false
	}
}

func displayFingerprint(fp domain.Fingerprint) string {
	if fp.IsZero() {
		return "(none)"
	}
	return fp.Short()
}
