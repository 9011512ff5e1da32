// Package csvdir loads sales datasets from the *.csv files of one directory
// and watches the directory for changes.
package csvdir

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/quasar/internal/core/domain"
	"github.com/custodia-labs/quasar/internal/core/ports/driven"
	"github.com/custodia-labs/quasar/internal/logger"
)

// Ensure Provider implements the interfaces.
var (
	_ driven.DatasetProvider = (*Provider)(nil)
	_ driven.DatasetWatcher  = (*Provider)(nil)
)

// DefaultDebounce is how long the watcher waits for a burst of writes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Provider reads every visible *.csv file of a directory. Each file is one
// dataset with ID "csv::<file name>" and the file name without extension as title.
type Provider struct {
	dir      string
	debounce time.Duration
}

// New creates a provider for dir.
func New(dir string) *Provider {
	return &Provider{dir: dir, debounce: DefaultDebounce}
}

// WithDebounce sets the watcher debounce interval.
func (p *Provider) WithDebounce(d time.Duration) *Provider {
	p.debounce = d
	return p
}

// Name identifies the provider.
func (p *Provider) Name() string {
	return "csv"
}

// Dir returns the watched directory.
func (p *Provider) Dir() string {
	return p.dir
}

// Load reads every CSV file. A file that cannot be parsed fails the whole load.
func (p *Provider) Load(ctx context.Context) (*domain.Snapshot, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("csv: directory %s does not exist: %w", p.dir, domain.ErrDatasetUnavailable)
		}
		return nil, fmt.Errorf("csv: read directory: %v: %w", err, domain.ErrDatasetUnavailable)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isDatasetFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	datasets := make([]domain.Dataset, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := readCSV(filepath.Join(p.dir, name))
		if err != nil {
			return nil, fmt.Errorf("csv: %s: %v: %w", name, err, domain.ErrDatasetUnavailable)
		}
		title := strings.TrimSuffix(name, filepath.Ext(name))
		datasets = append(datasets, domain.DatasetFromRows("csv::"+name, title, rows))
	}

	logger.Debug("csv: loaded %d files from %s", len(datasets), p.dir)
	return domain.NewSnapshot(datasets, time.Now()), nil
}

// readCSV parses a file, sniffing ';' or ',' as the delimiter from the header.
func readCSV(path string) ([][]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]any
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]any, len(record))
		for i, v := range record {
			row[i] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func sniffDelimiter(data []byte) rune {
	header, err := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')
	if err != nil && err != io.EOF {
		return ','
	}
	if strings.Count(header, ";") > strings.Count(header, ",") {
		return ';'
	}
	return ','
}

// isDatasetFile reports whether name is a visible CSV file.
func isDatasetFile(name string) bool {
	return !isHidden(name) && strings.EqualFold(filepath.Ext(name), ".csv")
}

func isHidden(name string) bool {
	return strings.HasPrefix(filepath.Base(name), ".")
}
