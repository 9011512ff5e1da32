// Package sheets loads sales worksheets from Google Sheets.
//
// Every worksheet of every configured spreadsheet becomes one dataset with ID
// "<spreadsheet>::<worksheet>". The first row of the configured range is the
// header. Access uses a service-account key file; there is no interactive flow.
package sheets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/custodia-labs/quasar/internal/core/domain"
	"github.com/custodia-labs/quasar/internal/core/ports/driven"
	"github.com/custodia-labs/quasar/internal/logger"
)

// Ensure Provider implements the interface.
var _ driven.DatasetProvider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultRange      = "A1:Z"
	DefaultMaxRetries = 3
)

// Config holds Google Sheets provider configuration.
type Config struct {
	// SpreadsheetIDs are the spreadsheets to read.
	SpreadsheetIDs []string

	// Range is the A1 range read from every worksheet (default: A1:Z).
	Range string

	// CredentialsFile is a service-account JSON key. When empty, application
	// default credentials are used.
	CredentialsFile string

	// RateLimit bounds request rate (default: DefaultRateLimit).
	RateLimit RateLimitConfig

	// MaxRetries is the number of retries after a 429 (default: 3).
	MaxRetries int

	// Options are extra client options, applied after the credentials.
	Options []option.ClientOption
}

// Provider reads worksheets through the Sheets v4 API.
type Provider struct {
	svc        *sheetsapi.Service
	ids        []string
	rng        string
	limiter    *RateLimiter
	maxRetries int
}

// New creates a Sheets provider.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if len(cfg.SpreadsheetIDs) == 0 {
		return nil, fmt.Errorf("sheets: no spreadsheet ids configured: %w", domain.ErrInvalidArgument)
	}
	if cfg.Range == "" {
		cfg.Range = DefaultRange
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("sheets: read credentials: %w", err)
		}
		jwtCfg, err := google.JWTConfigFromJSON(data, sheetsapi.SpreadsheetsReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("sheets: parse credentials: %w", err)
		}
		opts = append(opts, option.WithTokenSource(jwtCfg.TokenSource(ctx)))
	}
	opts = append(opts, cfg.Options...)

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}

	return &Provider{
		svc:        svc,
		ids:        cfg.SpreadsheetIDs,
		rng:        cfg.Range,
		limiter:    NewRateLimiter(cfg.RateLimit),
		maxRetries: cfg.MaxRetries,
	}, nil
}

// Name identifies the provider.
func (p *Provider) Name() string {
	return "sheets"
}

// Load reads every worksheet of every spreadsheet. Any failure aborts the
// whole load so callers never see a partial snapshot.
func (p *Provider) Load(ctx context.Context) (*domain.Snapshot, error) {
	var datasets []domain.Dataset
	for _, id := range p.ids {
		loaded, err := p.loadSpreadsheet(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("sheets: spreadsheet %s: %w: %w", id, WrapError(err), domain.ErrDatasetUnavailable)
		}
		datasets = append(datasets, loaded...)
	}
	logger.Debug("sheets: loaded %d worksheets from %d spreadsheets", len(datasets), len(p.ids))
	return domain.NewSnapshot(datasets, time.Now()), nil
}

func (p *Provider) loadSpreadsheet(ctx context.Context, id string) ([]domain.Dataset, error) {
	var ss *sheetsapi.Spreadsheet
	err := p.call(ctx, func() error {
		var err error
		ss, err = p.svc.Spreadsheets.Get(id).
			Fields("sheets.properties.title", "sheets.properties.hidden").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	var titles, ranges []string
	for _, sheet := range ss.Sheets {
		if sheet.Properties == nil || sheet.Properties.Hidden {
			continue
		}
		titles = append(titles, sheet.Properties.Title)
		ranges = append(ranges, a1Range(sheet.Properties.Title, p.rng))
	}
	if len(ranges) == 0 {
		return nil, nil
	}

	var resp *sheetsapi.BatchGetValuesResponse
	err = p.call(ctx, func() error {
		var err error
		resp, err = p.svc.Spreadsheets.Values.BatchGet(id).
			Ranges(ranges...).
			MajorDimension("ROWS").
			ValueRenderOption("UNFORMATTED_VALUE").
			DateTimeRenderOption("FORMATTED_STRING").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(resp.ValueRanges) != len(ranges) {
		return nil, fmt.Errorf("got %d value ranges for %d worksheets", len(resp.ValueRanges), len(ranges))
	}

	datasets := make([]domain.Dataset, 0, len(titles))
	for i, title := range titles {
		datasets = append(datasets, domain.DatasetFromRows(id+"::"+title, title, resp.ValueRanges[i].Values))
	}
	return datasets, nil
}

// call runs fn under the rate limiter, retrying after 429 responses.
func (p *Provider) call(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
		err := fn()
		if err == nil || !IsRateLimited(err) || attempt >= p.maxRetries {
			return err
		}
		wait := retryAfter(err)
		logger.Warn("sheets: rate limited, backing off (attempt %d/%d)", attempt+1, p.maxRetries)
		p.limiter.RecordRateLimitError(wait)
	}
}

// a1Range quotes a worksheet title for use in A1 notation.
func a1Range(title, rng string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'!" + rng
}
