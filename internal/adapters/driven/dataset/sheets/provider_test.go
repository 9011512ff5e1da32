package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

var fastLimit = RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 100}

func newTestProvider(t *testing.T, handler http.Handler, ids ...string) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := New(context.Background(), Config{
		SpreadsheetIDs: ids,
		RateLimit:      fastLimit,
		Options: []option.ClientOption{
			option.WithEndpoint(srv.URL + "/"),
			option.WithoutAuthentication(),
		},
	})
	require.NoError(t, err)
	return p
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func salesHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v4/spreadsheets/book-1":
			writeJSON(t, w, map[string]any{
				"sheets": []any{
					map[string]any{"properties": map[string]any{"title": "Vendas Março 2024"}},
					map[string]any{"properties": map[string]any{"title": "Scratch", "hidden": true}},
					map[string]any{"properties": map[string]any{"title": "Fev's"}},
				},
			})
		case "/v4/spreadsheets/book-1/values:batchGet":
			assert.Equal(t, []string{"'Vendas Março 2024'!A1:Z", "'Fev''s'!A1:Z"}, r.URL.Query()["ranges"])
			assert.Equal(t, "UNFORMATTED_VALUE", r.URL.Query().Get("valueRenderOption"))
			writeJSON(t, w, map[string]any{
				"valueRanges": []any{
					map[string]any{"values": [][]any{
						{"Produto", "Quantidade", "Receita"},
						{"Notebook", 2, 2400.5},
						{"Mouse", 10, ""},
					}},
					map[string]any{"values": [][]any{
						{"Data", "Produto"},
						{"2024-02-01", "Monitor"},
					}},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = New(context.Background(), Config{
		SpreadsheetIDs:  []string{"x"},
		CredentialsFile: "/does/not/exist.json",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "read credentials")
}

func TestProvider_Load(t *testing.T) {
	p := newTestProvider(t, salesHandler(t), "book-1")
	assert.Equal(t, "sheets", p.Name())

	snap, err := p.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Datasets, 2)

	// Datasets are ordered by ID.
	feb := snap.Datasets[0]
	assert.Equal(t, "book-1::Fev's", feb.ID)
	assert.Equal(t, []string{"Data", "Produto"}, feb.Columns)

	march := snap.Datasets[1]
	assert.Equal(t, "book-1::Vendas Março 2024", march.ID)
	assert.Equal(t, "Vendas Março 2024", march.Title)
	require.Len(t, march.Records, 2)
	assert.Equal(t, "Notebook", march.Records[0].Values["Produto"])
	assert.Equal(t, 2400.5, march.Records[0].Values["Receita"])
	_, hasRevenue := march.Records[1].Value("Receita")
	assert.False(t, hasRevenue)
	assert.Equal(t, 3, snap.RecordCount())
}

func TestProvider_Load_Forbidden(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"The caller does not have permission"}}`))
	}), "book-1")

	_, err := p.Load(context.Background())
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, err, domain.ErrDatasetUnavailable)
}

func TestProvider_Load_NotFoundAbortsWholeLoad(t *testing.T) {
	p := newTestProvider(t, salesHandler(t), "book-1", "missing")

	snap, err := p.Load(context.Background())
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, domain.ErrDatasetUnavailable)
}

func TestProvider_Load_RetriesAfterRateLimit(t *testing.T) {
	var calls atomic.Int32
	inner := salesHandler(t)
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota"}}`))
			return
		}
		inner(w, r)
	}), "book-1")

	snap, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Datasets, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestProvider_Load_Cancelled(t *testing.T) {
	p := newTestProvider(t, salesHandler(t), "book-1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestA1Range(t *testing.T) {
	assert.Equal(t, "'Sheet1'!A1:Z", a1Range("Sheet1", "A1:Z"))
	assert.Equal(t, "'Bob''s'!B2:D", a1Range("Bob's", "B2:D"))
}
