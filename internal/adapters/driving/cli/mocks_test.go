package cli

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

type mockContextService struct {
	payload     *domain.ContextPayload
	err         error
	gotQuery    string
	gotMaxChars int
}

func (m *mockContextService) BuildContext(_ context.Context, query string, maxChars int) (*domain.ContextPayload, error) {
	m.gotQuery = query
	m.gotMaxChars = maxChars
	if m.err != nil {
		return nil, m.err
	}
	if m.payload != nil {
		return m.payload, nil
	}
	return &domain.ContextPayload{
		Payload:           "Top 3 products by revenue in 2024-03:\n1. Notebook: 9000",
		UsedDeterministic: true,
		Status:            domain.ContextStatusOK,
		Intent:            domain.Intent{Kind: domain.IntentAggregation},
	}, nil
}

type mockAggregationService struct {
	result    *domain.AggregateResult
	err       error
	latest    domain.Period
	hasLatest bool
	lastQuery domain.TopNQuery
	calls     int
}

func (m *mockAggregationService) TopN(_ context.Context, _ *domain.Snapshot, q domain.TopNQuery) (*domain.AggregateResult, error) {
	m.lastQuery = q
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.AggregateResult{
		Kind:   domain.AggregateTopN,
		Metric: q.Metric,
		Entity: q.Entity,
		Found:  true,
		Groups: []domain.PeriodRanking{{
			Entries: []domain.RankEntry{
				{Rank: 1, Entity: "Notebook", Value: 9000},
				{Rank: 2, Entity: "Monitor", Value: 1250.5},
			},
		}},
	}, nil
}

func (m *mockAggregationService) Total(context.Context, *domain.Snapshot, domain.Metric, *domain.Period) (*domain.AggregateResult, error) {
	return &domain.AggregateResult{Kind: domain.AggregateTotal}, nil
}

func (m *mockAggregationService) ByTransaction(context.Context, *domain.Snapshot, string, domain.Metric, *domain.Period) (*domain.AggregateResult, error) {
	return &domain.AggregateResult{Kind: domain.AggregateTransaction}, nil
}

func (m *mockAggregationService) Periods(*domain.Snapshot) []domain.Period {
	if m.hasLatest {
		return []domain.Period{m.latest}
	}
	return nil
}

func (m *mockAggregationService) LatestPeriod(*domain.Snapshot) (domain.Period, bool) {
	return m.latest, m.hasLatest
}

func (m *mockAggregationService) LatestYearForMonth(*domain.Snapshot, int) (int, bool) {
	return m.latest.Year, m.hasLatest
}

type mockIndexService struct {
	result  *domain.ReindexResult
	err     error
	status  *domain.IndexStatus
	gotOpts domain.ReindexOptions
	calls   int
	// progress is invoked from ReindexWithOptions when set.
	progress func(done, total int)
}

func (m *mockIndexService) Reindex(ctx context.Context, snapshot *domain.Snapshot) (*domain.ReindexResult, error) {
	return m.ReindexWithOptions(ctx, snapshot, domain.ReindexOptions{})
}

func (m *mockIndexService) ReindexWithOptions(
	_ context.Context,
	_ *domain.Snapshot,
	opts domain.ReindexOptions,
) (*domain.ReindexResult, error) {
	m.calls++
	m.gotOpts = opts
	if m.progress != nil {
		m.progress(1, 2)
		m.progress(2, 2)
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.ReindexResult{
		RunID:            "run-1",
		DocumentsIndexed: 2,
		Fingerprint:      "abcdef0123456789",
	}, nil
}

func (m *mockIndexService) Status(_ context.Context, snapshot *domain.Snapshot) (*domain.IndexStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.status != nil {
		return m.status, nil
	}
	return &domain.IndexStatus{
		Documents:          2,
		IndexedFingerprint: "abcdef0123456789",
		LiveFingerprint:    "abcdef0123456789",
		SnapshotLoaded:     snapshot != nil,
		EmbeddingModel:     "hashing-v1",
		IndexedModel:       domain.EmbeddingModel{Name: "hashing-v1", Dimensions: 256},
	}, nil
}

type mockSnapshotSource struct {
	mu        sync.Mutex
	snapshot  *domain.Snapshot
	loaded    bool
	reloadErr error
	reloads   int
}

func (m *mockSnapshotSource) Current() *domain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return nil
	}
	return m.snapshot
}

func (m *mockSnapshotSource) Reload(context.Context) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloads++
	if m.reloadErr != nil {
		return nil, m.reloadErr
	}
	m.loaded = true
	return m.snapshot, nil
}

type mockSettingsService struct {
	settings    *domain.AppSettings
	saved       *domain.AppSettings
	validateErr error
	embedErr    error
	provider    domain.EmbeddingProvider
	model       string
	apiKey      string
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.settings == nil {
		s := domain.DefaultAppSettings()
		m.settings = &s
	}
	cp := *m.settings
	return &cp, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.saved = settings
	m.settings = settings
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.EmbeddingProvider, model, apiKey string) error {
	m.provider = provider
	m.model = model
	m.apiKey = apiKey
	s, _ := m.Get() //nolint:errcheck // mock never fails
	s.Embedding.Provider = provider
	s.Embedding.Model = model
	if model == "" {
		s.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}
	s.Embedding.APIKey = apiKey
	m.settings = s
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) ValidateEmbeddingConfig(context.Context) error {
	return m.embedErr
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

type mockReloader struct {
	started chan struct{}
	stopped bool
	mu      sync.Mutex
}

func (m *mockReloader) Start(ctx context.Context) error {
	close(m.started)
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockReloader) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func testSnapshot() *domain.Snapshot {
	columns := []string{"produto", "quantidade", "receita_total", "data"}
	date := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	return domain.NewSnapshot([]domain.Dataset{{
		ID:      "csv::vendas",
		Title:   "vendas",
		Columns: columns,
		Records: []domain.Record{
			{DatasetID: "csv::vendas", RowIndex: 0, Columns: columns, Values: map[string]any{
				"produto": "Notebook", "quantidade": 3.0, "receita_total": 9000.0, "data": date,
			}},
			{DatasetID: "csv::vendas", RowIndex: 1, Columns: columns, Values: map[string]any{
				"produto": "Monitor", "quantidade": 1.0, "receita_total": 1250.5, "data": date,
			}},
		},
	}}, date)
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	context     *mockContextService
	aggregation *mockAggregationService
	index       *mockIndexService
	snapshots   *mockSnapshotSource
	settings    *mockSettingsService
	reset       int
}

// setupTestServices installs mock services and returns a cleanup function that
// restores the previous services and flag values.
func setupTestServices() func() {
	_, cleanup := setupTestServicesWith()
	return cleanup
}

func setupTestServicesWith() (*testServices, func()) {
	ts := &testServices{
		context:     &mockContextService{},
		aggregation: &mockAggregationService{latest: domain.Period{Year: 2024, Month: time.March}, hasLatest: true},
		index:       &mockIndexService{},
		snapshots:   &mockSnapshotSource{snapshot: testSnapshot()},
		settings:    &mockSettingsService{},
	}

	origContext := contextService
	origAggregation := aggregationService
	origIndex := indexService
	origSnapshots := snapshotSource
	origSettings := settingsService
	origReloader := reloader
	origMetrics := metricsHandler
	origProgress := setProgress
	origReset := resetIndex
	origClose := closeServices
	origBootstrap := bootstrap

	SetServices(&Services{
		Context:     ts.context,
		Aggregation: ts.aggregation,
		Index:       ts.index,
		Snapshots:   ts.snapshots,
		Settings:    ts.settings,
		SetProgress: func(fn func(done, total int)) { ts.index.progress = fn },
		Reset: func(context.Context) error {
			ts.reset++
			return nil
		},
	})
	bootstrap = nil

	return ts, func() {
		contextService = origContext
		aggregationService = origAggregation
		indexService = origIndex
		snapshotSource = origSnapshots
		settingsService = origSettings
		reloader = origReloader
		metricsHandler = origMetrics
		setProgress = origProgress
		resetIndex = origReset
		closeServices = origClose
		bootstrap = origBootstrap
		resetFlags()
	}
}

// resetFlags restores flag variables shared across tests through rootCmd.
func resetFlags() {
	verbose = false
	configDir = ""
	contextMaxChars = 0
	contextJSON = false
	topMetric = string(domain.MetricRevenue)
	topBy = string(domain.EntityProduct)
	topPeriod = ""
	topByPeriod = false
	topN = 0
	topJSON = false
	reindexForce = false
	reindexReset = false
	statusJSON = false
	mcpHTTPAddr = ""
	serveNoMCP = false
	rootCmd.SetArgs(nil)
	rootCmd.SetIn(nil)
	rootCmd.SetOut(nil)
	rootCmd.SetErr(nil)
}
