package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/quasar/internal/core/domain"
	"github.com/custodia-labs/quasar/internal/core/ports/driven"
	"github.com/custodia-labs/quasar/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyDatasetProvider     = "dataset.provider"
	keyDatasetCSVDir       = "dataset.csv_dir"
	keySheetIDs            = "sheets.ids"
	keySheetRange          = "sheets.range"
	keySheetCredentials    = "sheets.credentials_file"
	keyEmbedProvider       = "embedding.provider"
	keyEmbedModel          = "embedding.model"
	keyEmbedBaseURL        = "embedding.base_url"
	keyEmbedAPIKey         = "embedding.api_key"
	keyEmbedDimensions     = "embedding.dimensions"
	keyIndexBackend        = "index.backend"
	keyIndexDataDir        = "index.data_dir"
	keyIndexPgvectorDSN    = "index.pgvector_dsn"
	keyContextMaxChars     = "context.max_chars"
	keyContextTopK         = "context.top_k"
	keyContextDefaultTopN  = "context.default_top_n"
	keyContextLatestPeriod = "context.latest_period_default"
	keyIndexingBatchSize   = "indexing.batch_size"
	keyIndexingConcurrency = "indexing.concurrency"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	validator   driven.EmbeddingValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings, falling back to defaults for
// unset or unrecognised values.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	provider := s.getEmbeddingProvider(defaults.Embedding.Provider)
	model := s.getString(keyEmbedModel, "")
	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}

	settings := &domain.AppSettings{
		Dataset: domain.DatasetSettings{
			Provider:        s.getDatasetProvider(defaults.Dataset.Provider),
			CSVDir:          s.getString(keyDatasetCSVDir, defaults.Dataset.CSVDir),
			SheetIDs:        s.configStore.GetStringSlice(keySheetIDs),
			SheetRange:      s.getString(keySheetRange, defaults.Dataset.SheetRange),
			CredentialsFile: s.configStore.GetString(keySheetCredentials),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   provider,
			Model:      model,
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.getInt(keyEmbedDimensions, s.defaultDimensions(provider, model, defaults.Embedding.Dimensions)),
		},
		Index: domain.IndexSettings{
			Backend:     s.getIndexBackend(defaults.Index.Backend),
			DataDir:     s.configStore.GetString(keyIndexDataDir),
			PgvectorDSN: s.configStore.GetString(keyIndexPgvectorDSN),
		},
		Context: domain.ContextSettings{
			MaxChars:            s.getInt(keyContextMaxChars, defaults.Context.MaxChars),
			TopK:                s.getInt(keyContextTopK, defaults.Context.TopK),
			DefaultTopN:         s.getInt(keyContextDefaultTopN, defaults.Context.DefaultTopN),
			LatestPeriodDefault: s.getBool(keyContextLatestPeriod, defaults.Context.LatestPeriodDefault),
		},
		Indexing: domain.IndexingSettings{
			BatchSize:   s.getInt(keyIndexingBatchSize, defaults.Indexing.BatchSize),
			Concurrency: s.getInt(keyIndexingConcurrency, defaults.Indexing.Concurrency),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyDatasetProvider, string(settings.Dataset.Provider)},
		{keyDatasetCSVDir, settings.Dataset.CSVDir},
		{keySheetRange, settings.Dataset.SheetRange},
		{keySheetCredentials, settings.Dataset.CredentialsFile},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDimensions, settings.Embedding.Dimensions},
		{keyIndexBackend, string(settings.Index.Backend)},
		{keyIndexDataDir, settings.Index.DataDir},
		{keyIndexPgvectorDSN, settings.Index.PgvectorDSN},
		{keyContextMaxChars, settings.Context.MaxChars},
		{keyContextTopK, settings.Context.TopK},
		{keyContextDefaultTopN, settings.Context.DefaultTopN},
		{keyContextLatestPeriod, settings.Context.LatestPeriodDefault},
		{keyIndexingBatchSize, settings.Indexing.BatchSize},
		{keyIndexingConcurrency, settings.Indexing.Concurrency},
	}
	if len(settings.Dataset.SheetIDs) > 0 {
		values = append(values, struct {
			key   string
			value any
		}{keySheetIDs, settings.Dataset.SheetIDs})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.EmbeddingProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider %q: %w", provider, domain.ErrUnsupportedType)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s: %w", provider, domain.ErrInvalidArgument)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	switch provider {
	case domain.EmbeddingProviderOllama:
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	default:
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.APIKey = apiKey

	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = d
	}

	return s.Save(settings)
}

// Validate checks the current settings for unusable combinations.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %q is not configured: %w",
			settings.Embedding.Provider, domain.ErrEmbeddingUnavailable)
	}
	switch settings.Dataset.Provider {
	case domain.DatasetProviderSheets:
		if len(settings.Dataset.SheetIDs) == 0 {
			return fmt.Errorf("dataset provider sheets requires %s: %w", keySheetIDs, domain.ErrInvalidArgument)
		}
	case domain.DatasetProviderCSV:
		if settings.Dataset.CSVDir == "" {
			return fmt.Errorf("dataset provider csv requires %s: %w", keyDatasetCSVDir, domain.ErrInvalidArgument)
		}
	}
	if settings.Index.Backend == domain.IndexBackendPgvector && settings.Index.PgvectorDSN == "" {
		return fmt.Errorf("index backend pgvector requires %s: %w", keyIndexPgvectorDSN, domain.ErrInvalidArgument)
	}
	if settings.Context.MaxChars <= 0 || settings.Context.TopK <= 0 || settings.Context.DefaultTopN <= 0 {
		return fmt.Errorf("context limits must be positive: %w", domain.ErrInvalidArgument)
	}

	return nil
}

// SetEmbeddingValidator sets the validator used by ValidateEmbeddingConfig.
func (s *SettingsService) SetEmbeddingValidator(v driven.EmbeddingValidator) {
	s.validator = v
}

// ValidateEmbeddingConfig checks that the configured embedding provider is reachable.
// Without a validator only the static configuration is checked.
func (s *SettingsService) ValidateEmbeddingConfig(ctx context.Context) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %q is not configured: %w",
			settings.Embedding.Provider, domain.ErrEmbeddingUnavailable)
	}
	if s.validator == nil {
		return nil
	}
	return s.validator.ValidateEmbedding(ctx, &settings.Embedding)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getEmbeddingProvider(defaultVal domain.EmbeddingProvider) domain.EmbeddingProvider {
	provider := domain.EmbeddingProvider(s.configStore.GetString(keyEmbedProvider))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getDatasetProvider(defaultVal domain.DatasetProviderType) domain.DatasetProviderType {
	provider := domain.DatasetProviderType(s.configStore.GetString(keyDatasetProvider))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getIndexBackend(defaultVal domain.IndexBackend) domain.IndexBackend {
	backend := domain.IndexBackend(s.configStore.GetString(keyIndexBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

// defaultDimensions picks the known size for model, else the hashing default.
func (s *SettingsService) defaultDimensions(provider domain.EmbeddingProvider, model string, fallback int) int {
	if d, ok := domain.EmbeddingDimensions()[model]; ok {
		return d
	}
	if provider == domain.EmbeddingProviderHashing {
		return fallback
	}
	return 0
}
