package domain

const unknownDescription = "Unknown"

// EmbeddingProvider identifies an embedding backend.
type EmbeddingProvider string

// Available embedding providers.
const (
	// EmbeddingProviderOllama is a local Ollama instance.
	EmbeddingProviderOllama EmbeddingProvider = "ollama"

	// EmbeddingProviderOpenAI is the OpenAI API or a compatible endpoint.
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"

	// EmbeddingProviderHashing is an offline feature-hashing embedder.
	EmbeddingProviderHashing EmbeddingProvider = "hashing"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case EmbeddingProviderOllama, EmbeddingProviderOpenAI, EmbeddingProviderHashing:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p EmbeddingProvider) RequiresAPIKey() bool {
	return p == EmbeddingProviderOpenAI
}

// String returns the string representation.
func (p EmbeddingProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p EmbeddingProvider) Description() string {
	switch p {
	case EmbeddingProviderOllama:
		return "Ollama (local)"
	case EmbeddingProviderOpenAI:
		return "OpenAI (cloud)"
	case EmbeddingProviderHashing:
		return "Hashing (offline)"
	default:
		return unknownDescription
	}
}

// DatasetProviderType identifies where records are loaded from.
type DatasetProviderType string

// Available dataset providers.
const (
	// DatasetProviderSheets loads worksheets from Google Sheets.
	DatasetProviderSheets DatasetProviderType = "sheets"

	// DatasetProviderCSV loads *.csv files from a local directory.
	DatasetProviderCSV DatasetProviderType = "csv"
)

// IsValid returns true if the provider is recognised.
func (p DatasetProviderType) IsValid() bool {
	return p == DatasetProviderSheets || p == DatasetProviderCSV
}

// IndexBackend identifies the index store implementation.
type IndexBackend string

// Available index backends.
const (
	// IndexBackendSQLite persists the index in a local SQLite file.
	IndexBackendSQLite IndexBackend = "sqlite"

	// IndexBackendMemory keeps the index in process memory.
	IndexBackendMemory IndexBackend = "memory"

	// IndexBackendPgvector stores the index in PostgreSQL with pgvector.
	IndexBackendPgvector IndexBackend = "pgvector"
)

// IsValid returns true if the backend is recognised.
func (b IndexBackend) IsValid() bool {
	switch b {
	case IndexBackendSQLite, IndexBackendMemory, IndexBackendPgvector:
		return true
	default:
		return false
	}
}

// DatasetSettings holds dataset provider configuration.
type DatasetSettings struct {
	// Provider selects the dataset source.
	Provider DatasetProviderType

	// CSVDir is the directory scanned by the csv provider.
	CSVDir string

	// SheetIDs are the spreadsheet IDs read by the sheets provider.
	SheetIDs []string

	// SheetRange is the A1 range read from every worksheet.
	SheetRange string

	// CredentialsFile is a service-account key file for the sheets provider.
	CredentialsFile string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider EmbeddingProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the requested vector size. Zero uses the model default.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// IndexSettings holds index backend configuration.
type IndexSettings struct {
	Backend     IndexBackend
	DataDir     string
	PgvectorDSN string
}

// ContextSettings holds context composition defaults.
type ContextSettings struct {
	// MaxChars is the default payload budget in characters.
	MaxChars int

	// TopK is the number of documents retrieved by the semantic path.
	TopK int

	// DefaultTopN is the ranking size when a question names none.
	DefaultTopN int

	// LatestPeriodDefault resolves questions without a period to the latest one.
	LatestPeriodDefault bool
}

// IndexingSettings holds reindex tuning.
type IndexingSettings struct {
	// BatchSize is the number of documents per embedding call.
	BatchSize int

	// Concurrency bounds in-flight embedding calls.
	Concurrency int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Dataset   DatasetSettings
	Embedding EmbeddingSettings
	Index     IndexSettings
	Context   ContextSettings
	Indexing  IndexingSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The hashing embedder is the default so the tool works without network access.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Dataset: DatasetSettings{
			Provider:   DatasetProviderCSV,
			CSVDir:     "data",
			SheetRange: "A1:Z",
		},
		Embedding: EmbeddingSettings{
			Provider:   EmbeddingProviderHashing,
			Dimensions: 256,
		},
		Index: IndexSettings{
			Backend: IndexBackendSQLite,
		},
		Context: ContextSettings{
			MaxChars:            4000,
			TopK:                5,
			DefaultTopN:         3,
			LatestPeriodDefault: true,
		},
		Indexing: IndexingSettings{
			BatchSize:   64,
			Concurrency: 4,
		},
	}
}

// AllEmbeddingProviders returns every embedding provider.
func AllEmbeddingProviders() []EmbeddingProvider {
	return []EmbeddingProvider{
		EmbeddingProviderOllama,
		EmbeddingProviderOpenAI,
		EmbeddingProviderHashing,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[EmbeddingProvider]string {
	return map[EmbeddingProvider]string{
		EmbeddingProviderOllama:  "nomic-embed-text",
		EmbeddingProviderOpenAI:  "text-embedding-3-small",
		EmbeddingProviderHashing: "hashing-v1",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
