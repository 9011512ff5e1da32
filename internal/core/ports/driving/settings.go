package driving

import (
	"context"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.EmbeddingProvider, model, apiKey string) error

	// Validate checks the current settings for unusable combinations.
	Validate() error

	// ValidateEmbeddingConfig checks that the embedding provider is reachable.
	ValidateEmbeddingConfig(ctx context.Context) error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
