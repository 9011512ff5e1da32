// Package embedding provides factory functions for creating embedding service adapters.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/quasar/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/quasar/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/quasar/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/quasar/internal/core/domain"
	"github.com/custodia-labs/quasar/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Ensure ConfigValidator implements the interface.
var _ driven.EmbeddingValidator = (*ConfigValidator)(nil)

// CreateEmbeddingService creates the embedding service selected by settings.
// It does not contact the provider.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, fmt.Errorf("embedding settings missing: %w", domain.ErrInvalidArgument)
	}
	if settings.Provider == "" {
		cp := *settings
		cp.Provider = domain.EmbeddingProviderHashing
		settings = &cp
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("embedding provider %q is not configured: %w",
			settings.Provider, domain.ErrEmbeddingUnavailable)
	}

	switch settings.Provider {
	case domain.EmbeddingProviderHashing:
		return hashing.NewEmbeddingService(settings.Dimensions), nil

	case domain.EmbeddingProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.EmbeddingProviderOpenAI:
		svc, err := createOpenAIEmbedding(settings)
		if err != nil {
			return nil, err
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider %q: %w", settings.Provider, domain.ErrUnsupportedType)
	}
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
func CreateAndValidateEmbeddingService(
	ctx context.Context,
	settings *domain.EmbeddingSettings,
) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("embedding provider %s unreachable: %w", settings.Provider, err)
	}
	return svc, nil
}

// ConfigValidator validates embedding configurations by pinging the provider.
type ConfigValidator struct{}

// NewConfigValidator creates a new embedding config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding builds the configured service, pings it and releases it.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateAndValidateEmbeddingService(ctx, settings)
	if err != nil {
		return err
	}
	return svc.Close()
}

func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}
	return ollama.NewEmbeddingService(ollama.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (*openai.EmbeddingService, error) {
	return openai.NewEmbeddingService(openai.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
	})
}
