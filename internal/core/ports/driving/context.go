package driving

import (
	"context"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

// ContextService builds bounded context payloads for user questions.
type ContextService interface {
	// BuildContext classifies the query, runs the deterministic and semantic paths
	// and merges their segments into a payload of at most maxChars characters.
	// An empty result is domain.NoContextSentinel regardless of maxChars.
	// Semantic failures degrade the status and are never returned as errors.
	BuildContext(ctx context.Context, query string, maxChars int) (*domain.ContextPayload, error)
}

// QueryClassifier turns a question into a tagged intent.
type QueryClassifier interface {
	// Classify resolves keywords, periods and ranking sizes against the snapshot.
	// A nil snapshot leaves relative periods unresolved.
	Classify(query string, snapshot *domain.Snapshot) domain.Intent
}
