// Package similarity holds the vector math shared by the brute-force index stores.
package similarity

import (
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

// Cosine returns the cosine similarity of a and b.
// Zero vectors have similarity 0 with everything.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Matches reports whether metadata satisfies every filter exactly.
func Matches(metadata, filters map[string]string) bool {
	for k, want := range filters {
		got, ok := metadata[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// CheckDimensions returns ErrDimensionMismatch when got differs from want.
// A want of 0 means the store holds no vectors yet.
func CheckDimensions(want, got int) error {
	if want != 0 && want != got {
		return fmt.Errorf("vector has %d dimensions, index holds %d: %w", got, want, domain.ErrDimensionMismatch)
	}
	return nil
}

// Ranker keeps the topK highest-scoring documents seen so far.
// Order is descending score, ties by ascending document ID.
type Ranker struct {
	query []float32
	topK  int
	hits  []domain.ScoredDocument
}

// NewRanker creates a ranker. It returns ErrInvalidArgument when topK <= 0.
func NewRanker(query []float32, topK int) (*Ranker, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d: %w", topK, domain.ErrInvalidArgument)
	}
	return &Ranker{query: query, topK: topK}, nil
}

// Offer scores doc against the query and keeps it if it ranks in the top K.
func (r *Ranker) Offer(doc domain.Document) error {
	if len(doc.Embedding) != len(r.query) {
		return fmt.Errorf("document %s: %w", doc.ID, CheckDimensions(len(doc.Embedding), len(r.query)))
	}
	r.hits = append(r.hits, domain.ScoredDocument{Document: doc, Score: Cosine(r.query, doc.Embedding)})
	if len(r.hits) > 4*r.topK {
		r.trim()
	}
	return nil
}

// Results returns the ranked hits.
func (r *Ranker) Results() []domain.ScoredDocument {
	r.trim()
	if r.hits == nil {
		return []domain.ScoredDocument{}
	}
	return r.hits
}

func (r *Ranker) trim() {
	sort.Slice(r.hits, func(i, j int) bool {
		if r.hits[i].Score != r.hits[j].Score {
			return r.hits[i].Score > r.hits[j].Score
		}
		return r.hits[i].Document.ID < r.hits[j].Document.ID
	})
	if len(r.hits) > r.topK {
		r.hits = r.hits[:r.topK]
	}
}
