package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

// keywordEmbedder maps each vocabulary word to one dimension. Words listed
// in synonyms share their canonical word's dimension.
type keywordEmbedder struct {
	vocab    []string
	synonyms map[string]string
	embedErr error
	// model overrides the reported model name when set.
	model string
	calls atomic.Int32
	// block, when set, is waited on (or ctx) before each batch returns.
	block chan struct{}
}

func newKeywordEmbedder(vocab ...string) *keywordEmbedder {
	return &keywordEmbedder{vocab: vocab, synonyms: map[string]string{}}
}

func (m *keywordEmbedder) vector(text string) []float32 {
	vec := make([]float32, len(m.vocab))
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,?!|:\"'")
		if canon, ok := m.synonyms[word]; ok {
			word = canon
		}
		for i, v := range m.vocab {
			if v == word {
				vec[i]++
			}
		}
	}
	return vec
}

func (m *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *keywordEmbedder) Dimensions() int { return len(m.vocab) }
func (m *keywordEmbedder) ModelName() string {
	if m.model != "" {
		return m.model
	}
	return "keyword-test"
}
func (m *keywordEmbedder) Ping(_ context.Context) error { return m.embedErr }
func (m *keywordEmbedder) Close() error { return nil }

// shortEmbedder returns one vector fewer than requested.
type shortEmbedder struct{ *keywordEmbedder }

func (m *shortEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := m.keywordEmbedder.EmbedBatch(ctx, texts)
	if err != nil || len(vecs) == 0 {
		return vecs, err
	}
	return vecs[:len(vecs)-1], nil
}

// mockDatasetProvider returns snapshots in order, repeating the last one.
type mockDatasetProvider struct {
	mu        sync.Mutex
	snapshots []*domain.Snapshot
	err       error
	loads     int
}

func (m *mockDatasetProvider) Load(_ context.Context) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.err != nil {
		return nil, m.err
	}
	idx := min(m.loads-1, len(m.snapshots)-1)
	return m.snapshots[idx], nil
}

func (m *mockDatasetProvider) Name() string { return "mock" }

func (m *mockDatasetProvider) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *mockDatasetProvider) loadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

// mockWatcher emits on demand.
type mockWatcher struct {
	ch  chan struct{}
	err error
}

func (m *mockWatcher) Watch(ctx context.Context) (<-chan struct{}, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-m.ch:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// staticSnapshots is a SnapshotSource that never reloads.
type staticSnapshots struct{ snapshot *domain.Snapshot }

func (s staticSnapshots) Current() *domain.Snapshot { return s.snapshot }

func (s staticSnapshots) Reload(_ context.Context) (*domain.Snapshot, error) {
	return s.snapshot, nil
}
