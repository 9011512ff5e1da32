package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/quasar/internal/core/domain"
	"github.com/custodia-labs/quasar/internal/core/ports/driven"
	"github.com/custodia-labs/quasar/internal/core/ports/driving"
)

// Ensure ChangeDetector implements the interface.
var _ driving.ChangeDetector = (*ChangeDetector)(nil)

// ChangeDetector fingerprints snapshot shape and compares it with the
// digest recorded after the last successful reindex.
//
// The digest covers dataset ids, row counts and column sets only, so edits
// to cell values that keep the shape do not trigger a reindex. The embedding
// model is tracked separately because it belongs to the index, not the data.
type ChangeDetector struct {
	store driven.FingerprintStore
}

// NewChangeDetector creates a change detector backed by store.
func NewChangeDetector(store driven.FingerprintStore) *ChangeDetector {
	return &ChangeDetector{store: store}
}

// Fingerprint returns the hex SHA-256 digest of snapshot's shape.
func (d *ChangeDetector) Fingerprint(snapshot *domain.Snapshot) domain.Fingerprint {
	h := sha256.New()
	if snapshot == nil {
		return domain.Fingerprint(hex.EncodeToString(h.Sum(nil)))
	}

	ids := make([]int, len(snapshot.Datasets))
	for i := range ids {
		ids[i] = i
	}
	sort.Slice(ids, func(a, b int) bool {
		return snapshot.Datasets[ids[a]].ID < snapshot.Datasets[ids[b]].ID
	})

	for _, i := range ids {
		ds := snapshot.Datasets[i]
		cols := make([]string, len(ds.Columns))
		copy(cols, ds.Columns)
		sort.Strings(cols)
		// Length-prefixed fields keep ("a","bc") distinct from ("ab","c").
		fmt.Fprintf(h, "%d:%s|%d|%d:%s\n", len(ds.ID), ds.ID, ds.RowCount(), len(cols), strings.Join(cols, "\x1f"))
	}
	return domain.Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// NeedsReindex is true when no digest is recorded or it differs from fp.
func (d *ChangeDetector) NeedsReindex(ctx context.Context, fp domain.Fingerprint) (bool, error) {
	last, err := d.Last(ctx)
	if err != nil {
		return false, err
	}
	return last.IsZero() || last != fp, nil
}

// Record stores fp. Call only after a full reindex succeeded.
func (d *ChangeDetector) Record(ctx context.Context, fp domain.Fingerprint) error {
	if err := d.store.SaveFingerprint(ctx, fp); err != nil {
		return fmt.Errorf("record fingerprint: %w", err)
	}
	return nil
}

// Last returns the recorded digest, or "" when none exists.
func (d *ChangeDetector) Last(ctx context.Context) (domain.Fingerprint, error) {
	fp, err := d.store.LoadFingerprint(ctx)
	if err != nil {
		return "", fmt.Errorf("load fingerprint: %w", err)
	}
	return fp, nil
}

// ModelChanged is true when the recorded model differs from model. An index
// recorded before models were tracked reports a change so it is rebuilt once.
func (d *ChangeDetector) ModelChanged(ctx context.Context, model domain.EmbeddingModel) (bool, error) {
	last, err := d.LastModel(ctx)
	if err != nil {
		return false, err
	}
	return last != model, nil
}

// RecordModel stores model. Call only after a full reindex succeeded.
func (d *ChangeDetector) RecordModel(ctx context.Context, model domain.EmbeddingModel) error {
	if err := d.store.SaveEmbeddingModel(ctx, model); err != nil {
		return fmt.Errorf("record embedding model: %w", err)
	}
	return nil
}

// LastModel returns the recorded model, or the zero model when none exists.
func (d *ChangeDetector) LastModel(ctx context.Context) (domain.EmbeddingModel, error) {
	model, err := d.store.LoadEmbeddingModel(ctx)
	if err != nil {
		return domain.EmbeddingModel{}, fmt.Errorf("load embedding model: %w", err)
	}
	return model, nil
}
