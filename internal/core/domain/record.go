package domain

import (
	"sort"
	"time"
)

// Record is one row of a source tabular dataset.
// Records are immutable once read and superseded wholesale on each reload.
type Record struct {
	// DatasetID identifies the owning dataset (e.g. "<spreadsheet>::<worksheet>").
	DatasetID string

	// RowIndex is the zero-based position of the row within its dataset.
	RowIndex int

	// Columns is the header order of the owning dataset.
	// It is shared between all records of the dataset and must not be modified.
	Columns []string

	// Values maps column name to a scalar value.
	// Supported types are string, float64, int, int64, bool and time.Time.
	Values map[string]any
}

// Value returns the value stored for column and whether it was present.
func (r Record) Value(column string) (any, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// Dataset is a uniform-schema set of rows delivered by a dataset provider.
type Dataset struct {
	// ID is the stable dataset identifier.
	ID string

	// Title is a human-readable name (worksheet title, file name).
	// Used to infer a period when the rows carry no date column.
	Title string

	// Columns is the header order.
	Columns []string

	// Records are the dataset rows in positional order.
	Records []Record
}

// RowCount returns the number of rows in the dataset.
func (d Dataset) RowCount() int {
	return len(d.Records)
}

// Snapshot is a fully loaded, self-consistent view of every dataset.
// A Snapshot is never mutated after construction; reloads build a new one.
type Snapshot struct {
	// Datasets are ordered by ID.
	Datasets []Dataset

	// LoadedAt is when the provider finished loading the snapshot.
	LoadedAt time.Time
}

// NewSnapshot builds a snapshot with datasets ordered by ID.
// The datasets slice is copied so later changes by the caller are not observed.
func NewSnapshot(datasets []Dataset, loadedAt time.Time) *Snapshot {
	sorted := make([]Dataset, len(datasets))
	copy(sorted, datasets)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	return &Snapshot{
		Datasets: sorted,
		LoadedAt: loadedAt,
	}
}

// RecordCount returns the total number of rows across all datasets.
func (s *Snapshot) RecordCount() int {
	if s == nil {
		return 0
	}
	total := 0
	for i := range s.Datasets {
		total += s.Datasets[i].RowCount()
	}
	return total
}

// Dataset returns the dataset with the given ID.
func (s *Snapshot) Dataset(id string) (*Dataset, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Datasets {
		if s.Datasets[i].ID == id {
			return &s.Datasets[i], true
		}
	}
	return nil, false
}
