package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/quasar/internal/core/domain"
	"github.com/custodia-labs/quasar/internal/core/ports/driving"
)

// Ensure RowEncoder implements the interface.
var _ driving.RowEncoder = (*RowEncoder)(nil)

// fieldSeparator joins "column: value" segments in document text.
const fieldSeparator = " | "

// RowEncoder serialises records into document text plus filterable metadata.
// It holds no state and is safe for concurrent use.
type RowEncoder struct{}

// NewRowEncoder creates a row encoder.
func NewRowEncoder() *RowEncoder {
	return &RowEncoder{}
}

// Encode serialises one record. Column roles are resolved from the record's header.
func (e *RowEncoder) Encode(record domain.Record) (string, map[string]string, error) {
	return encodeRecord(record, resolveColumnRoles(record.Columns), nil)
}

// EncodeDataset encodes every row, resolving column roles and the title period once.
func (e *RowEncoder) EncodeDataset(dataset domain.Dataset) ([]domain.Document, int) {
	roles := resolveColumnRoles(dataset.Columns)
	fallback := periodFromTitle(dataset.Title)

	docs := make([]domain.Document, 0, len(dataset.Records))
	skipped := 0
	for _, rec := range dataset.Records {
		text, meta, err := encodeRecord(rec, roles, fallback)
		if err != nil {
			skipped++
			continue
		}
		docs = append(docs, domain.Document{
			ID:        domain.DocumentID(rec.DatasetID, rec.RowIndex),
			DatasetID: rec.DatasetID,
			RowIndex:  rec.RowIndex,
			Text:      text,
			Metadata:  meta,
		})
	}
	return docs, skipped
}

func encodeRecord(rec domain.Record, roles columnRoles, fallback *domain.Period) (string, map[string]string, error) {
	ordered := orderColumns(rec.Columns, roles)

	parts := make([]string, 0, len(ordered))
	for _, col := range ordered {
		if isInternalColumn(col) {
			continue
		}
		v, ok := rec.Values[col]
		if !ok {
			continue
		}
		s := formatValue(v)
		if s == "" {
			continue
		}
		parts = append(parts, col+": "+s)
	}
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("dataset %s row %d: %w", rec.DatasetID, rec.RowIndex, domain.ErrEncoding)
	}

	return strings.Join(parts, fieldSeparator), recordMetadata(rec, roles, fallback), nil
}

// orderColumns returns priority-role columns first, then the rest in header order.
func orderColumns(columns []string, roles columnRoles) []string {
	ordered := make([]string, 0, len(columns))
	seen := make(map[string]bool, len(columns))
	for _, role := range priorityRoles {
		if col, ok := roles.column(role); ok && !seen[col] {
			ordered = append(ordered, col)
			seen[col] = true
		}
	}
	for _, col := range columns {
		if !seen[col] {
			ordered = append(ordered, col)
			seen[col] = true
		}
	}
	return ordered
}

// recordMetadata copies the whitelisted fields. Absent fields are omitted.
func recordMetadata(rec domain.Record, roles columnRoles, fallback *domain.Period) map[string]string {
	meta := make(map[string]string, 5)
	if p, ok := roles.period(rec, fallback); ok {
		meta[domain.MetaPeriod] = p.String()
	}
	for _, f := range []struct {
		key  string
		role columnRole
	}{
		{domain.MetaProduct, roleProduct},
		{domain.MetaCategory, roleCategory},
		{domain.MetaRegion, roleRegion},
		{domain.MetaTransactionID, roleTransaction},
	} {
		if s, ok := roles.text(rec, f.role); ok {
			meta[f.key] = s
		}
	}
	return meta
}

func isInternalColumn(name string) bool {
	return strings.HasPrefix(strings.TrimSpace(name), "_")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
