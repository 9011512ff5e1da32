package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// documentIDSeparator joins the dataset ID and row index in a document ID.
const documentIDSeparator = "::"

// Document is the indexed unit derived from one Record.
// Documents are owned exclusively by the index store.
type Document struct {
	// ID is a deterministic function of DatasetID and RowIndex.
	ID string

	// DatasetID links back to the source dataset.
	DatasetID string

	// RowIndex links back to the source row.
	RowIndex int

	// Text is the canonical "column: value" serialisation of the row.
	Text string

	// Embedding is the vector representation for semantic search.
	Embedding []float32

	// Metadata holds the filterable subset of the row's columns.
	Metadata map[string]string
}

// ScoredDocument is a document returned by a similarity query.
type ScoredDocument struct {
	// Document is the matched document.
	Document Document

	// Score is the cosine similarity between the query vector and the document (-1..1).
	Score float64
}

// Distance returns the cosine distance (1 - similarity).
func (d ScoredDocument) Distance() float64 {
	return 1 - d.Score
}

// DocumentID returns the stable document ID for a dataset row.
// Row indexes are zero-padded so lexical ordering follows row order.
func DocumentID(datasetID string, rowIndex int) string {
	return fmt.Sprintf("%s%s%06d", datasetID, documentIDSeparator, rowIndex)
}

// ParseDocumentID recovers the dataset ID and row index from a document ID.
func ParseDocumentID(id string) (datasetID string, rowIndex int, err error) {
	idx := strings.LastIndex(id, documentIDSeparator)
	if idx < 0 {
		return "", 0, fmt.Errorf("%w: malformed document id %q", ErrInvalidArgument, id)
	}
	rowIndex, err = strconv.Atoi(id[idx+len(documentIDSeparator):])
	if err != nil {
		return "", 0, fmt.Errorf("%w: malformed row index in %q", ErrInvalidArgument, id)
	}
	return id[:idx], rowIndex, nil
}

// Metadata keys copied from a record for filterable querying.
const (
	MetaPeriod        = "period"
	MetaProduct       = "product"
	MetaCategory      = "category"
	MetaRegion        = "region"
	MetaTransactionID = "transaction_id"
)
