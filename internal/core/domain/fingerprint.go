package domain

import "fmt"

// Fingerprint is a hex-encoded digest of a snapshot's shape.
type Fingerprint string

// String returns the string representation.
func (f Fingerprint) String() string {
	return string(f)
}

// IsZero reports whether no fingerprint is set.
func (f Fingerprint) IsZero() bool {
	return f == ""
}

// Short returns the first 12 characters for display.
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}
	return string(f[:12])
}

// EmbeddingModel identifies the model whose vectors fill an index.
// Vectors from different models are not comparable even at equal size.
type EmbeddingModel struct {
	Name       string
	Dimensions int
}

// IsZero reports whether no model is set.
func (m EmbeddingModel) IsZero() bool {
	return m.Name == "" && m.Dimensions == 0
}

// String returns "name (N dims)", or "" for the zero model.
func (m EmbeddingModel) String() string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s (%d dims)", m.Name, m.Dimensions)
}
