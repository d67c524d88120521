package sparse

import (
	"fmt"
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/errors"
)

// Document is the wire form of an encoded document: parallel index and
// value arrays plus the document length. It is what the API returns and what
// the worker publishes to the sparse vector topic.
type Document struct {
	ID      string    `json:"id,omitempty"`
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
	Length  uint16    `json:"length"`
}

// ToDocument converts a vector into its wire form.
func ToDocument(id string, vec Vector, length uint16) Document {
	return Document{
		ID:      id,
		Indices: vec.Indices(),
		Values:  vec.Values(),
		Length:  length,
	}
}

// FromDocument validates a wire document and converts it back into a vector.
// The arrays must be the same length, indices must be unique and every value
// must be an integer in [1, MaxTermFrequency].
func FromDocument(doc Document) (Vector, uint16, error) {
	if len(doc.Indices) != len(doc.Values) {
		return nil, 0, fmt.Errorf("%w: %d indices but %d values",
			apperrors.ErrInvalidInput, len(doc.Indices), len(doc.Values))
	}
	vec := make(Vector, len(doc.Indices))
	seen := make(map[uint32]struct{}, len(doc.Indices))
	for i, idx := range doc.Indices {
		if _, dup := seen[idx]; dup {
			return nil, 0, fmt.Errorf("%w: duplicate index %d", apperrors.ErrInvalidInput, idx)
		}
		seen[idx] = struct{}{}

		v := doc.Values[i]
		if v != float32(math.Trunc(float64(v))) || v < 1 || v > MaxTermFrequency {
			return nil, 0, fmt.Errorf("%w: value %v at position %d out of range",
				apperrors.ErrInvalidInput, v, i)
		}
		vec[i] = Entry{Index: idx, Value: uint8(v)}
	}
	return vec, doc.Length, nil
}
