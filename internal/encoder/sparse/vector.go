// Package sparse assembles stemmed tokens into BM25-ready sparse vectors:
// per-term counts clamped to [1, 8] and indexed by a fixed 32-bit hash of
// the term, plus the document's token count.
package sparse

import (
	"fmt"
	"math"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/errors"
)

// MaxDocumentLength is the largest document length a vector can carry.
const MaxDocumentLength = math.MaxUint16

// Entry is one non-zero dimension of a sparse vector.
type Entry struct {
	Index uint32 `json:"index"`
	Value uint8  `json:"value"`
}

// Vector is a sparse vector ordered by the first occurrence of each term.
// Indices are unique.
type Vector []Entry

// Indices returns the entry indices in vector order.
func (v Vector) Indices() []uint32 {
	out := make([]uint32, len(v))
	for i, e := range v {
		out[i] = e.Index
	}
	return out
}

// Values returns the entry values in vector order as float32 weights.
func (v Vector) Values() []float32 {
	out := make([]float32, len(v))
	for i, e := range v {
		out[i] = float32(e.Value)
	}
	return out
}

// Lookup returns the value stored for index, if any.
func (v Vector) Lookup(index uint32) (uint8, bool) {
	for _, e := range v {
		if e.Index == index {
			return e.Value, true
		}
	}
	return 0, false
}

// LengthPolicy decides what happens when a document has more tokens than
// MaxDocumentLength.
type LengthPolicy int

const (
	// Saturate reports MaxDocumentLength for longer documents.
	Saturate LengthPolicy = iota
	// Strict fails with ErrLengthOverflow for longer documents.
	Strict
)

func (p LengthPolicy) String() string {
	switch p {
	case Saturate:
		return "saturate"
	case Strict:
		return "strict"
	default:
		return "unknown"
	}
}

// ParseLengthPolicy parses "saturate" or "strict". Empty means Saturate.
func ParseLengthPolicy(s string) (LengthPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "saturate":
		return Saturate, nil
	case "strict":
		return Strict, nil
	default:
		return Saturate, fmt.Errorf("%w: unknown length policy %q", apperrors.ErrInvalidInput, s)
	}
}

// Assembler turns token sequences into sparse vectors. The zero value uses
// the Saturate policy and Hash.
type Assembler struct {
	Policy LengthPolicy

	hash func(string) uint32
}

// Build aggregates tokens, clamps each count and hashes each distinct term.
// Distinct terms whose hashes collide share one entry: their counts are
// summed and clamped again. The returned length counts every token in
// tokens, not the distinct ones.
func (a Assembler) Build(tokens []string) (Vector, uint16, error) {
	length, err := a.documentLength(len(tokens))
	if err != nil {
		return nil, 0, err
	}
	hash := a.hash
	if hash == nil {
		hash = Hash
	}

	freq := Aggregate(tokens)
	vec := make(Vector, 0, freq.Len())
	positions := make(map[uint32]int, freq.Len())
	raw := make([]int, 0, freq.Len())
	for _, token := range freq.order {
		idx := hash(token)
		n := freq.counts[token]
		if pos, collided := positions[idx]; collided {
			raw[pos] += n
			vec[pos].Value = uint8(clamp(raw[pos]))
			continue
		}
		positions[idx] = len(vec)
		raw = append(raw, n)
		vec = append(vec, Entry{Index: idx, Value: uint8(clamp(n))})
	}
	return vec, length, nil
}

func (a Assembler) documentLength(n int) (uint16, error) {
	if n <= MaxDocumentLength {
		return uint16(n), nil
	}
	if a.Policy == Strict {
		return 0, apperrors.Newf(apperrors.ErrLengthOverflow, 0,
			"%d tokens exceeds the maximum document length of %d", n, MaxDocumentLength)
	}
	return MaxDocumentLength, nil
}

// Build assembles tokens with the default Assembler.
func Build(tokens []string) (Vector, uint16, error) {
	return Assembler{}.Build(tokens)
}
