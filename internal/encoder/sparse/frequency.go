package sparse

// MaxTermFrequency caps the count any single term contributes to a vector.
const MaxTermFrequency = 8

// Frequencies counts occurrences of each distinct token and remembers the
// order in which tokens were first seen. Counts are unbounded while
// accumulating; clamping happens on readout.
type Frequencies struct {
	order  []string
	counts map[string]int
}

// Aggregate counts every token in tokens.
func Aggregate(tokens []string) *Frequencies {
	f := &Frequencies{
		order:  make([]string, 0, len(tokens)),
		counts: make(map[string]int, len(tokens)),
	}
	for _, token := range tokens {
		if _, seen := f.counts[token]; !seen {
			f.order = append(f.order, token)
		}
		f.counts[token]++
	}
	return f
}

// Len returns the number of distinct tokens.
func (f *Frequencies) Len() int {
	return len(f.order)
}

// Raw returns the unclamped count of token.
func (f *Frequencies) Raw(token string) int {
	return f.counts[token]
}

// Clamped returns the count of token saturated at MaxTermFrequency. Absent
// tokens report zero.
func (f *Frequencies) Clamped(token string) int {
	return clamp(f.counts[token])
}

// Each calls fn for every distinct token in first-occurrence order with its
// clamped count.
func (f *Frequencies) Each(fn func(token string, count int)) {
	for _, token := range f.order {
		fn(token, clamp(f.counts[token]))
	}
}

// Map returns the clamped counts keyed by token.
func (f *Frequencies) Map() map[string]int {
	out := make(map[string]int, len(f.counts))
	for token, n := range f.counts {
		out[token] = clamp(n)
	}
	return out
}

func clamp(n int) int {
	if n > MaxTermFrequency {
		return MaxTermFrequency
	}
	return n
}
