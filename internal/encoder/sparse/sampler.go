package sparse

import "sync/atomic"

// Sampler tracks how term frequencies are distributed across encoded
// vectors: for each threshold t in 1..MaxTermFrequency it counts how many
// entries had a value of at least t. It is safe for concurrent use.
type Sampler struct {
	vectors atomic.Int64
	entries atomic.Int64
	atLeast [MaxTermFrequency]atomic.Int64
}

// SamplerSnapshot is a point-in-time copy of a Sampler.
type SamplerSnapshot struct {
	Vectors int64 `json:"vectors"`
	Entries int64 `json:"entries"`
	// AtLeast[i] counts entries whose value was >= i+1.
	AtLeast [MaxTermFrequency]int64 `json:"atLeast"`
}

// Observe records every entry of vec.
func (s *Sampler) Observe(vec Vector) {
	s.vectors.Add(1)
	s.entries.Add(int64(len(vec)))
	for _, e := range vec {
		for t := 0; t < int(e.Value) && t < MaxTermFrequency; t++ {
			s.atLeast[t].Add(1)
		}
	}
}

func (s *Sampler) Snapshot() SamplerSnapshot {
	snap := SamplerSnapshot{
		Vectors: s.vectors.Load(),
		Entries: s.entries.Load(),
	}
	for i := range s.atLeast {
		snap.AtLeast[i] = s.atLeast[i].Load()
	}
	return snap
}

// Saturated reports the fraction of observed entries that hit
// MaxTermFrequency.
func (s SamplerSnapshot) Saturated() float64 {
	if s.Entries == 0 {
		return 0
	}
	return float64(s.AtLeast[MaxTermFrequency-1]) / float64(s.Entries)
}
