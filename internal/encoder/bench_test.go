package encoder

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

const benchText = `Information retrieval systems form the backbone of modern search
infrastructure. These systems combine tokenization, stemming, and stop word removal
to normalize text into searchable terms. BM25 ranking considers term frequency,
document length normalization, and inverse document frequency.`

func BenchmarkEncode(b *testing.B) {
	engine, err := NewEngine(Options{})
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.SetBytes(int64(len(benchText)))
	for i := 0; i < b.N; i++ {
		if _, err := engine.Encode(benchText); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEncodeBatch(b *testing.B) {
	for _, workers := range []int{1, 4, 8} {
		b.Run(fmt.Sprintf("workers_%d", workers), func(b *testing.B) {
			engine, err := NewEngine(Options{Workers: workers})
			if err != nil {
				b.Fatal(err)
			}
			docs := make([]Input, 64)
			for i := range docs {
				docs[i] = Input{ID: fmt.Sprintf("doc-%d", i), Text: strings.Repeat(benchText, i%4+1)}
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := engine.EncodeBatch(context.Background(), docs); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
