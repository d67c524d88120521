package sparse

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/errors"
)

func TestHashGolden(t *testing.T) {
	tests := map[string]uint32{
		"":                                     0x02cc5d05,
		"a":                                    0x550d7456,
		"example":                              0x6bd15b98,
		"cat":                                  0x0b1af42c,
		"dog":                                  0x79e3115b,
		"cats":                                 0xdf1e1530,
		"dogs":                                 0x17cafeba,
		"café":                                 0x3fdd39c1,
		"abcdefghijklmnopqrstuvwxyz0123456789": 0x42ae804d,
	}
	for token, want := range tests {
		if got := Hash(token); got != want {
			t.Errorf("Hash(%q) = %#08x, want %#08x", token, got, want)
		}
	}
}

func TestAggregate(t *testing.T) {
	f := Aggregate([]string{"b", "a", "b", "c", "b"})
	if f.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", f.Len())
	}
	var order []string
	f.Each(func(token string, count int) {
		order = append(order, token)
	})
	if !reflect.DeepEqual(order, []string{"b", "a", "c"}) {
		t.Errorf("Each order = %q", order)
	}
	if f.Raw("b") != 3 || f.Clamped("missing") != 0 {
		t.Errorf("unexpected counts %v", f.Map())
	}
}

func TestAggregateClamps(t *testing.T) {
	tokens := make([]string, 100)
	for i := range tokens {
		tokens[i] = "spam"
	}
	f := Aggregate(tokens)
	if f.Raw("spam") != 100 {
		t.Errorf("Raw() = %d, want 100", f.Raw("spam"))
	}
	if f.Clamped("spam") != MaxTermFrequency {
		t.Errorf("Clamped() = %d, want %d", f.Clamped("spam"), MaxTermFrequency)
	}
}

func TestBuild(t *testing.T) {
	vec, length, err := Build([]string{"cat", "cat", "cat", "dog"})
	if err != nil {
		t.Fatal(err)
	}
	if length != 4 {
		t.Errorf("length = %d, want 4", length)
	}
	want := Vector{{Index: Hash("cat"), Value: 3}, {Index: Hash("dog"), Value: 1}}
	if !reflect.DeepEqual(vec, want) {
		t.Errorf("Build() = %v, want %v", vec, want)
	}
}

func TestBuildEmpty(t *testing.T) {
	vec, length, err := Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 0 || length != 0 {
		t.Errorf("Build(nil) = %v, %d", vec, length)
	}
}

func TestBuildLengthCountsAllTokens(t *testing.T) {
	tokens := strings.Fields(strings.Repeat("x ", 20))
	vec, length, err := Build(tokens)
	if err != nil {
		t.Fatal(err)
	}
	if length != 20 {
		t.Errorf("length = %d, want 20", length)
	}
	if v, ok := vec.Lookup(Hash("x")); !ok || v != MaxTermFrequency {
		t.Errorf("value = %d, %v", v, ok)
	}
}

func TestBuildLengthPolicy(t *testing.T) {
	tokens := make([]string, MaxDocumentLength+1)
	for i := range tokens {
		tokens[i] = "t"
	}

	_, length, err := Assembler{Policy: Saturate}.Build(tokens)
	if err != nil {
		t.Fatalf("saturate: %v", err)
	}
	if length != MaxDocumentLength {
		t.Errorf("saturate length = %d", length)
	}

	_, _, err = Assembler{Policy: Strict}.Build(tokens)
	if !errors.Is(err, apperrors.ErrLengthOverflow) {
		t.Errorf("strict: expected ErrLengthOverflow, got %v", err)
	}

	_, length, err = Assembler{Policy: Strict}.Build(tokens[:MaxDocumentLength])
	if err != nil || length != MaxDocumentLength {
		t.Errorf("strict at limit: %d, %v", length, err)
	}
}

func TestBuildMergesCollisions(t *testing.T) {
	a := Assembler{hash: func(token string) uint32 {
		if token == "dog" {
			return 7
		}
		return 7 + uint32(len(token))
	}}
	// "cow" and "cat" both hash to 10 and share an entry.
	tokens := []string{"cat", "cat", "cat", "cat", "cat", "dog", "cow", "cow", "cow", "cow"}
	vec, length, err := a.Build(tokens)
	if err != nil {
		t.Fatal(err)
	}
	want := Vector{{Index: 10, Value: MaxTermFrequency}, {Index: 7, Value: 1}}
	if !reflect.DeepEqual(vec, want) {
		t.Errorf("Build() = %v, want %v", vec, want)
	}
	if length != 10 {
		t.Errorf("length = %d, want 10", length)
	}
}

func TestParseLengthPolicy(t *testing.T) {
	tests := map[string]LengthPolicy{"": Saturate, "saturate": Saturate, " Strict ": Strict}
	for in, want := range tests {
		got, err := ParseLengthPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseLengthPolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLengthPolicy("wrap"); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	vec, length, _ := Build([]string{"cat", "cat", "dog"})
	doc := ToDocument("doc-1", vec, length)
	if !reflect.DeepEqual(doc.Values, []float32{2, 1}) {
		t.Errorf("Values = %v", doc.Values)
	}
	back, backLen, err := FromDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back, vec) || backLen != length {
		t.Errorf("FromDocument() = %v, %d", back, backLen)
	}
}

func TestFromDocumentRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
	}{
		{"mismatched arrays", Document{Indices: []uint32{1, 2}, Values: []float32{1}}},
		{"duplicate index", Document{Indices: []uint32{1, 1}, Values: []float32{1, 2}}},
		{"zero value", Document{Indices: []uint32{1}, Values: []float32{0}}},
		{"value above cap", Document{Indices: []uint32{1}, Values: []float32{9}}},
		{"fractional value", Document{Indices: []uint32{1}, Values: []float32{1.5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := FromDocument(tt.doc); !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestSampler(t *testing.T) {
	var s Sampler
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Observe(Vector{{Index: 1, Value: 1}, {Index: 2, Value: 3}, {Index: 3, Value: 8}})
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	if snap.Vectors != 4 || snap.Entries != 12 {
		t.Fatalf("snapshot = %+v", snap)
	}
	want := [MaxTermFrequency]int64{12, 8, 8, 4, 4, 4, 4, 4}
	if snap.AtLeast != want {
		t.Errorf("AtLeast = %v, want %v", snap.AtLeast, want)
	}
	if got := snap.Saturated(); got != 4.0/12.0 {
		t.Errorf("Saturated() = %v", got)
	}
}
