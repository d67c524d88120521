// Package tokenizer turns raw text into the stemmed token sequence that the
// sparse vector is built from. It cleans and lowercases input, splits on
// non-word boundaries, drops punctuation, stopwords and overlong tokens, and
// stems whatever survives.
package tokenizer

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder/stemmer"
)

// Options configures a Pipeline.
type Options struct {
	// Language selects the stemmer. Empty means stemmer.DefaultLanguage.
	Language string
	// MaxTokenLength is the longest token kept, in code points. Zero means
	// DefaultMaxTokenLength.
	MaxTokenLength int
	// DisableStemming passes filtered tokens through unchanged.
	DisableStemming bool
	// Stopwords overrides the stopword source. Nil means the default set.
	Stopwords StopwordSet
}

// Pipeline is a configured tokenizer. It holds only read-only state and is
// safe for concurrent use.
type Pipeline struct {
	stemmer        stemmer.Stemmer
	stopwords      StopwordSet
	maxTokenLength int
	language       string
}

// New resolves the stemmer and stopwords for opts. An unknown language fails
// with ErrUnsupportedLanguage.
func New(opts Options) (*Pipeline, error) {
	language := opts.Language
	if language == "" {
		language = stemmer.DefaultLanguage
	}
	st, err := stemmer.New(language, opts.DisableStemming)
	if err != nil {
		return nil, fmt.Errorf("creating stemmer: %w", err)
	}
	stopwords := opts.Stopwords
	if stopwords == nil {
		stopwords = DefaultStopwords()
	}
	maxLen := opts.MaxTokenLength
	if maxLen <= 0 {
		maxLen = DefaultMaxTokenLength
	}
	return &Pipeline{
		stemmer:        st,
		stopwords:      stopwords,
		maxTokenLength: maxLen,
		language:       language,
	}, nil
}

// Process runs text through clean, normalize, filter and stem. Tokens whose
// stem is empty are dropped.
func (p *Pipeline) Process(text string) []string {
	tokens := Filter(Normalize(Clean(text)), p.stopwords, p.maxTokenLength)
	out := tokens[:0]
	for _, token := range tokens {
		stemmed := p.stemmer.Stem(token)
		if stemmed == "" {
			continue
		}
		out = append(out, stemmed)
	}
	return out
}

// Language returns the configured language tag.
func (p *Pipeline) Language() string {
	return p.language
}

// Stopwords returns the stopword set the pipeline filters with.
func (p *Pipeline) Stopwords() StopwordSet {
	return p.stopwords
}

// MaxTokenLength returns the effective token length limit.
func (p *Pipeline) MaxTokenLength() int {
	return p.maxTokenLength
}

// Process is a one-shot helper that builds a Pipeline for opts and runs text
// through it. Callers encoding many documents should reuse a Pipeline.
func Process(text string, opts Options) ([]string, error) {
	p, err := New(opts)
	if err != nil {
		return nil, err
	}
	return p.Process(text), nil
}
