package tokenizer

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxTokenLength is the longest token, in code points, kept by the
// filter when no limit is configured.
const DefaultMaxTokenLength = 40

// Filter drops punctuation tokens, stopwords and tokens longer than
// maxLength code points, in that order, and returns the survivors
// lowercased. A token exactly maxLength long is kept. A nil stopword set
// filters nothing; maxLength <= 0 means DefaultMaxTokenLength.
func Filter(tokens []string, stopwords StopwordSet, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = DefaultMaxTokenLength
	}
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		lower := strings.ToLower(token)
		if IsPunctuationToken(token) {
			continue
		}
		if stopwords != nil && stopwords.Contains(lower) {
			continue
		}
		if utf8.RuneCountInString(token) > maxLength {
			continue
		}
		out = append(out, lower)
	}
	return out
}
