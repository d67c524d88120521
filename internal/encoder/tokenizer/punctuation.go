package tokenizer

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/rangetable"
)

// punctuation is every code point whose general category starts with "P".
// It is built once; lookups never reclassify.
var punctuation = rangetable.Merge(
	unicode.Pc,
	unicode.Pd,
	unicode.Pe,
	unicode.Pf,
	unicode.Pi,
	unicode.Po,
	unicode.Ps,
)

var asciiPunctuation = func() (tbl [utf8.RuneSelf]bool) {
	for r := rune(0); r < utf8.RuneSelf; r++ {
		tbl[r] = unicode.Is(punctuation, r)
	}
	return tbl
}()

// IsPunctuation reports whether r belongs to a Unicode punctuation category
// (Pc, Pd, Pe, Pf, Pi, Po or Ps).
func IsPunctuation(r rune) bool {
	if r >= 0 && r < utf8.RuneSelf {
		return asciiPunctuation[r]
	}
	return unicode.Is(punctuation, r)
}

// IsPunctuationToken reports whether tok is a single punctuation code point.
func IsPunctuationToken(tok string) bool {
	r, size := utf8.DecodeRuneInString(tok)
	if size == 0 || size != len(tok) {
		return false
	}
	if r == utf8.RuneError && size == 1 {
		return false
	}
	return IsPunctuation(r)
}
