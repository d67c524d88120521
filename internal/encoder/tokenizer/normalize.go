package tokenizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// isWordRune matches the Unicode-aware word class: letters, numbers and
// the underscore.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// Clean replaces every rune that is neither a word rune nor whitespace with
// a space, so punctuation glued to words ("state-of-the-art") splits them.
func Clean(text string) string {
	return strings.Map(func(r rune) rune {
		if isWordRune(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, text)
}

// Normalize lowercases text and splits it on every run of non-word runes.
// Running it again over its own joined output yields the same tokens.
func Normalize(text string) []string {
	// A Caser carries state and must not be shared between goroutines.
	lowered := cases.Lower(language.Und).String(text)
	return strings.FieldsFunc(lowered, func(r rune) bool {
		return !isWordRune(r)
	})
}
