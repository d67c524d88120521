// Package stemmer reduces filtered tokens to their stems. Stemming is a
// pluggable capability selected by language tag. Every language uses a
// Snowball algorithm: github.com/kljensen/snowball where it has one, and the
// generated stemmers of github.com/blevesearch/snowballstem for the rest.
package stemmer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/arabic"
	"github.com/blevesearch/snowballstem/danish"
	"github.com/blevesearch/snowballstem/dutch"
	"github.com/blevesearch/snowballstem/finnish"
	"github.com/blevesearch/snowballstem/german"
	"github.com/blevesearch/snowballstem/italian"
	"github.com/blevesearch/snowballstem/portuguese"
	"github.com/blevesearch/snowballstem/romanian"
	"github.com/blevesearch/snowballstem/turkish"
	"github.com/kljensen/snowball"

	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/errors"
)

// DefaultLanguage is used when a caller leaves the language tag empty.
const DefaultLanguage = "english"

var supported = map[string]struct{}{
	"english":   {},
	"french":    {},
	"hungarian": {},
	"norwegian": {},
	"russian":   {},
	"spanish":   {},
	"swedish":   {},
}

// generated holds the languages kljensen/snowball does not cover.
var generated = map[string]func(*snowballstem.Env) bool{
	"arabic":     arabic.Stem,
	"danish":     danish.Stem,
	"dutch":      dutch.Stem,
	"finnish":    finnish.Stem,
	"german":     german.Stem,
	"italian":    italian.Stem,
	"portuguese": portuguese.Stem,
	"romanian":   romanian.Stem,
	"turkish":    turkish.Stem,
}

// Stemmer maps a lowercased token to its stem.
type Stemmer interface {
	Stem(word string) string
}

// New returns the stemmer for language, or the identity stemmer when
// disabled is true. The language is not validated when stemming is
// disabled.
func New(language string, disabled bool) (Stemmer, error) {
	if disabled {
		return Identity{}, nil
	}
	return NewSnowball(language)
}

// Languages returns the supported language tags in sorted order.
func Languages() []string {
	langs := make([]string, 0, len(supported)+len(generated))
	for lang := range supported {
		langs = append(langs, lang)
	}
	for lang := range generated {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Supported reports whether language names a stemming language. The tag is
// matched case-insensitively; an empty tag means DefaultLanguage.
func Supported(language string) bool {
	lang := strings.ToLower(strings.TrimSpace(language))
	if lang == "" {
		return true
	}
	if _, ok := generated[lang]; ok {
		return true
	}
	_, ok := supported[lang]
	return ok
}

// Identity returns every word unchanged.
type Identity struct{}

func (Identity) Stem(word string) string { return word }

// Snowball stems words with the Snowball algorithm for one language.
type Snowball struct {
	language string
	env      func(*snowballstem.Env) bool
}

// NewSnowball resolves language to a Snowball stemmer. Unknown languages
// fail with ErrUnsupportedLanguage.
func NewSnowball(language string) (*Snowball, error) {
	lang := strings.ToLower(strings.TrimSpace(language))
	if lang == "" {
		lang = DefaultLanguage
	}
	if stem, ok := generated[lang]; ok {
		return &Snowball{language: lang, env: stem}, nil
	}
	if _, ok := supported[lang]; !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedLanguage, language)
	}
	if _, err := snowball.Stem("probe", lang, true); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", apperrors.ErrUnsupportedLanguage, language, err)
	}
	return &Snowball{language: lang}, nil
}

// Language returns the resolved language tag.
func (s *Snowball) Language() string {
	return s.language
}

// Stem returns the Snowball stem of word. Stopwords of the Snowball list are
// stemmed too; stopword removal is the filter's job.
func (s *Snowball) Stem(word string) string {
	if s.env != nil {
		env := snowballstem.NewEnv(word)
		s.env(env)
		return env.Current()
	}
	stemmed, err := snowball.Stem(word, s.language, true)
	if err != nil {
		return ""
	}
	return stemmed
}
