package tokenizer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// defaultStopwordList is the built-in fallback used whenever no stopword
// source is configured or the configured one is missing.
const defaultStopwordList = "the is at which on a an and or of for in to"

// StopwordSet is the capability the filter needs from a stopword source.
type StopwordSet interface {
	Contains(word string) bool
}

// Stopwords is an immutable set of lowercase stopwords. It is safe for
// concurrent reads.
type Stopwords struct {
	words map[string]struct{}
}

// NewStopwords builds a set from words, lowercasing and trimming each one.
func NewStopwords(words []string) *Stopwords {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		set[w] = struct{}{}
	}
	return &Stopwords{words: set}
}

// DefaultStopwords returns the built-in stopword set.
func DefaultStopwords() *Stopwords {
	return NewStopwords(strings.Fields(defaultStopwordList))
}

// Contains reports whether word is a stopword. The caller lowercases.
func (s *Stopwords) Contains(word string) bool {
	if s == nil {
		return false
	}
	_, ok := s.words[word]
	return ok
}

// Len returns the number of stopwords in the set.
func (s *Stopwords) Len() int {
	if s == nil {
		return 0
	}
	return len(s.words)
}

// Words returns the stopwords in sorted order.
func (s *Stopwords) Words() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.words))
	for w := range s.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// ReadStopwords reads one stopword per line. Blank lines are skipped.
func ReadStopwords(r io.Reader) (*Stopwords, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			words = append(words, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stopwords: %w", err)
	}
	return NewStopwords(words), nil
}

// LoadStopwords loads the stopword file at path. An empty path or a missing
// file yields the default set; the fallback is logged but not fatal. Any
// other read failure is returned.
func LoadStopwords(path string, logger *slog.Logger) (*Stopwords, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		logger.Info("no stopwords file configured, using default stopwords")
		return DefaultStopwords(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("stopwords file not found, using default stopwords", "path", path)
			return DefaultStopwords(), nil
		}
		return nil, fmt.Errorf("opening stopwords file %s: %w", path, err)
	}
	defer f.Close()

	set, err := ReadStopwords(f)
	if err != nil {
		return nil, fmt.Errorf("loading stopwords file %s: %w", path, err)
	}
	logger.Info("stopwords loaded", "path", path, "count", set.Len())
	return set, nil
}
