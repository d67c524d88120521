package encoder

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder/stemmer"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/errors"
)

// Key identifies the per-request settings that change how text is encoded.
type Key struct {
	Language        string
	MaxTokenLength  int
	DisableStemming bool
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d/%t", k.Language, k.MaxTokenLength, k.DisableStemming)
}

// Registry lazily creates one Engine per Key and shares it across callers.
// Stopwords, length policy, workers and metrics come from the base Options.
type Registry struct {
	base    Options
	def     *Engine
	engines map[Key]*Engine
	mu      sync.RWMutex
	logger  *slog.Logger
}

// NewRegistry creates a Registry and eagerly builds the engine for base, so
// a misconfigured default language fails at startup.
func NewRegistry(base Options) (*Registry, error) {
	r := &Registry{
		base:    base,
		engines: make(map[Key]*Engine),
		logger:  slog.Default().With("component", "encoder-registry"),
	}
	def, err := r.Get(r.DefaultKey())
	if err != nil {
		return nil, err
	}
	r.def = def
	return r, nil
}

// DefaultKey returns the key of the base configuration.
func (r *Registry) DefaultKey() Key {
	return r.normalize(Key{DisableStemming: r.base.DisableStemming})
}

// Resolve builds the key for per-request overrides; zero values fall back
// to the base configuration.
func (r *Registry) Resolve(language string, maxTokenLength int, disableStemming bool) Key {
	return r.normalize(Key{
		Language:        language,
		MaxTokenLength:  maxTokenLength,
		DisableStemming: disableStemming || r.base.DisableStemming,
	})
}

// Get returns the Engine for k, creating it on first use. Unknown languages
// fail with ErrUnsupportedLanguage and are not cached, whether or not
// stemming is disabled.
func (r *Registry) Get(k Key) (*Engine, error) {
	k = r.normalize(k)
	if !stemmer.Supported(k.Language) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedLanguage, k.Language)
	}

	r.mu.RLock()
	engine, ok := r.engines[k]
	r.mu.RUnlock()
	if ok {
		return engine, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if engine, ok := r.engines[k]; ok {
		return engine, nil
	}
	opts := r.base
	opts.Language = k.Language
	opts.MaxTokenLength = k.MaxTokenLength
	opts.DisableStemming = k.DisableStemming
	engine, err := NewEngine(opts)
	if err != nil {
		return nil, err
	}
	r.engines[k] = engine
	r.logger.Info("encoder engine created", "key", k.String(), "engines", len(r.engines))
	return engine, nil
}

// Default returns the engine for the base configuration.
func (r *Registry) Default() *Engine {
	return r.def
}

// Stats returns the statistics of every engine created so far, ordered by key.
func (r *Registry) Stats() []Stats {
	r.mu.RLock()
	keys := make([]Key, 0, len(r.engines))
	engines := make(map[Key]*Engine, len(r.engines))
	for k, engine := range r.engines {
		keys = append(keys, k)
		engines[k] = engine
	}
	r.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})

	out := make([]Stats, 0, len(keys))
	for _, k := range keys {
		out = append(out, engines[k].Stats())
	}
	return out
}

// Len returns the number of engines created.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.engines)
}

func (r *Registry) normalize(k Key) Key {
	k.Language = strings.ToLower(strings.TrimSpace(k.Language))
	if k.Language == "" {
		k.Language = strings.ToLower(strings.TrimSpace(r.base.Language))
	}
	if k.Language == "" {
		k.Language = stemmer.DefaultLanguage
	}
	if k.MaxTokenLength <= 0 {
		k.MaxTokenLength = r.base.MaxTokenLength
	}
	if k.MaxTokenLength <= 0 {
		k.MaxTokenLength = tokenizer.DefaultMaxTokenLength
	}
	return k
}
