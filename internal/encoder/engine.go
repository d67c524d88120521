// Package encoder ties the tokenizer and the sparse vector assembler into an
// Engine that encodes documents and keeps corpus statistics about what it
// has encoded.
package encoder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder/sparse"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/metrics"
)

// DefaultWorkers bounds EncodeBatch when Options.Workers is unset.
const DefaultWorkers = 8

// Options configures an Engine.
type Options struct {
	Language        string
	MaxTokenLength  int
	DisableStemming bool
	Stopwords       tokenizer.StopwordSet
	LengthPolicy    sparse.LengthPolicy
	Workers         int
	// Metrics is optional.
	Metrics *metrics.Metrics
}

// OptionsFromConfig maps the encoder config section onto Options. Stopwords
// are loaded separately since they involve I/O.
func OptionsFromConfig(cfg config.EncoderConfig, stopwords tokenizer.StopwordSet) (Options, error) {
	policy, err := sparse.ParseLengthPolicy(cfg.LengthPolicy)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Language:        cfg.Language,
		MaxTokenLength:  cfg.MaxTokenLength,
		DisableStemming: cfg.DisableStemming,
		Stopwords:       stopwords,
		LengthPolicy:    policy,
		Workers:         cfg.Workers,
	}, nil
}

// Result is one encoded document.
type Result struct {
	Tokens []string
	Vector sparse.Vector
	Length uint16
}

// Document returns the wire form of r.
func (r *Result) Document(id string) sparse.Document {
	return sparse.ToDocument(id, r.Vector, r.Length)
}

// Input is one document submitted to EncodeBatch.
type Input struct {
	ID   string
	Text string
}

// Stats summarizes everything an Engine has encoded since it was created.
type Stats struct {
	Language     string                 `json:"language"`
	Documents    int64                  `json:"documents"`
	TotalTokens  int64                  `json:"total_tokens"`
	AvgDocLength float64                `json:"avg_doc_length"`
	Distribution sparse.SamplerSnapshot `json:"distribution"`
	// Saturated is the fraction of entries clamped at MaxTermFrequency.
	Saturated float64 `json:"saturated"`
}

// Engine encodes text into sparse vectors. It is safe for concurrent use.
type Engine struct {
	pipeline  *tokenizer.Pipeline
	assembler sparse.Assembler
	workers   int
	metrics   *metrics.Metrics
	logger    *slog.Logger

	// fingerprint identifies every setting that changes the output.
	fingerprint string

	sampler     sparse.Sampler
	totalDocs   atomic.Int64
	totalTokens atomic.Int64
}

// NewEngine builds the tokenizer pipeline for opts. An unknown language fails
// with ErrUnsupportedLanguage.
func NewEngine(opts Options) (*Engine, error) {
	pipeline, err := tokenizer.New(tokenizer.Options{
		Language:        opts.Language,
		MaxTokenLength:  opts.MaxTokenLength,
		DisableStemming: opts.DisableStemming,
		Stopwords:       opts.Stopwords,
	})
	if err != nil {
		return nil, fmt.Errorf("creating tokenizer pipeline: %w", err)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%t\x00%s\x00",
		pipeline.Language(), pipeline.MaxTokenLength(), opts.DisableStemming, opts.LengthPolicy)
	writeStopwords(h, pipeline.Stopwords())
	sum := h.Sum(nil)

	return &Engine{
		pipeline:    pipeline,
		assembler:   sparse.Assembler{Policy: opts.LengthPolicy},
		workers:     workers,
		metrics:     opts.Metrics,
		fingerprint: hex.EncodeToString(sum[:16]),
		logger: slog.Default().With(
			"component", "encoder",
			"language", pipeline.Language(),
		),
	}, nil
}

// Fingerprint identifies the engine's effective settings: language, token
// length limit, stemming, length policy and stopword set. Engines with equal
// fingerprints produce identical vectors.
func (e *Engine) Fingerprint() string {
	return e.fingerprint
}

// writeStopwords feeds the stopword list into h. Sets that cannot list their
// words contribute their type only.
func writeStopwords(h hash.Hash, set tokenizer.StopwordSet) {
	lister, ok := set.(interface{ Words() []string })
	if !ok {
		fmt.Fprintf(h, "%T", set)
		return
	}
	for _, w := range lister.Words() {
		h.Write([]byte(w))
		h.Write([]byte{'\n'})
	}
}

// Language returns the stemming language of the engine.
func (e *Engine) Language() string {
	return e.pipeline.Language()
}

// Encode tokenizes text and assembles its sparse vector. Empty or noise-only
// text yields an empty vector with length zero.
func (e *Engine) Encode(text string) (*Result, error) {
	start := time.Now()
	tokens := e.pipeline.Process(text)
	vec, length, err := e.assembler.Build(tokens)
	if err != nil {
		e.recordError(err)
		return nil, err
	}
	e.record(vec, length, time.Since(start))
	return &Result{Tokens: tokens, Vector: vec, Length: length}, nil
}

// EncodeDocument encodes text on behalf of docID.
func (e *Engine) EncodeDocument(docID string, text string) (*Result, error) {
	res, err := e.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("encoding document %s: %w", docID, err)
	}
	e.logger.Debug("document encoded",
		"doc_id", docID,
		"doc_length", res.Length,
		"unique_terms", len(res.Vector),
	)
	return res, nil
}

// EncodeBatch encodes docs concurrently with at most Workers in flight.
// Results are in input order. The first failure cancels the batch; ctx
// cancellation stops scheduling new documents.
func (e *Engine) EncodeBatch(ctx context.Context, docs []Input) ([]*Result, error) {
	results := make([]*Result, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, doc := range docs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.EncodeDocument(doc.ID, doc.Text)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	err := g.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w: batch interrupted: %v", apperrors.ErrTimeout, ctxErr)
	}
	if err != nil {
		return nil, err
	}
	e.logger.Info("batch encoded", "documents", len(docs))
	return results, nil
}

// Stats returns a snapshot of the engine's corpus statistics.
func (e *Engine) Stats() Stats {
	docs := e.totalDocs.Load()
	tokens := e.totalTokens.Load()
	var avg float64
	if docs > 0 {
		avg = float64(tokens) / float64(docs)
	}
	dist := e.sampler.Snapshot()
	return Stats{
		Language:     e.Language(),
		Documents:    docs,
		TotalTokens:  tokens,
		AvgDocLength: avg,
		Distribution: dist,
		Saturated:    dist.Saturated(),
	}
}

func (e *Engine) record(vec sparse.Vector, length uint16, elapsed time.Duration) {
	e.totalDocs.Add(1)
	e.totalTokens.Add(int64(length))
	e.sampler.Observe(vec)
	if e.metrics == nil {
		return
	}
	e.metrics.DocsEncodedTotal.WithLabelValues(e.Language()).Inc()
	e.metrics.EncodeLatency.Observe(elapsed.Seconds())
	e.metrics.DocumentLength.Observe(float64(length))
	for _, entry := range vec {
		if entry.Value == sparse.MaxTermFrequency {
			e.metrics.ClampedTermsTotal.Inc()
		}
	}
}

func (e *Engine) recordError(err error) {
	if e.metrics == nil {
		return
	}
	e.metrics.EncodeErrorsTotal.WithLabelValues(errorReason(err)).Inc()
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrLengthOverflow):
		return "length_overflow"
	case errors.Is(err, apperrors.ErrUnsupportedLanguage):
		return "unsupported_language"
	case errors.Is(err, apperrors.ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
