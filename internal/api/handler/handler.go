package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/api/cache"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/api/validator"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/tracing"
)

// bodyOverhead is the JSON framing allowed on top of the text limit.
const bodyOverhead = 64 << 10

type CorpusStatsSource interface {
	CorpusStats(ctx context.Context) (store.CorpusStats, error)
}

// EncodeResponse is the body returned by the encode endpoint.
type EncodeResponse struct {
	ID             string    `json:"id,omitempty"`
	Language       string    `json:"language"`
	Indices        []uint32  `json:"indices"`
	Values         []float32 `json:"values"`
	DocumentLength uint16    `json:"document_length"`
	Tokens         []string  `json:"tokens,omitempty"`
	Cached         bool      `json:"cached"`
}

type Handler struct {
	registry      *encoder.Registry
	cache         *cache.EncodeCache
	corpus        CorpusStatsSource
	maxTextBytes  int
	encodeTimeout time.Duration
	logger        *slog.Logger
}

// New wires a Handler. encodeCache and corpus may be nil.
func New(registry *encoder.Registry, encodeCache *cache.EncodeCache, corpus CorpusStatsSource, maxTextBytes int, encodeTimeout time.Duration) *Handler {
	return &Handler{
		registry:      registry,
		cache:         encodeCache,
		corpus:        corpus,
		maxTextBytes:  maxTextBytes,
		encodeTimeout: encodeTimeout,
		logger:        slog.Default().With("component", "encode-handler"),
	}
}

func (h *Handler) Encode(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logger.FromContext(r.Context())
	ctx, span := tracing.StartSpan(r.Context(), "encode_request", logger.RequestID(r.Context()))
	defer func() {
		span.End()
		span.Log(log)
	}()

	if h.maxTextBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxTextBytes)+bodyOverhead)
	}
	var req validator.EncodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateEncodeRequest(&req, h.maxTextBytes); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := h.registry.Resolve(req.Language, req.MaxTokenLength, req.DisableStemming)
	engine, err := h.registry.Get(key)
	if err != nil {
		h.fail(w, log, err)
		return
	}

	compute := func() (*cache.Entry, error) {
		_, encodeSpan := tracing.StartChildSpan(ctx, "encode")
		defer encodeSpan.End()
		var res *encoder.Result
		err := resilience.WithTimeout(ctx, h.encodeTimeout, "encode", func(context.Context) error {
			var encErr error
			res, encErr = engine.EncodeDocument(req.ID, req.Text)
			return encErr
		})
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, apperrors.Newf(apperrors.ErrTimeout, 0, "encoding did not finish within %v", h.encodeTimeout)
		}
		if err != nil {
			return nil, err
		}
		encodeSpan.SetAttr("tokens", len(res.Tokens))
		return &cache.Entry{Document: res.Document(req.ID), Tokens: res.Tokens}, nil
	}

	var entry *cache.Entry
	cached := false
	if h.cache != nil {
		entry, cached, err = h.cache.GetOrCompute(ctx, cache.Key(engine.Fingerprint(), req.Text), compute)
	} else {
		entry, err = compute()
	}
	if err != nil {
		h.fail(w, log, err)
		return
	}

	span.SetAttr("language", engine.Language())
	span.SetAttr("cache_hit", cached)

	resp := EncodeResponse{
		ID:             req.ID,
		Language:       engine.Language(),
		Indices:        entry.Document.Indices,
		Values:         entry.Document.Values,
		DocumentLength: entry.Document.Length,
		Cached:         cached,
	}
	if req.IncludeTokens {
		resp.Tokens = entry.Tokens
	}

	log.Info("text encoded",
		"language", resp.Language,
		"doc_length", resp.DocumentLength,
		"unique_terms", len(resp.Indices),
		"cache_hit", cached,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, resp)
}

// BatchEncodeResponse is the body returned by the batch endpoint.
type BatchEncodeResponse struct {
	Language string           `json:"language"`
	Results  []EncodeResponse `json:"results"`
}

// EncodeBatch encodes up to validator.MaxBatchDocuments documents under one
// set of settings. Results keep the request order. Batches bypass the cache.
func (h *Handler) EncodeBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logger.FromContext(r.Context())

	if h.maxTextBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxTextBytes)+bodyOverhead)
	}
	var req validator.BatchEncodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateBatchEncodeRequest(&req, h.maxTextBytes); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	engine, err := h.registry.Get(h.registry.Resolve(req.Language, req.MaxTokenLength, req.DisableStemming))
	if err != nil {
		h.fail(w, log, err)
		return
	}

	ctx := r.Context()
	if h.encodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.encodeTimeout)
		defer cancel()
	}
	inputs := make([]encoder.Input, len(req.Documents))
	for i, doc := range req.Documents {
		inputs[i] = encoder.Input{ID: doc.ID, Text: doc.Text}
	}
	results, err := engine.EncodeBatch(ctx, inputs)
	if err != nil {
		h.fail(w, log, err)
		return
	}

	resp := BatchEncodeResponse{
		Language: engine.Language(),
		Results:  make([]EncodeResponse, len(results)),
	}
	for i, res := range results {
		doc := res.Document(req.Documents[i].ID)
		resp.Results[i] = EncodeResponse{
			ID:             doc.ID,
			Language:       resp.Language,
			Indices:        doc.Indices,
			Values:         doc.Values,
			DocumentLength: doc.Length,
		}
	}

	log.Info("batch encoded",
		"language", resp.Language,
		"documents", len(results),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"engines": h.registry.Stats(),
	}
	if h.corpus != nil {
		stats, err := h.corpus.CorpusStats(r.Context())
		if err != nil {
			h.logger.Error("corpus stats failed", "error", err)
			body["corpus_error"] = "corpus statistics unavailable"
		} else {
			body["corpus"] = stats
		}
	}
	h.writeJSON(w, http.StatusOK, body)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) fail(w http.ResponseWriter, log *slog.Logger, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError && !errors.Is(err, apperrors.ErrTimeout) {
		log.Error("encode failed", "error", err, "status_code", status)
		h.writeError(w, status, "encode failed")
		return
	}
	log.Warn("encode rejected", "error", err, "status_code", status)
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// Routes registers the handler's endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/encode", h.Encode)
	mux.HandleFunc("POST /api/v1/encode/batch", h.EncodeBatch)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}
