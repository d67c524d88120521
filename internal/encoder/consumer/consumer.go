// Package consumer reads document events from Kafka, encodes them into
// sparse vectors and publishes the vectors to the downstream topic, recording
// each outcome in PostgreSQL.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder"
	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/tracing"
)

// Publisher writes vector events downstream.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// StatusStore records per-document outcomes.
type StatusStore interface {
	MarkEncoded(ctx context.Context, docID string, length uint16, terms int) error
	MarkFailed(ctx context.Context, docID string, reason string) error
}

// EncodeConsumer wraps a Kafka consumer to drive the encoding pipeline.
type EncodeConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates an EncodeConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *EncodeConsumer {
	return &EncodeConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "encode-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ec *EncodeConsumer) Start(ctx context.Context) error {
	ec.logger.Info("encode consumer starting")
	return ec.consumer.Start(ctx)
}

// Handler turns document events into vector events.
type Handler struct {
	registry  *encoder.Registry
	publisher Publisher
	store     StatusStore
	retry     resilience.RetryConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewHandler wires a Handler. store and m may be nil.
func NewHandler(registry *encoder.Registry, publisher Publisher, store StatusStore, m *metrics.Metrics) *Handler {
	return &Handler{
		registry:  registry,
		publisher: publisher,
		store:     store,
		retry: resilience.RetryConfig{
			MaxAttempts:  5,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Retryable:    kafka.IsRetryable,
		},
		metrics: m,
		logger:  slog.Default().With("component", "encode-consumer"),
		now:     time.Now,
	}
}

// MessageHandler adapts h to the Kafka consumer callback.
func (h *Handler) MessageHandler() kafka.MessageHandler {
	return h.Handle
}

// Handle processes one message. Undecodable messages and documents that can
// never be encoded (unsupported language, strict length overflow) return
// nil so the offset is committed, as does a publish the broker rejects
// permanently. A publish that fails after every retry returns an error so
// the message is not committed.
func (h *Handler) Handle(ctx context.Context, key []byte, value []byte) error {
	event, err := kafka.DecodeJSON[encoder.DocumentEvent](value)
	if err != nil {
		h.logger.Error("failed to decode document event",
			"error", err,
			"key", string(key),
		)
		return nil
	}
	if event.DocumentID == "" {
		h.logger.Error("document event without id, skipping", "key", string(key))
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "encode_message", event.DocumentID)
	defer func() {
		span.End()
		span.Log(h.logger)
	}()

	engine, err := h.registry.Get(h.registry.Resolve(event.Language, 0, false))
	if err != nil {
		h.fail(ctx, event.DocumentID, err)
		return nil
	}

	h.logger.Debug("processing document event",
		"doc_id", event.DocumentID,
		"language", engine.Language(),
	)

	res, err := engine.EncodeDocument(event.DocumentID, event.Text())
	if err != nil {
		if isPermanent(err) {
			h.fail(ctx, event.DocumentID, err)
			return nil
		}
		return fmt.Errorf("encoding document %s: %w", event.DocumentID, err)
	}

	span.SetAttr("doc_length", res.Length)

	vectorEvent := encoder.NewVectorEvent(event.DocumentID, engine.Language(), res, h.now())
	_, publishSpan := tracing.StartChildSpan(ctx, "publish")
	err = resilience.Retry(ctx, "publish-vector", h.retry, func() error {
		return h.publisher.Publish(ctx, kafka.Event{Key: event.DocumentID, Value: vectorEvent})
	})
	publishSpan.End()
	if err != nil {
		h.countPublish("failed")
		if !kafka.IsRetryable(err) {
			h.fail(ctx, event.DocumentID, err)
			return nil
		}
		return fmt.Errorf("publishing vector for document %s: %w", event.DocumentID, err)
	}
	h.countPublish("ok")

	if h.store != nil {
		if err := h.store.MarkEncoded(ctx, event.DocumentID, res.Length, len(res.Vector)); err != nil {
			h.logger.Error("failed to update document status",
				"doc_id", event.DocumentID,
				"status", "ENCODED",
				"error", err,
			)
		}
	}

	h.logger.Info("document encoded",
		"doc_id", event.DocumentID,
		"doc_length", res.Length,
		"unique_terms", len(res.Vector),
	)
	return nil
}

func (h *Handler) fail(ctx context.Context, docID string, cause error) {
	h.logger.Warn("document cannot be encoded",
		"doc_id", docID,
		"error", cause,
	)
	if h.store == nil {
		return
	}
	if err := h.store.MarkFailed(ctx, docID, cause.Error()); err != nil {
		h.logger.Error("failed to update document status",
			"doc_id", docID,
			"status", "FAILED",
			"error", err,
		)
	}
}

func (h *Handler) countPublish(status string) {
	if h.metrics != nil {
		h.metrics.VectorsPublished.WithLabelValues(status).Inc()
	}
}

func isPermanent(err error) bool {
	return errors.Is(err, apperrors.ErrUnsupportedLanguage) ||
		errors.Is(err, apperrors.ErrLengthOverflow) ||
		errors.Is(err, apperrors.ErrInvalidInput)
}
