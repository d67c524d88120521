package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder/sparse"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/resilience"
)

type fakePublisher struct {
	mu       sync.Mutex
	failures int
	err      error
	events   []kafka.Event
	calls    int
}

func (p *fakePublisher) Publish(ctx context.Context, event kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return p.err
	}
	if p.failures > 0 {
		p.failures--
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, event)
	return nil
}

type statusCall struct {
	status string
	docID  string
	length uint16
	terms  int
	reason string
}

type fakeStore struct {
	mu    sync.Mutex
	calls []statusCall
}

func (s *fakeStore) MarkEncoded(ctx context.Context, docID string, length uint16, terms int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, statusCall{status: "ENCODED", docID: docID, length: length, terms: terms})
	return nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, docID string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, statusCall{status: "FAILED", docID: docID, reason: reason})
	return nil
}

func newHandler(t *testing.T, base encoder.Options, pub *fakePublisher, store *fakeStore) (*Handler, *metrics.Metrics) {
	t.Helper()
	registry, err := encoder.NewRegistry(base)
	require.NoError(t, err)
	m := metrics.New(prometheus.NewRegistry())
	h := NewHandler(registry, pub, store, m)
	h.retry = resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Retryable:    kafka.IsRetryable,
	}
	h.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	return h, m
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestHandleEncodesAndPublishes(t *testing.T) {
	pub := &fakePublisher{}
	store := &fakeStore{}
	h, m := newHandler(t, encoder.Options{}, pub, store)

	value := mustJSON(t, encoder.DocumentEvent{DocumentID: "doc-1", Title: "Cats", Body: "cats cats dogs"})
	require.NoError(t, h.Handle(context.Background(), []byte("doc-1"), value))

	require.Len(t, pub.events, 1)
	assert.Equal(t, "doc-1", pub.events[0].Key)
	ev, ok := pub.events[0].Value.(encoder.VectorEvent)
	require.True(t, ok)
	assert.Equal(t, []uint32{sparse.Hash("cat"), sparse.Hash("dog")}, ev.Indices)
	assert.Equal(t, []float32{3, 1}, ev.Values)
	assert.Equal(t, uint16(4), ev.DocumentLength)
	assert.Equal(t, "english", ev.Language)

	require.Len(t, store.calls, 1)
	assert.Equal(t, statusCall{status: "ENCODED", docID: "doc-1", length: 4, terms: 2}, store.calls[0])
	assert.Equal(t, float64(1), testutil.ToFloat64(m.VectorsPublished.WithLabelValues("ok")))
}

func TestHandleSkipsUndecodable(t *testing.T) {
	pub := &fakePublisher{}
	store := &fakeStore{}
	h, _ := newHandler(t, encoder.Options{}, pub, store)

	assert.NoError(t, h.Handle(context.Background(), []byte("k"), []byte("{garbage")))
	assert.NoError(t, h.Handle(context.Background(), []byte("k"), mustJSON(t, encoder.DocumentEvent{Body: "no id"})))
	assert.Empty(t, pub.events)
	assert.Empty(t, store.calls)
}

func TestHandleUnsupportedLanguageIsPermanent(t *testing.T) {
	pub := &fakePublisher{}
	store := &fakeStore{}
	h, _ := newHandler(t, encoder.Options{}, pub, store)

	value := mustJSON(t, encoder.DocumentEvent{DocumentID: "doc-2", Body: "qapla", Language: "klingon"})
	require.NoError(t, h.Handle(context.Background(), nil, value))

	assert.Empty(t, pub.events)
	require.Len(t, store.calls, 1)
	assert.Equal(t, "FAILED", store.calls[0].status)
	assert.Contains(t, store.calls[0].reason, "unsupported language")
}

func TestHandleUnknownLanguagesWithoutStemming(t *testing.T) {
	pub := &fakePublisher{}
	store := &fakeStore{}
	h, _ := newHandler(t, encoder.Options{DisableStemming: true}, pub, store)

	for i := 0; i < 5; i++ {
		value := mustJSON(t, encoder.DocumentEvent{DocumentID: fmt.Sprintf("doc-%d", i), Body: "text", Language: fmt.Sprintf("lang-%d", i)})
		require.NoError(t, h.Handle(context.Background(), nil, value))
	}

	assert.Empty(t, pub.events)
	require.Len(t, store.calls, 5)
	for _, c := range store.calls {
		assert.Equal(t, "FAILED", c.status)
	}
	assert.Equal(t, 1, h.registry.Len())
}

func TestHandleStrictOverflowIsPermanent(t *testing.T) {
	pub := &fakePublisher{}
	store := &fakeStore{}
	h, _ := newHandler(t, encoder.Options{DisableStemming: true, LengthPolicy: sparse.Strict}, pub, store)

	value := mustJSON(t, encoder.DocumentEvent{DocumentID: "doc-3", Body: strings.Repeat("w ", sparse.MaxDocumentLength+1)})
	require.NoError(t, h.Handle(context.Background(), nil, value))

	assert.Empty(t, pub.events)
	require.Len(t, store.calls, 1)
	assert.Equal(t, "FAILED", store.calls[0].status)
}

func TestHandleRetriesPublish(t *testing.T) {
	pub := &fakePublisher{failures: 2}
	store := &fakeStore{}
	h, _ := newHandler(t, encoder.Options{}, pub, store)

	value := mustJSON(t, encoder.DocumentEvent{DocumentID: "doc-4", Body: "retry me"})
	require.NoError(t, h.Handle(context.Background(), nil, value))
	assert.Equal(t, 3, pub.calls)
	assert.Len(t, pub.events, 1)
}

func TestHandlePublishExhausted(t *testing.T) {
	pub := &fakePublisher{failures: 10}
	store := &fakeStore{}
	h, m := newHandler(t, encoder.Options{}, pub, store)

	value := mustJSON(t, encoder.DocumentEvent{DocumentID: "doc-5", Body: "never delivered"})
	err := h.Handle(context.Background(), nil, value)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doc-5")
	assert.Empty(t, store.calls)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.VectorsPublished.WithLabelValues("failed")))
}

func TestHandlePermanentPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: fmt.Errorf("%w: unsupported value", kafka.ErrMarshal)}
	store := &fakeStore{}
	h, _ := newHandler(t, encoder.Options{}, pub, store)

	value := mustJSON(t, encoder.DocumentEvent{DocumentID: "doc-7", Body: "poison"})
	require.NoError(t, h.Handle(context.Background(), nil, value))
	assert.Equal(t, 1, pub.calls)
	require.Len(t, store.calls, 1)
	assert.Equal(t, "FAILED", store.calls[0].status)
}

func TestHandleWithoutStore(t *testing.T) {
	pub := &fakePublisher{}
	registry, err := encoder.NewRegistry(encoder.Options{})
	require.NoError(t, err)
	h := NewHandler(registry, pub, nil, nil)

	value := mustJSON(t, encoder.DocumentEvent{DocumentID: "doc-6", Body: "plain text"})
	require.NoError(t, h.MessageHandler()(context.Background(), nil, value))
	assert.Len(t, pub.events, 1)
}
