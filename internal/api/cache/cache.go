// Package cache stores encode results in Redis keyed by a digest of the
// encoding settings and the input text. Concurrent identical requests are
// collapsed into one computation, and a circuit breaker bypasses Redis while
// it keeps failing.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder/sparse"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/resilience"
)

const keyPrefix = "sparse:"

// Backend is the subset of the Redis client the cache uses.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Entry is a cached encode result.
type Entry struct {
	Document sparse.Document `json:"document"`
	Tokens   []string        `json:"tokens,omitempty"`
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits         int64  `json:"hits"`
	Misses       int64  `json:"misses"`
	Bypassed     int64  `json:"bypassed"`
	Total        int64  `json:"total"`
	HitRate      string `json:"hit_rate"`
	BreakerState string `json:"breaker_state"`
}

type EncodeCache struct {
	backend  Backend
	ttl      time.Duration
	group    singleflight.Group
	breaker  *resilience.CircuitBreaker
	metrics  *metrics.Metrics
	logger   *slog.Logger
	hits     atomic.Int64
	misses   atomic.Int64
	bypassed atomic.Int64
}

// New creates a cache over backend. m may be nil.
func New(backend Backend, ttl time.Duration, m *metrics.Metrics) *EncodeCache {
	c := &EncodeCache{
		backend: backend,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "encode-cache"),
	}
	c.breaker = resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     15 * time.Second,
		OnStateChange: func(name string, to resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return c
}

// Key derives the cache key for text encoded by an engine with the given
// fingerprint (see encoder.Engine.Fingerprint).
func Key(fingerprint string, text string) string {
	h := sha256.New()
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return keyPrefix + hex.EncodeToString(sum[:16])
}

// Get looks key up. Backend failures and open-breaker bypasses count as
// misses.
func (c *EncodeCache) Get(ctx context.Context, key string) (*Entry, bool) {
	var data string
	found := false
	err := c.breaker.Execute(func() error {
		v, err := c.backend.Get(ctx, key)
		if err != nil {
			if pkgredis.IsNilError(err) {
				return nil
			}
			return err
		}
		data, found = v, true
		return nil
	})
	if err != nil {
		c.recordMiss(err)
		return nil, false
	}
	if !found {
		c.recordMiss(nil)
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.recordMiss(nil)
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "key", key)
	return &entry, true
}

// Set stores entry under key. Failures are logged, never returned.
func (c *EncodeCache) Set(ctx context.Context, key string, entry *Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.backend.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached entry for key or runs computeFn once for
// all concurrent callers asking for the same key. The bool reports a cache
// hit.
func (c *EncodeCache) GetOrCompute(ctx context.Context, key string, computeFn func() (*Entry, error)) (*Entry, bool, error) {
	if entry, ok := c.Get(ctx, key); ok {
		return entry, true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		entry, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, entry)
		return entry, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Entry), false, nil
}

// Invalidate deletes every cached encode result.
func (c *EncodeCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *EncodeCache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	total := hits + misses
	var rate float64
	if total > 0 {
		rate = float64(hits) / float64(total) * 100
	}
	return Stats{
		Hits:         hits,
		Misses:       misses,
		Bypassed:     c.bypassed.Load(),
		Total:        total,
		HitRate:      fmt.Sprintf("%.1f%%", rate),
		BreakerState: c.breaker.GetState().String(),
	}
}

func (c *EncodeCache) recordMiss(err error) {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
	if err == nil {
		return
	}
	c.bypassed.Add(1)
	c.logger.Warn("cache get failed", "error", err)
}
