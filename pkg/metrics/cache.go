// Package metrics shields read-heavy aggregate queries behind a
// time-boxed cache with bounded retry and stale-read fallback. The
// dashboard polls these figures constantly; availability wins over
// freshness whenever the backend hiccups.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/balcaopos/balcao/pkg/retry"
)

const (
	// DefaultTTL matches the short freshness window the dashboard needs.
	DefaultTTL = 15 * time.Second

	// DefaultBackoff is the pause before the single recompute retry.
	DefaultBackoff = 200 * time.Millisecond
)

// Source computes the authoritative value for one metric.
type Source[T any] func(ctx context.Context) (T, error)

type entry[T any] struct {
	mu         sync.Mutex
	value      T
	has        bool
	computedAt time.Time
}

// Cache memoizes aggregate results per key. Entries expire purely by
// TTL on read; nothing invalidates them explicitly. Per-key state is
// independent: one metric's outage never affects another metric's
// freshness, and one key's recomputation never blocks another key's
// read.
type Cache[T any] struct {
	policy retry.Policy
	now    func() time.Time
	log    zerolog.Logger

	mu      sync.Mutex
	entries map[string]*entry[T]
}

type CacheOption[T any] func(*Cache[T])

// WithRetry replaces the recompute retry policy.
func WithRetry[T any](policy retry.Policy) CacheOption[T] {
	return func(c *Cache[T]) { c.policy = policy }
}

func WithCacheClock[T any](now func() time.Time) CacheOption[T] {
	return func(c *Cache[T]) { c.now = now }
}

func WithCacheLogger[T any](log zerolog.Logger) CacheOption[T] {
	return func(c *Cache[T]) { c.log = log }
}

func NewCache[T any](opts ...CacheOption[T]) *Cache[T] {
	c := &Cache[T]{
		policy:  retry.Policy{Attempts: 2, Delay: DefaultBackoff},
		now:     time.Now,
		log:     zerolog.Nop(),
		entries: make(map[string]*entry[T]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the metric for key, computing it when the cached value is
// older than ttl. Recomputation gets one bounded retry; when that too
// fails, the previous value is served with stale=true, or the zero
// default when no value ever existed. Get never returns an error: this
// surface must stay up through transient backend trouble.
func (c *Cache[T]) Get(ctx context.Context, key string, ttl time.Duration, compute Source[T]) (T, bool) {
	e := c.entry(key)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.has && c.now().Sub(e.computedAt) < ttl {
		return e.value, false
	}

	var fresh T
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		var computeErr error
		fresh, computeErr = compute(ctx)
		return computeErr
	})
	if err == nil {
		e.value = fresh
		e.has = true
		e.computedAt = c.now()
		return e.value, false
	}

	c.log.Warn().Err(err).Str("key", key).Bool("have_previous", e.has).Msg("metric recompute failed, serving stale")

	if e.has {
		return e.value, true
	}

	var zero T
	return zero, true
}

func (c *Cache[T]) entry(key string) *entry[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry[T]{}
		c.entries[key] = e
	}
	return e
}
