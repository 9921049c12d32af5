// Package cache provides an in-memory cache whose entries expire after a TTL
// or when a recurring weekly boundary passes, whichever comes first.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"golang.org/x/sync/singleflight"

	"github.com/ZanzyTHEbar/dragonscale-assist/internal/logger"
)

// Clock returns the current time.
type Clock func() time.Time

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// WindowCache is a concurrency-safe key/value cache with two OR-combined
// expiry policies: an absolute TTL from the time of Set, and an epoch reset
// that expires everything stored before the most recent epoch boundary.
// Expired entries are evicted lazily by Get; there is no background sweep.
type WindowCache[V any] struct {
	mu    sync.Mutex
	store map[string]entry[V]

	name         string
	ttl          time.Duration
	epoch        bool
	epochWeekday time.Weekday
	location     *time.Location

	now         Clock
	logger      logger.Logger
	metrics     *Metrics
	group       singleflight.Group
	loadTimeout time.Duration
}

// Option configures a WindowCache.
type Option func(*options)

type options struct {
	name         string
	ttl          time.Duration
	epoch        bool
	epochWeekday time.Weekday
	location     *time.Location
	now          Clock
	logger       logger.Logger
	metrics      *Metrics
	loadTimeout  time.Duration
}

// DefaultLoadTimeout bounds a shared GetOrLoad load.
const DefaultLoadTimeout = time.Minute

// WithName labels the cache in logs and metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithTTL sets the absolute lifetime of an entry. Zero disables the TTL policy.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithEpoch enables the epoch reset at local midnight of weekday in loc.
func WithEpoch(weekday time.Weekday, loc *time.Location) Option {
	return func(o *options) {
		o.epoch = true
		o.epochWeekday = weekday
		o.location = loc
	}
}

// WithClock replaces time.Now.
func WithClock(now Clock) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records hits, misses and evictions.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLoadTimeout bounds a shared GetOrLoad load, which does not inherit
// the cancellation of the caller that started it.
func WithLoadTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.loadTimeout = d
		}
	}
}

// New creates an empty WindowCache.
func New[V any](opts ...Option) *WindowCache[V] {
	o := options{
		name:     "default",
		location: time.UTC,
		now:         time.Now,
		logger:      logger.NopLogger{},
		loadTimeout: DefaultLoadTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.location == nil {
		o.location = time.UTC
	}
	return &WindowCache[V]{
		store:        make(map[string]entry[V]),
		name:         o.name,
		ttl:          o.ttl,
		epoch:        o.epoch,
		epochWeekday: o.epochWeekday,
		location:     o.location,
		now:          o.now,
		logger:       o.logger,
		metrics:      o.metrics,
		loadTimeout:  o.loadTimeout,
	}
}

// Get returns the live value for key. An expired entry is evicted and
// reported absent. A done context reports absent without touching the store.
func (c *WindowCache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	if err := errbuilder.WrapIfContextDone(ctx, nil); err != nil {
		return zero, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.store[key]
	if !found {
		c.metrics.miss(c.name)
		return zero, false
	}
	if reason, expired := c.expired(e.storedAt, c.now()); expired {
		delete(c.store, key)
		c.logger.Debugf("cache %s: evicted %q (%s)", c.name, key, reason)
		c.metrics.evict(c.name, reason)
		c.metrics.miss(c.name)
		return zero, false
	}
	c.metrics.hit(c.name)
	return e.value, true
}

// Lookup is Get with a not-found error instead of a boolean.
func (c *WindowCache[V]) Lookup(ctx context.Context, key string) (V, error) {
	if err := errbuilder.WrapIfContextDone(ctx, nil); err != nil {
		var zero V
		return zero, err
	}
	v, ok := c.Get(ctx, key)
	if !ok {
		return v, errbuilder.NotFoundErr(errbuilder.GenericErr("cache item not found", nil))
	}
	return v, nil
}

// Set unconditionally overwrites key, stamping the current time.
func (c *WindowCache[V]) Set(ctx context.Context, key string, value V) error {
	if err := errbuilder.WrapIfContextDone(ctx, nil); err != nil {
		return err
	}

	c.mu.Lock()
	c.store[key] = entry[V]{value: value, storedAt: c.now()}
	c.mu.Unlock()

	c.logger.Debugf("cache %s: stored %q", c.name, key)
	return nil
}

// GetOrLoad returns the live value for key, or calls load and stores its
// result. Concurrent loads of the same key share one call. The shared load
// keeps the values of the first caller's context but not its cancellation,
// and is bounded by the load timeout instead; a caller whose own context
// ends stops waiting without failing the others. The boolean reports
// whether the value came from the cache.
func (c *WindowCache[V]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (V, error)) (V, bool, error) {
	var zero V
	if v, ok := c.Get(ctx, key); ok {
		return v, true, nil
	}
	if err := errbuilder.WrapIfContextDone(ctx, nil); err != nil {
		return zero, false, err
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if v, ok := c.Get(shared, key); ok {
			return v, nil
		}
		loadCtx, cancel := context.WithTimeout(shared, c.loadTimeout)
		defer cancel()
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if err := c.Set(shared, key, v); err != nil {
			return nil, err
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, false, errbuilder.WrapIfContextDone(ctx, nil)
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		// A nil interface value cannot be asserted; it stays the zero V.
		v, _ := res.Val.(V)
		return v, false, nil
	}
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (c *WindowCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.store)
}

// Expired reports whether an entry stored at storedAt is expired at now.
func (c *WindowCache[V]) Expired(storedAt, now time.Time) bool {
	_, expired := c.expired(storedAt, now)
	return expired
}

func (c *WindowCache[V]) expired(storedAt, now time.Time) (string, bool) {
	if c.ttl > 0 && now.Sub(storedAt) > c.ttl {
		return reasonTTL, true
	}
	if c.epoch && storedAt.Before(EpochStart(now, c.location, c.epochWeekday)) {
		return reasonEpoch, true
	}
	return "", false
}
