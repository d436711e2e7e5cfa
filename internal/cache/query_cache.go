// Package cache is the shared query layer of the dashboard. Every widget that
// needs the same backend resource for the same user reads it through one
// QueryCache entry instead of issuing its own request.
package cache

import (
	"context"
	"fmt"
	"time"

	"portfolio-dashboard/internal/config"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// DefaultTTL applies when the configured TTL is not positive
	DefaultTTL = 15 * time.Second
	// DefaultLastGoodTTL is how long the previous good value of a resource
	// stays available after its fresh entry expired
	DefaultLastGoodTTL = 30 * time.Minute
	// DefaultLoadTimeout bounds a shared load once it no longer follows the
	// context of the caller that started it
	DefaultLoadTimeout = 30 * time.Second
)

// Observer receives hit/miss events for metrics
type Observer interface {
	ObserveCache(resource string, hit bool)
}

// QueryCache caches JSON-encoded query results for a fixed TTL. Concurrent
// loads of the same key are collapsed into one call.
type QueryCache struct {
	store       Store
	ttl         time.Duration
	lastGoodTTL time.Duration
	prefix      string
	loadTimeout time.Duration
	group       singleflight.Group
	observer    Observer
	logger      zerolog.Logger
}

type Option func(*QueryCache)

func WithObserver(o Observer) Option {
	return func(c *QueryCache) { c.observer = o }
}

func WithPrefix(prefix string) Option {
	return func(c *QueryCache) { c.prefix = prefix }
}

func WithLastGoodTTL(ttl time.Duration) Option {
	return func(c *QueryCache) { c.lastGoodTTL = ttl }
}

func WithLoadTimeout(timeout time.Duration) Option {
	return func(c *QueryCache) { c.loadTimeout = timeout }
}

// NewQueryCache builds a cache on top of store
func NewQueryCache(store Store, ttl time.Duration, logger zerolog.Logger, opts ...Option) *QueryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &QueryCache{
		store:       store,
		ttl:         ttl,
		lastGoodTTL: DefaultLastGoodTTL,
		loadTimeout: DefaultLoadTimeout,
		prefix:      "dashboard:query",
		logger:      logger.With().Str("component", "query_cache").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.loadTimeout <= 0 {
		c.loadTimeout = DefaultLoadTimeout
	}
	return c
}

// New picks the store from config. A redis store is returned even if the
// server is unreachable; reads then fall through to the loader.
func New(cfg config.CacheConfig, logger zerolog.Logger, opts ...Option) *QueryCache {
	var store Store = NewMemoryStore()
	if cfg.Driver == "redis" {
		store = NewRedisStore(NewRedisClient(cfg))
	}
	if cfg.Prefix != "" {
		opts = append([]Option{WithPrefix(cfg.Prefix)}, opts...)
	}
	return NewQueryCache(store, time.Duration(cfg.TTL)*time.Second, logger, opts...)
}

// TTL returns the entry lifetime
func (c *QueryCache) TTL() time.Duration {
	return c.ttl
}

// Store exposes the underlying store, used by health checks
func (c *QueryCache) Store() Store {
	return c.store
}

// Key builds the storage key of a resource for one owner
func (c *QueryCache) Key(owner, resource string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, owner, resource)
}

func lastGoodKey(key string) string {
	return key + ":last"
}

// Invalidate drops the fresh entries of an owner's resources, e.g. after a
// mutation. Last good copies are kept.
func (c *QueryCache) Invalidate(ctx context.Context, owner string, resources ...string) error {
	keys := make([]string, len(resources))
	for i, r := range resources {
		keys[i] = c.Key(owner, r)
	}
	return c.store.Delete(ctx, keys...)
}

// Purge drops fresh and last good entries, e.g. when a session expires
func (c *QueryCache) Purge(ctx context.Context, owner string, resources ...string) error {
	keys := make([]string, 0, 2*len(resources))
	for _, r := range resources {
		key := c.Key(owner, r)
		keys = append(keys, key, lastGoodKey(key))
	}
	return c.store.Delete(ctx, keys...)
}

// LastGood returns the most recent successfully loaded value of resource,
// even if its fresh entry already expired
func LastGood[T any](ctx context.Context, c *QueryCache, owner, resource string) (T, bool) {
	var value T
	raw, ok, err := c.store.Get(ctx, lastGoodKey(c.Key(owner, resource)))
	if err != nil || !ok {
		return value, false
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, false
	}
	return value, true
}

func (c *QueryCache) observe(resource string, hit bool) {
	if c.observer != nil {
		c.observer.ObserveCache(resource, hit)
	}
}

// Fetch returns the cached value of resource for owner, calling load on a
// miss. Store failures are logged and never fail the fetch.
func Fetch[T any](ctx context.Context, c *QueryCache, owner, resource string, load func(context.Context) (T, error)) (T, error) {
	key := c.Key(owner, resource)

	if raw, ok, err := c.store.Get(ctx, key); err != nil {
		c.logger.Warn().Err(err).Str("resource", resource).Msg("cache read failed")
	} else if ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			c.observe(resource, true)
			return cached, nil
		}
		c.logger.Warn().Str("resource", resource).Msg("discarding undecodable cache entry")
	}
	c.observe(resource, false)

	ch := c.group.DoChan(key, func() (interface{}, error) {
		// joined callers wait on this flight, so the first caller leaving
		// must not cancel it
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		// a flight that finished since the read above already stored it
		if raw, ok, err := c.store.Get(ctx, key); err == nil && ok {
			var cached T
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}

		value, err := load(ctx)
		if err != nil {
			return value, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			c.logger.Warn().Err(err).Str("resource", resource).Msg("cache encode failed")
			return value, nil
		}
		if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
			c.logger.Warn().Err(err).Str("resource", resource).Msg("cache write failed")
		}
		if c.lastGoodTTL > 0 {
			if err := c.store.Set(ctx, lastGoodKey(key), raw, c.lastGoodTTL); err != nil {
				c.logger.Warn().Err(err).Str("resource", resource).Msg("last good write failed")
			}
		}
		return value, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
