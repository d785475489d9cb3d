// Package cache keeps resolved game-day slates for a short time so repeated
// prediction requests do not re-fetch the schedule.
package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/goalcast/internal/domain/inference"
	"github.com/okian/goalcast/internal/domain/model"
	"github.com/okian/goalcast/pkg/logger"
	"github.com/okian/goalcast/pkg/metrics"
)

const defaultTTL = 15 * time.Minute

// SlateCache wraps a SlateSource with a TTL store. Concurrent misses for the
// same day share one upstream call. Store failures degrade to the source.
type SlateCache struct {
	source inference.SlateSource
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	log    logger.Logger
}

var _ inference.SlateSource = (*SlateCache)(nil)

// Option applies a configuration option to the SlateCache.
type Option func(*SlateCache)

// WithTTL sets how long a slate is reused.
func WithTTL(d time.Duration) Option {
	return func(c *SlateCache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithStore sets the backing store. Default is in-memory.
func WithStore(s Store) Option {
	return func(c *SlateCache) {
		if s != nil {
			c.store = s
		}
	}
}

// WithLogger sets the cache logger.
func WithLogger(l logger.Logger) Option {
	return func(c *SlateCache) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a cache in front of source.
func New(source inference.SlateSource, opts ...Option) *SlateCache {
	c := &SlateCache{
		source: source,
		ttl:    defaultTTL,
		log:    logger.Get().Named("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = NewMemoryStore(nil)
	}
	return c
}

// Slate implements inference.SlateSource.
func (c *SlateCache) Slate(ctx context.Context, day model.Day) (model.Slate, error) {
	s, ok, err := c.store.Get(ctx, day)
	if err != nil {
		c.log.Warn(ctx, "slate cache read failed", logger.String("date", day.String()), logger.Error(err))
	}
	if ok {
		metrics.RecordCacheLookup(true)
		return s, nil
	}
	metrics.RecordCacheLookup(false)

	v, err, shared := c.group.Do(day.String(), func() (any, error) {
		s, err := c.source.Slate(ctx, day)
		if err != nil {
			return model.Slate{}, err
		}
		if err := c.store.Set(ctx, s, c.ttl); err != nil {
			c.log.Warn(ctx, "slate cache write failed", logger.String("date", day.String()), logger.Error(err))
		}
		return s, nil
	})
	if err != nil {
		return model.Slate{}, err
	}
	if shared {
		c.log.Debug(ctx, "slate fetch shared", logger.String("date", day.String()))
	}
	return v.(model.Slate), nil
}

// Invalidate drops day from the cache.
func (c *SlateCache) Invalidate(ctx context.Context, day model.Day) error {
	return c.store.Delete(ctx, day)
}

// Close releases the store.
func (c *SlateCache) Close() error { return c.store.Close() }
