// Package cache serves rendered analysis views with hit accounting.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/bournewang/ai-hedge-fund/internal/domain/models"
	pkgcache "github.com/bournewang/ai-hedge-fund/pkg/cache"
)

// Stats is the counter snapshot for the cache monitoring endpoint.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	HitRate float64 `json:"hit_rate"`
}

// ResultsCache keeps rendered dataset views in the shared cache tier so
// repeated reads skip re-rendering. Values are stored as JSON strings, the
// common denominator of the memory and redis backends.
type ResultsCache struct {
	svc    pkgcache.Service
	prefix string
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

// ResultsOption configures the cache.
type ResultsOption func(*ResultsCache)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) ResultsOption {
	return func(c *ResultsCache) { c.prefix = prefix }
}

// WithTTL overrides the entry lifetime.
func WithTTL(ttl time.Duration) ResultsOption {
	return func(c *ResultsCache) { c.ttl = ttl }
}

// NewResultsCache wraps the cache service. The prefix is the domain segment
// of the key; the redis backend adds its own namespace prefix on top.
func NewResultsCache(svc pkgcache.Service, opts ...ResultsOption) *ResultsCache {
	c := &ResultsCache{
		svc:    svc,
		prefix: "analysis",
		ttl:    time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ResultsCache) key(sourceKey string) string {
	return pkgcache.GenerateKey(c.prefix, sourceKey)
}

// GetView returns the cached view for a source key, if present.
func (c *ResultsCache) GetView(ctx context.Context, sourceKey string) (*models.DatasetView, bool, error) {
	var raw string
	err := c.svc.Get(ctx, c.key(sourceKey), &raw)
	if err != nil {
		c.misses.Add(1)
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var view models.DatasetView
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		c.misses.Add(1)
		return nil, false, err
	}
	c.hits.Add(1)
	return &view, true, nil
}

// PutView stores a rendered view.
func (c *ResultsCache) PutView(ctx context.Context, sourceKey string, view *models.DatasetView) error {
	b, err := json.Marshal(view)
	if err != nil {
		return err
	}
	if err := c.svc.Set(ctx, c.key(sourceKey), string(b), c.ttl); err != nil {
		return err
	}
	c.sets.Add(1)
	return nil
}

// Invalidate drops one source key's cached view.
func (c *ResultsCache) Invalidate(ctx context.Context, sourceKey string) error {
	return c.svc.Delete(ctx, c.key(sourceKey))
}

// Clear drops every cached view and resets the counters.
func (c *ResultsCache) Clear(ctx context.Context) error {
	if err := c.svc.DeleteByPattern(ctx, pkgcache.BuildPattern(c.prefix)); err != nil {
		return err
	}
	c.hits.Store(0)
	c.misses.Store(0)
	c.sets.Store(0)
	return nil
}

// Stats snapshots the counters.
func (c *ResultsCache) Stats() Stats {
	h, m := c.hits.Load(), c.misses.Load()
	s := Stats{Hits: h, Misses: m, Sets: c.sets.Load()}
	if h+m > 0 {
		s.HitRate = float64(h) / float64(h+m)
	}
	return s
}
