// Package cache memoizes resolution results for the lifetime of one dependency
// context.
//
// Concurrent lookups of the same key share a single fill. No lock is held while a
// fill runs; the finished value is published under a short critical section and the
// first published value wins. Readers only ever see finished values. Failed fills
// are reported to their callers and never stored.
package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/albertocavalcante/go-dnxdeps/framework"
	"github.com/albertocavalcante/go-dnxdeps/semver"
)

// Key identifies one resolution request.
type Key struct {
	Name          string
	Range         string
	Framework     string
	Configuration string
}

// NewKey builds a key. Names are case-insensitive, so the key folds them.
func NewKey(name string, r *semver.Range, fw framework.Moniker, configuration string) Key {
	return Key{
		Name:          strings.ToLower(name),
		Range:         r.String(),
		Framework:     fw.ShortName(),
		Configuration: configuration,
	}
}

func (k Key) String() string {
	return k.Name + "@" + k.Range + "|" + k.Framework + "|" + k.Configuration
}

// Stats counts cache activity.
type Stats struct {
	Hits   uint64
	Misses uint64
	Fills  uint64
	Errors uint64
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	metrics *Metrics
	name    string
}

// WithMetrics reports activity to m, labelled with name.
func WithMetrics(m *Metrics, name string) Option {
	return func(o *options) {
		o.metrics = m
		o.name = name
	}
}

// Cache maps keys to values of type V. The zero value is not usable; call New.
type Cache[V any] struct {
	group singleflight.Group

	mu      sync.RWMutex
	entries map[Key]V

	hits, misses, fills, errs atomic.Uint64

	metrics *Metrics
	name    string
}

// New returns an empty cache.
func New[V any](opts ...Option) *Cache[V] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{entries: make(map[Key]V), metrics: o.metrics, name: o.name}
}

// Peek returns the stored value for key without filling.
func (c *Cache[V]) Peek(key Key) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Get returns the value for key, calling fill to compute it on a miss. Callers that
// miss on the same key at the same time wait for one shared fill, which runs under
// the context of the caller that started it. A caller whose ctx ends stops waiting
// and gets ctx.Err(). If the starting caller gives up and its fill ends early, the
// remaining callers start a new fill under their own contexts.
func (c *Cache[V]) Get(ctx context.Context, key Key, fill func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Peek(key); ok {
		c.hits.Add(1)
		c.metrics.lookup(c.name, true)
		return v, nil
	}
	c.misses.Add(1)
	c.metrics.lookup(c.name, false)

	var zero V
	for {
		ch := c.group.DoChan(key.String(), func() (any, error) {
			// Another fill may have published between Peek and DoChan.
			if v, ok := c.Peek(key); ok {
				return v, nil
			}

			start := time.Now()
			v, err := fill(ctx)
			c.metrics.observeFill(c.name, time.Since(start), err)
			if err != nil {
				c.errs.Add(1)
				if ctx.Err() != nil {
					return nil, &abandonedFill{err: err}
				}
				return nil, err
			}
			c.fills.Add(1)
			return c.publish(key, v), nil
		})

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res := <-ch:
			if res.Err == nil {
				v, _ := res.Val.(V)
				return v, nil
			}
			var abandoned *abandonedFill
			if errors.As(res.Err, &abandoned) {
				if ctx.Err() == nil {
					continue
				}
				return zero, abandoned.err
			}
			return zero, res.Err
		}
	}
}

// abandonedFill marks a fill that failed after its caller's context ended. Waiters
// with live contexts retry instead of inheriting the failure.
type abandonedFill struct {
	err error
}

func (e *abandonedFill) Error() string { return e.err.Error() }
func (e *abandonedFill) Unwrap() error { return e.err }

// publish stores v unless a value is already present, and returns the stored value.
func (c *Cache[V]) publish(key Key, v V) V {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok {
		return existing
	}
	c.entries[key] = v
	return v
}

// Len returns the number of stored entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns activity counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Fills:  c.fills.Load(),
		Errors: c.errs.Load(),
	}
}
