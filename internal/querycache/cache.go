// Package querycache is the gateway's shared read cache of upstream
// resources.  Concurrent callers asking for the same key share one
// outstanding request; entries are grouped under tags so that mutations can
// invalidate everything they make stale.
//
// A request is never cancelled by its callers.  Callers wait at most the
// pending timeout and then give up with ErrPendingTimeout, while the request
// keeps running and stores its result when it lands (last write wins).
package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrPendingTimeout is returned to a caller that waited longer than the
// pending timeout.  The underlying request is not cancelled.
var ErrPendingTimeout = errors.New("request still pending after timeout")

// DefaultPendingTimeout is how long a view may stay pending before it is
// reclassified as failed.
const DefaultPendingTimeout = 7 * time.Second

// FetchFunc loads the value of a key.  The context it receives is detached
// from the caller's cancellation.
type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	value    any
	gen      uint64
	storedAt time.Time
}

// Stats are cumulative counters of a cache.
type Stats struct {
	Hits     uint64
	Misses   uint64
	Shared   uint64
	Timeouts uint64
	Errors   uint64
}

// Cache is safe for concurrent use.
type Cache struct {
	group   singleflight.Group
	timeout time.Duration

	mu      sync.Mutex
	entries map[string]entry
	tags    map[string]map[string]struct{}
	gens    map[string]uint64
	waiters map[string]int

	hits, misses, shared, timeouts, errs atomic.Uint64
}

// New returns an empty cache.  A non-positive timeout uses
// DefaultPendingTimeout.
func New(pendingTimeout time.Duration) *Cache {
	if pendingTimeout <= 0 {
		pendingTimeout = DefaultPendingTimeout
	}
	return &Cache{
		timeout: pendingTimeout,
		entries: make(map[string]entry),
		tags:    make(map[string]map[string]struct{}),
		gens:    make(map[string]uint64),
		waiters: make(map[string]int),
	}
}

// Fetch returns the cached value of key, or loads it with fn.  tags are
// attached to the stored entry.
func (c *Cache) Fetch(ctx context.Context, key string, tags []string, fn FetchFunc) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && e.gen == c.gens[key] {
		c.mu.Unlock()
		c.hits.Add(1)
		return e.value, nil
	}
	c.mu.Unlock()
	c.misses.Add(1)
	return c.Refetch(ctx, key, tags, fn)
}

// Refetch loads key with fn regardless of what is cached, joining a request
// that is already in flight for the same key.
func (c *Cache) Refetch(ctx context.Context, key string, tags []string, fn FetchFunc) (any, error) {
	c.mu.Lock()
	c.waiters[key]++
	c.tagLocked(key, tags)
	gen := c.gens[key]
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if c.waiters[key]--; c.waiters[key] <= 0 {
			delete(c.waiters, key)
		}
		c.mu.Unlock()
	}()

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		v, err := fn(detached)
		if err != nil {
			return nil, err
		}
		c.store(key, tags, v, gen)
		return v, nil
	})

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		if res.Shared {
			c.shared.Add(1)
		}
		if res.Err != nil {
			c.errs.Add(1)
			return nil, res.Err
		}
		return res.Val, nil
	case <-timer.C:
		c.timeouts.Add(1)
		return nil, ErrPendingTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) store(key string, tags []string, v any, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: v, gen: gen, storedAt: time.Now()}
	c.tagLocked(key, tags)
}

// tagLocked indexes key under tags.  Keys are indexed before their request
// starts so that an invalidation racing the request still marks it stale.
func (c *Cache) tagLocked(key string, tags []string) {
	for _, t := range tags {
		keys, ok := c.tags[t]
		if !ok {
			keys = make(map[string]struct{})
			c.tags[t] = keys
		}
		keys[key] = struct{}{}
	}
}

// Peek returns the last stored value of key without fetching.  A value that
// landed after an invalidation is still returned.
func (c *Cache) Peek(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e.value, ok
}

// Invalidate marks every key under the given tags stale.  Stale entries stay
// readable through Peek but the next Fetch reloads them, and a request
// already in flight for them is no longer joined.
func (c *Cache) Invalidate(tags ...string) {
	c.mu.Lock()
	var keys []string
	for _, t := range tags {
		for k := range c.tags[t] {
			keys = append(keys, k)
		}
		delete(c.tags, t)
	}
	for _, k := range keys {
		c.gens[k]++
	}
	c.mu.Unlock()
	for _, k := range keys {
		c.group.Forget(k)
	}
}

// InvalidateKey marks one key stale.
func (c *Cache) InvalidateKey(key string) {
	c.mu.Lock()
	c.gens[key]++
	c.mu.Unlock()
	c.group.Forget(key)
}

// InFlight returns the number of keys with at least one waiting caller.
func (c *Cache) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// Waiters returns the number of callers currently waiting on key.
func (c *Cache) Waiters(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiters[key]
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Shared:   c.shared.Load(),
		Timeouts: c.timeouts.Load(),
		Errors:   c.errs.Load(),
	}
}

// Get is a typed Fetch.
func Get[T any](ctx context.Context, c *Cache, key string, tags []string, fn func(context.Context) (T, error)) (T, error) {
	v, err := c.Fetch(ctx, key, tags, func(ctx context.Context) (any, error) { return fn(ctx) })
	return as[T](v, err)
}

// Reload is a typed Refetch.
func Reload[T any](ctx context.Context, c *Cache, key string, tags []string, fn func(context.Context) (T, error)) (T, error) {
	v, err := c.Refetch(ctx, key, tags, func(ctx context.Context) (any, error) { return fn(ctx) })
	return as[T](v, err)
}

// Cached is a typed Peek.
func Cached[T any](c *Cache, key string) (T, bool) {
	v, ok := c.Peek(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

func as[T any](v any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.New("querycache: cached value has unexpected type")
	}
	return t, nil
}
