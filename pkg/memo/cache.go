// ABOUTME: Concurrent compute-once cache used for every object category
// ABOUTME: Collapses same-key misses with singleflight and stores results in a sync.Map

package memo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrPanicked is wrapped around a panic raised by a ComputeFunc. Like any
// other error it reaches every waiting caller and is not cached.
var ErrPanicked = errors.New("memo: compute panicked")

// ComputeFunc produces the value for key. Returning false means the key has
// no value; absent results and errors are never stored.
type ComputeFunc[K any, V any] func(ctx context.Context, key K) (V, bool, error)

// Observer receives cache events. Implementations must be safe for
// concurrent use.
type Observer interface {
	OnHit(key string)
	OnMiss(key string)
	OnCompute(key string, elapsed time.Duration, found bool, err error)
}

// Option configures a Cache
type Option[K any] func(*options[K])

type options[K any] struct {
	keyFunc  func(K) string
	observer Observer
}

// WithKeyFunc sets how keys are turned into map keys. Two keys that format
// to the same string are treated as the same key.
func WithKeyFunc[K any](fn func(K) string) Option[K] {
	return func(o *options[K]) {
		o.keyFunc = fn
	}
}

// WithObserver attaches an event observer, typically a metrics adapter
func WithObserver[K any](obs Observer) Option[K] {
	return func(o *options[K]) {
		o.observer = obs
	}
}

func defaultKey[K any](key K) string {
	if s, ok := any(key).(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(key)
}

type entry[K any, V any] struct {
	key   K
	value V
}

// Cache memoizes a ComputeFunc. Each key is computed at most once for the
// lifetime of the cache unless the computation fails or reports absence.
type Cache[K any, V any] struct {
	compute  ComputeFunc[K, V]
	keyFunc  func(K) string
	observer Observer

	values sync.Map // string -> entry[K, V]
	group  singleflight.Group
	size   atomic.Int64
}

// New creates a cache around compute
func New[K any, V any](compute ComputeFunc[K, V], opts ...Option[K]) *Cache[K, V] {
	o := options[K]{keyFunc: defaultKey[K]}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[K, V]{
		compute:  compute,
		keyFunc:  o.keyFunc,
		observer: o.observer,
	}
}

type result[V any] struct {
	value V
	found bool
}

// Get returns the cached value for key or computes it. Concurrent callers for
// the same key share one computation; callers for other keys do not wait.
// A caller whose ctx ends stops waiting but the shared computation goes on.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	k := c.keyFunc(key)
	if v, ok := c.values.Load(k); ok {
		c.hit(k)
		return v.(entry[K, V]).value, true, nil
	}
	c.miss(k)

	ch := c.group.DoChan(k, func() (any, error) {
		// Another flight may have stored the key between Load and DoChan
		if v, ok := c.values.Load(k); ok {
			return result[V]{value: v.(entry[K, V]).value, found: true}, nil
		}

		start := time.Now()
		value, found, err := c.run(context.WithoutCancel(ctx), key)
		if c.observer != nil {
			c.observer.OnCompute(k, time.Since(start), found, err)
		}
		if err != nil {
			return nil, err
		}
		if found {
			if _, loaded := c.values.LoadOrStore(k, entry[K, V]{key: key, value: value}); !loaded {
				c.size.Add(1)
			}
		}
		return result[V]{value: value, found: found}, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		r := res.Val.(result[V])
		return r.value, r.found, nil
	}
}

// run calls compute, turning a panic into an error. singleflight re-panics
// on its own goroutine where no caller could recover.
func (c *Cache[K, V]) run(ctx context.Context, key K) (value V, found bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero V
			value, found, err = zero, false, fmt.Errorf("%w: %v", ErrPanicked, p)
		}
	}()
	return c.compute(ctx, key)
}

// Peek returns a cached value without computing
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	if v, ok := c.values.Load(c.keyFunc(key)); ok {
		return v.(entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Len returns the number of stored values
func (c *Cache[K, V]) Len() int {
	return int(c.size.Load())
}

// Range calls fn for each stored key and value until fn returns false.
// Order is unspecified.
func (c *Cache[K, V]) Range(fn func(key K, value V) bool) {
	c.values.Range(func(_, v any) bool {
		e := v.(entry[K, V])
		return fn(e.key, e.value)
	})
}

func (c *Cache[K, V]) hit(k string) {
	if c.observer != nil {
		c.observer.OnHit(k)
	}
}

func (c *Cache[K, V]) miss(k string) {
	if c.observer != nil {
		c.observer.OnMiss(k)
	}
}
