package coalesce

import (
	"context"
	"learntube-api-go/cache"
	"learntube-api-go/logcolors"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Source describes where a GetOrCompute result came from
type Source string

const (
	SourceHit       Source = "HIT"       // served from the cache
	SourceMiss      Source = "MISS"      // this caller ran the producer
	SourceCoalesced Source = "COALESCED" // attached to another caller's producer
)

// Producer computes the value for an id on a cache miss
type Producer[T any] func() (T, error)

// Coalescer guarantees at most one in-flight producer per id on top of a cache store.
// Successful results are stored before any waiter is released; failures are never cached.
type Coalescer[T any] struct {
	store *cache.Store[T]
	ttl   time.Duration
	group singleflight.Group

	hits      atomic.Int64
	misses    atomic.Int64
	coalesced atomic.Int64
	failures  atomic.Int64
}

// Stats holds coalescer counters
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Coalesced int64 `json:"coalesced"`
	Failures  int64 `json:"failures"`
}

// New creates a coalescer writing to store with the given TTL (store default when <= 0)
func New[T any](store *cache.Store[T], ttl time.Duration) *Coalescer[T] {
	return &Coalescer[T]{store: store, ttl: ttl}
}

// Store returns the underlying cache store
func (c *Coalescer[T]) Store() *cache.Store[T] {
	return c.store
}

// Peek returns the cached value for id without computing it
func (c *Coalescer[T]) Peek(id string) (T, bool) {
	return c.store.Get(id)
}

// GetOrCompute returns the cached value for id, or runs produce once for all
// concurrent callers asking for the same id. A caller whose ctx ends stops
// waiting with an empty Source, but the shared producer keeps running and
// still populates the cache.
func (c *Coalescer[T]) GetOrCompute(ctx context.Context, id string, produce Producer[T]) (T, Source, error) {
	var zero T
	prefix := logcolors.CachePrefix(c.store.Name())

	if v, ok := c.store.Get(id); ok {
		c.hits.Add(1)
		log.Debugf("%s Hit for %s", prefix, id)
		return v, SourceHit, nil
	}

	// set only by the caller whose fn actually runs
	source := SourceCoalesced
	ch := c.group.DoChan(id, func() (any, error) {
		// another flight may have stored the value between our miss and now
		if v, ok := c.store.Get(id); ok {
			source = SourceHit
			c.hits.Add(1)
			return v, nil
		}

		source = SourceMiss
		c.misses.Add(1)
		log.Infof("%s Miss for %s, computing", prefix, id)
		v, err := produce()
		if err != nil {
			c.failures.Add(1)
			return nil, err
		}
		c.store.Put(id, v, c.ttl)
		return v, nil
	})

	select {
	case <-ctx.Done():
		// the caller learned nothing about the outcome, so it reports no source
		return zero, "", ctx.Err()
	case res := <-ch:
		if source == SourceCoalesced {
			c.coalesced.Add(1)
			log.Debugf("%s Request for %s coalesced onto in-flight work", logcolors.LogCoalesce, id)
		}
		if res.Err != nil {
			return zero, source, res.Err
		}
		v, _ := res.Val.(T)
		return v, source, nil
	}
}

// Stats returns a snapshot of the coalescer counters
func (c *Coalescer[T]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Coalesced: c.coalesced.Load(),
		Failures:  c.failures.Load(),
	}
}
