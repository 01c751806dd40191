package flight

import (
	"sync"
	"time"
)

// Cache coalesces concurrent calls for the same key into one execution of
// work and holds finished results for a TTL. The batch pipelines use it so a
// character queued twice in one run only costs one inference.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	finished map[K]entry[V]
	pending  map[K]*job[V]
	work     func(K) (V, error)
	ttl      time.Duration
}

type entry[V any] struct {
	val      V
	deadline time.Time // zero means no expiry
}

type job[V any] struct {
	val  V
	err  error
	done chan struct{}
}

// NewCache builds a cache around work with a one-hour default TTL.
func NewCache[K comparable, V any](work func(K) (V, error)) *Cache[K, V] {
	return &Cache[K, V]{
		finished: make(map[K]entry[V]),
		pending:  make(map[K]*job[V]),
		work:     work,
		ttl:      time.Hour,
	}
}

// Expiry sets the hold duration for future writes. d <= 0 keeps results
// until Invalidate.
func (c *Cache[K, V]) Expiry(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttl = d
}

// Get returns the cached result for k, joins an in-flight computation, or
// runs work itself.
func (c *Cache[K, V]) Get(k K) (V, error) {
	c.mu.Lock()

	if e, ok := c.finished[k]; ok {
		if e.deadline.IsZero() || time.Now().Before(e.deadline) {
			c.mu.Unlock()
			return e.val, nil
		}
		delete(c.finished, k)
	}

	if p, ok := c.pending[k]; ok {
		c.mu.Unlock()
		<-p.done
		return p.val, p.err
	}

	j := &job[V]{done: make(chan struct{})}
	c.pending[k] = j
	c.mu.Unlock()

	j.val, j.err = c.work(k)

	c.mu.Lock()
	if j.err == nil {
		e := entry[V]{val: j.val}
		if c.ttl > 0 {
			e.deadline = time.Now().Add(c.ttl)
		}
		c.finished[k] = e
	}
	close(j.done)
	delete(c.pending, k)
	c.mu.Unlock()

	return j.val, j.err
}

// Force recomputes k, replacing any cached result. Concurrent Force calls
// for the same key serialize.
func (c *Cache[K, V]) Force(k K) (V, error) {
	for {
		c.mu.Lock()
		if p, ok := c.pending[k]; ok {
			c.mu.Unlock()
			<-p.done
			continue
		}
		delete(c.finished, k)
		j := &job[V]{done: make(chan struct{})}
		c.pending[k] = j
		c.mu.Unlock()

		j.val, j.err = c.work(k)

		c.mu.Lock()
		if j.err == nil {
			e := entry[V]{val: j.val}
			if c.ttl > 0 {
				e.deadline = time.Now().Add(c.ttl)
			}
			c.finished[k] = e
		}
		close(j.done)
		delete(c.pending, k)
		c.mu.Unlock()

		return j.val, j.err
	}
}

// Invalidate drops any finished result for k. An in-flight computation is
// left to finish and store itself.
func (c *Cache[K, V]) Invalidate(k K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.finished, k)
}
