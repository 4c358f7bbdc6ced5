package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// LRUCache is a size-bounded cache with per-entry TTL.
// A zero or negative ttl disables expiry.
type LRUCache[T any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	index    map[string]*list.Element
	order    *list.List // front is most recently used

	hits   atomic.Int64
	misses atomic.Int64
	now    func() time.Time
}

type entry[T any] struct {
	key     string
	value   T
	expires time.Time
}

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Size   int   `json:"size"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// NewLRUCache returns an empty cache holding at most capacity entries.
func NewLRUCache[T any](capacity int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		capacity: max(capacity, 1),
		ttl:      ttl,
		index:    make(map[string]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

func (c *LRUCache[T]) stale(e *entry[T], at time.Time) bool {
	return c.ttl > 0 && at.After(e.expires)
}

func (c *LRUCache[T]) drop(el *list.Element) {
	delete(c.index, el.Value.(*entry[T]).key)
	c.order.Remove(el)
}

// Get returns the live value for key and marks it most recently used.
// Expired entries are dropped on access and count as misses.
func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		e := el.Value.(*entry[T])
		if !c.stale(e, c.now()) {
			c.order.MoveToFront(el)
			c.hits.Add(1)
			return e.value, true
		}
		c.drop(el)
	}
	c.misses.Add(1)
	var zero T
	return zero, false
}

// Set inserts or replaces key, evicting the least recently used entry when
// the cache is over capacity.
func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{key: key, value: value, expires: c.now().Add(c.ttl)}
	if el, ok := c.index[key]; ok {
		el.Value = e
		c.order.MoveToFront(el)
		return
	}
	c.index[key] = c.order.PushFront(e)

	for c.order.Len() > c.capacity {
		c.drop(c.order.Back())
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.drop(el)
	}
}

// Purge drops every entry and returns how many were removed.
func (c *LRUCache[T]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.order.Len()
	clear(c.index)
	c.order.Init()
	return n
}

// CleanExpired removes stale entries and reports how many went.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ttl <= 0 {
		return 0
	}
	at := c.now()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if c.stale(el.Value.(*entry[T]), at) {
			c.drop(el)
			removed++
		}
		el = prev
	}
	return removed
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns size and hit/miss counters.
func (c *LRUCache[T]) Stats() Stats {
	return Stats{Size: c.Size(), Hits: c.hits.Load(), Misses: c.misses.Load()}
}
