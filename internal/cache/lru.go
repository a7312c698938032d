// internal/cache/lru.go
//
// Small LRU cache with per-entry expiry.  The CSRF layer keeps the nonces of
// spent tokens here so a token is accepted once.  Capacity bounds memory;
// entries also fall out once their TTL passes.  Safe for concurrent use.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU is a least-recently-used cache whose entries expire after a fixed TTL.
type LRU[K comparable, V any] struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	now  func() time.Time
	ll   *list.List
	dict map[K]*list.Element
}

type entry[K comparable, V any] struct {
	key K
	val V
	exp time.Time
}

// New returns an LRU with the given capacity and TTL.  Panics on cap < 1.
// ttl <= 0 means entries never expire.
func New[K comparable, V any](capacity int, ttl time.Duration) *LRU[K, V] {
	if capacity < 1 {
		panic("cache: capacity must be ≥1")
	}
	return &LRU[K, V]{
		cap:  capacity,
		ttl:  ttl,
		now:  time.Now,
		ll:   list.New(),
		dict: make(map[K]*list.Element, capacity),
	}
}

// Get retrieves a live value and marks it MRU.
func (c *LRU[K, V]) Get(key K) (val V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ele, hit := c.lookup(key)
	if !hit {
		return val, false
	}
	c.ll.MoveToFront(ele)
	return ele.Value.(*entry[K, V]).val, true
}

// Add inserts or updates a value and restarts its TTL.
func (c *LRU[K, V]) Add(key K, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, hit := c.dict[key]; hit {
		e := ele.Value.(*entry[K, V])
		e.val, e.exp = val, c.expiry()
		c.ll.MoveToFront(ele)
		return
	}
	c.insert(key, val)
}

// AddIfAbsent inserts key unless a live entry exists.  It reports whether the
// value was added.  The check and insert are atomic.
func (c *LRU[K, V]) AddIfAbsent(key K, val V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, hit := c.lookup(key); hit {
		return false
	}
	c.insert(key, val)
	return true
}

// Len reports current size, expired entries not yet evicted included.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// lookup returns the live element for key, dropping it if expired.  Requires c.mu.
func (c *LRU[K, V]) lookup(key K) (*list.Element, bool) {
	ele, hit := c.dict[key]
	if !hit {
		return nil, false
	}
	if e := ele.Value.(*entry[K, V]); !e.exp.IsZero() && !c.now().Before(e.exp) {
		c.ll.Remove(ele)
		delete(c.dict, key)
		return nil, false
	}
	return ele, true
}

// insert adds a fresh entry and evicts the LRU one past capacity.  Requires c.mu.
func (c *LRU[K, V]) insert(key K, val V) {
	if old, hit := c.dict[key]; hit {
		c.ll.Remove(old)
	}
	c.dict[key] = c.ll.PushFront(&entry[K, V]{key: key, val: val, exp: c.expiry()})
	if c.ll.Len() > c.cap {
		last := c.ll.Back()
		c.ll.Remove(last)
		delete(c.dict, last.Value.(*entry[K, V]).key)
	}
}

func (c *LRU[K, V]) expiry() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(c.ttl)
}
