// Package compilecache implements the Compilation Cache (C2): a
// content-addressed (formula-text → AST + BindingPlan) LRU cache that
// guarantees at-most-one parse per formula text across concurrent callers.
package compilecache

import (
	"container/list"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/LegoTypes/synthformula/internal/types"
)

// Entry is the cached artifact pair for one formula text (§3 "Caches:
// CompilationCache: hash(formula_text) → (AST, BindingPlan)").
type Entry struct {
	Expr *types.Expression
	Plan *types.BindingPlan
}

type listEntry struct {
	key   string
	entry Entry
}

// Stats reports point-in-time cache statistics (§4.2 `stats()`).
type Stats struct {
	Entries  int
	Hits     uint64
	Misses   uint64
	HitRate  float64
	Capacity int
}

// Cache is the LRU compilation cache. Safe for concurrent use; `GetOrParse`
// guarantees at-most-one parse per formula text via singleflight, matching
// the teacher's LRU discipline (`pkg/cache/cache.go`) plus the
// single-flight contract spec.md §4.2 requires and the teacher's own cache
// does not provide.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
	group    singleflight.Group

	hits   uint64
	misses uint64
}

// New creates a compilation cache bounded at capacity entries (default 1000
// per spec.md §3, applied when capacity <= 0).
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// GetOrParse returns the cached (AST, BindingPlan) for text, parsing and
// building the binding plan at most once per text even under concurrent
// calls (§4.2 "at-most-one parse per text (single-flight)"). build is
// invoked only on a cache miss.
func (c *Cache) GetOrParse(text string, build func() (*types.Expression, *types.BindingPlan, error)) (Entry, error) {
	if e, ok := c.get(text); ok {
		return e, nil
	}

	v, err, _ := c.group.Do(text, func() (interface{}, error) {
		// Re-check: another goroutine may have populated the cache while we
		// waited to enter the singleflight group.
		if e, ok := c.get(text); ok {
			return e, nil
		}
		expr, plan, err := build()
		if err != nil {
			return nil, err
		}
		e := Entry{Expr: expr, Plan: plan}
		c.set(text, e)
		return e, nil
	})
	if err != nil {
		return Entry{}, err
	}
	return v.(Entry), nil
}

func (c *Cache) get(key string) (Entry, bool) {
	c.mu.RLock()
	el, ok := c.items[key]
	alreadyFront := ok && c.ll.Front() == el
	c.mu.RUnlock()
	if !ok {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return Entry{}, false
	}

	if !alreadyFront {
		c.mu.Lock()
		el, ok = c.items[key]
		if ok {
			c.ll.MoveToFront(el)
		}
		c.mu.Unlock()
		if !ok {
			return Entry{}, false
		}
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	return el.Value.(*listEntry).entry, true
}

func (c *Cache) set(key string, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*listEntry).entry = entry
		c.ll.MoveToFront(el)
		return
	}

	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}

	el := c.ll.PushFront(&listEntry{key: key, entry: entry})
	c.items[key] = el
}

func (c *Cache) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*listEntry).key)
}

// ClearAll empties the cache, used on configuration reload (§4.2
// `clear_all()`; §8 "For every configuration reload, both caches are
// cleared before the first subsequent evaluation").
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

// Stats returns a snapshot of cache statistics (§4.2 `stats()`).
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hits + c.misses
	var rate float64
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Stats{
		Entries:  len(c.items),
		Hits:     c.hits,
		Misses:   c.misses,
		HitRate:  rate,
		Capacity: c.capacity,
	}
}
