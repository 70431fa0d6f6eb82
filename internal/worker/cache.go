package worker

import (
	"container/list"
	"sync"
)

// findingsCache is a fixed-capacity LRU cache of research findings keyed by
// normalized query. The reference design kept this unbounded; capacity is
// explicit here so long-lived hosts cannot grow it without limit.
type findingsCache struct {
	capacity int
	mu       sync.Mutex
	order    *list.List
	entries  map[string]*list.Element
}

type cacheEntry struct {
	key     string
	findings string
}

// newFindingsCache creates a cache holding at most capacity entries.
func newFindingsCache(capacity int) *findingsCache {
	return &findingsCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// Get returns the cached findings for key and whether they were present.
// A hit moves the entry to the front of the eviction order.
func (c *findingsCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return "", false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).findings, true
}

// Put stores findings for key, evicting the least recently used entry when
// the cache is full.
func (c *findingsCache) Put(key, findings string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).findings = findings
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&cacheEntry{key: key, findings: findings})
	c.entries[key] = el

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Clear removes all entries.
func (c *findingsCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[string]*list.Element)
}

// Len returns the number of cached entries.
func (c *findingsCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
