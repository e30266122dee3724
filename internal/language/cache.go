package language

import (
	"container/list"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultCacheSize is the capacity used when NewCache receives n <= 0.
const DefaultCacheSize = 512

// Cache memoizes parsed programs by source text. Programs are immutable, so
// one cached program serves any number of concurrent evaluations.
type Cache struct {
	mu      sync.Mutex
	max     int
	entries map[uint64]*list.Element
	lru     *list.List

	hits, misses uint64
}

type cacheEntry struct {
	key  uint64
	prog *Program
}

// NewCache returns an LRU cache holding at most n programs.
func NewCache(n int) *Cache {
	if n <= 0 {
		n = DefaultCacheSize
	}
	return &Cache{max: n, entries: make(map[uint64]*list.Element, n), lru: list.New()}
}

// Parse returns the cached program for src, parsing it on a miss. Syntax
// errors are not cached.
func (c *Cache) Parse(src string) (*Program, error) {
	key := xxhash.Sum64String(src)

	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		ent := el.Value.(*cacheEntry)
		if ent.prog.Source == src {
			c.lru.MoveToFront(el)
			c.hits++
			c.mu.Unlock()
			return ent.prog, nil
		}
	}
	c.misses++
	c.mu.Unlock()

	prog, err := Parse(src)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		// collision or a concurrent fill; the latest parse wins
		el.Value = &cacheEntry{key: key, prog: prog}
		c.lru.MoveToFront(el)
		return prog, nil
	}
	c.entries[key] = c.lru.PushFront(&cacheEntry{key: key, prog: prog})
	for c.lru.Len() > c.max {
		last := c.lru.Back()
		c.lru.Remove(last)
		delete(c.entries, last.Value.(*cacheEntry).key)
	}
	return prog, nil
}

// Stats reports cache hits, misses and current size.
func (c *Cache) Stats() (hits, misses uint64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.lru.Len()
}
