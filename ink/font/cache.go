package font

import (
	"container/list"
	"sync"
)

// DefaultCacheSize is the number of glyphs kept by NewCache when size <= 0.
const DefaultCacheSize = 1000

type cacheKey struct {
	glyph       rune
	size        int
	mono        bool
	orientation int
}

type cacheEntry struct {
	key cacheKey
	bmp *Bitmap
}

// Cache is an LRU cache in front of a Source. Misses, including glyphs the
// source does not have, are remembered too. It is safe for concurrent use.
type Cache struct {
	src Source
	max int

	mu    sync.Mutex
	ll    *list.List
	items map[cacheKey]*list.Element

	hits, misses uint64
}

func NewCache(src Source, size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cache{
		src:   src,
		max:   size,
		ll:    list.New(),
		items: make(map[cacheKey]*list.Element),
	}
}

func (c *Cache) Metrics(size int) Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.src.Metrics(size)
}

func (c *Cache) Render(glyph rune, size int, mono bool, orientation int) *Bitmap {
	key := cacheKey{glyph: glyph, size: size, mono: mono, orientation: quarter(orientation)}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		c.hits++
		return el.Value.(*cacheEntry).bmp
	}
	c.misses++
	bmp := c.src.Render(glyph, size, mono, key.orientation)
	c.items[key] = c.ll.PushFront(&cacheEntry{key: key, bmp: bmp})
	for c.ll.Len() > c.max {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
	return bmp
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Clear drops all cached glyphs.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	clear(c.items)
}
