package ingest

import (
	"fmt"
	"sync"
)

// GridCache memoizes NWS coordinate→gridpoint lookups with a bounded LRU.
// It is injected into the adapter rather than held as package state so one
// cache can be scoped to a run or to the process, and tests can substitute
// a fresh one.
type GridCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*gridEntry
	head       *gridEntry // most recently used
	tail       *gridEntry // least recently used
}

type gridEntry struct {
	key  string
	url  string
	prev *gridEntry
	next *gridEntry
}

// NewGridCache creates a cache holding at most maxEntries lookups.
func NewGridCache(maxEntries int) *GridCache {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &GridCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*gridEntry),
	}
}

func gridKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}

// Get returns the cached gridpoint URL for the coordinates, if present.
func (c *GridCache) Get(lat, lon float64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[gridKey(lat, lon)]
	if !ok {
		return "", false
	}
	c.moveToFront(e)
	return e.url, true
}

// Put stores a gridpoint URL, evicting the least recently used entry when
// the cache is full.
func (c *GridCache) Put(lat, lon float64, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := gridKey(lat, lon)
	if e, ok := c.entries[key]; ok {
		e.url = url
		c.moveToFront(e)
		return
	}

	e := &gridEntry{key: key, url: url}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

// Len reports the current number of cached lookups.
func (c *GridCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *GridCache) moveToFront(e *gridEntry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *GridCache) addToFront(e *gridEntry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *GridCache) unlink(e *gridEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

func (c *GridCache) evictTail() {
	if c.tail == nil {
		return
	}
	evicted := c.tail
	c.unlink(evicted)
	delete(c.entries, evicted.key)
}
