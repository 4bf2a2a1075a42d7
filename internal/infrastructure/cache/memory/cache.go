// Package memory is an in-process LRU response cache with per-entry TTL.
package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
)

const defaultMaxEntries = 1024

type Cache struct {
	mu         sync.Mutex
	maxEntries int
	items      map[string]*list.Element
	order      *list.List
	hits       int64
	misses     int64
	now        func() time.Time
}

func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Cache{
		maxEntries: maxEntries,
		items:      make(map[string]*list.Element, maxEntries),
		order:      list.New(),
		now:        time.Now,
	}
}

// Get returns a live entry and marks it most recently used. Expired entries
// are evicted on access.
func (c *Cache) Get(_ context.Context, fingerprint string) (domain.CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[fingerprint]
	if !ok {
		c.misses++
		return domain.CacheEntry{}, false
	}
	entry := elem.Value.(domain.CacheEntry)
	if entry.Expired(c.now()) {
		c.remove(elem)
		c.misses++
		return domain.CacheEntry{}, false
	}
	c.order.MoveToFront(elem)
	c.hits++
	return entry, true
}

func (c *Cache) Put(_ context.Context, fingerprint string, response domain.QueryResponse, ttl time.Duration) error {
	now := c.now()
	entry := domain.CacheEntry{
		Fingerprint: fingerprint,
		Response:    response,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[fingerprint]; ok {
		elem.Value = entry
		c.order.MoveToFront(elem)
		return nil
	}
	for len(c.items) >= c.maxEntries {
		c.remove(c.order.Back())
	}
	c.items[fingerprint] = c.order.PushFront(entry)
	return nil
}

func (c *Cache) InvalidateAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element, c.maxEntries)
	c.order.Init()
	return nil
}

func (c *Cache) Stats() domain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.CacheStats{
		Backend: "memory",
		Entries: len(c.items),
		Hits:    c.hits,
		Misses:  c.misses,
	}
}

func (c *Cache) remove(elem *list.Element) {
	if elem == nil {
		return
	}
	c.order.Remove(elem)
	delete(c.items, elem.Value.(domain.CacheEntry).Fingerprint)
}
