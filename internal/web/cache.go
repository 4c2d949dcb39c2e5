// internal/web/cache.go
package web

import (
	"sync"
	"time"
)

type cacheEntry struct {
	page    *Page
	fetched time.Time
}

// PageCache is a TTL cache of fetched pages shared across sessions.
type PageCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewPageCache creates a cache whose entries expire after ttl.
func NewPageCache(ttl time.Duration) *PageCache {
	return &PageCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns a fresh cached page, if any.
func (c *PageCache) Get(url string) (*Page, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[url]
	if !ok || time.Since(entry.fetched) > c.ttl {
		return nil, false
	}
	return entry.page, true
}

// GetStale returns a cached page even if expired. Used as a fallback
// when a refresh fetch fails.
func (c *PageCache) GetStale(url string) (*Page, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[url]
	if !ok {
		return nil, false
	}
	return entry.page, true
}

// Put stores a page under its URL.
func (c *PageCache) Put(url string, page *Page) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = cacheEntry{page: page, fetched: time.Now()}
}

// Invalidate drops all cached entries.
func (c *PageCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// URLs returns the URLs currently cached, fresh or stale.
func (c *PageCache) URLs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	urls := make([]string, 0, len(c.entries))
	for u := range c.entries {
		urls = append(urls, u)
	}
	return urls
}

// Len returns the number of cached entries.
func (c *PageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
