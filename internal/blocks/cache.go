// cache.go provides the in-memory read-through cache for fragments and
// directory listings. Fragments never change within a process lifetime, so
// entries are never invalidated.
package blocks

import (
	"log/slog"
	"sync"
)

// fragmentKey uniquely identifies a fragment file.
type fragmentKey struct {
	emailType string
	aesthetic string
	slot      string
	filename  string
}

// fragmentCache is a concurrency-safe cache of fragment text and listings.
// Only successful lookups are cached; a miss is re-checked on every call.
type fragmentCache struct {
	mu        sync.RWMutex
	fragments map[fragmentKey]string
	listings  map[string][]Entry
}

func newFragmentCache() *fragmentCache {
	return &fragmentCache{
		fragments: make(map[fragmentKey]string),
		listings:  make(map[string][]Entry),
	}
}

func (c *fragmentCache) get(k fragmentKey) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	text, ok := c.fragments[k]
	return text, ok
}

func (c *fragmentCache) put(k fragmentKey, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fragments[k] = text
	slog.Debug("fragment cached", "type", k.emailType, "aesthetic", k.aesthetic, "slot", k.slot, "file", k.filename)
}

func (c *fragmentCache) getList(dir string) ([]Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries, ok := c.listings[dir]
	return entries, ok
}

func (c *fragmentCache) putList(dir string, entries []Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listings[dir] = entries
}
