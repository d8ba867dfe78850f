package feed

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache remembers the fetched content per key (a Preview node id), so a
// preview fetches its feed once however many times it is rendered.
// Concurrent first requests for the same key share one fetch.
type Cache struct {
	source Source

	mu    sync.Mutex
	items map[string][]ContentItem
	group singleflight.Group
}

// NewCache creates a cache in front of source.
func NewCache(source Source) *Cache {
	return &Cache{
		source: source,
		items:  make(map[string][]ContentItem),
	}
}

// Get returns the content for key, fetching it on first use. Failed fetches
// are not cached.
func (c *Cache) Get(ctx context.Context, key string) ([]ContentItem, error) {
	c.mu.Lock()
	if items, ok := c.items[key]; ok {
		c.mu.Unlock()
		return slices.Clone(items), nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		cached, ok := c.items[key]
		c.mu.Unlock()
		if ok {
			return cached, nil
		}
		items, err := c.source.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.items[key] = items
		c.mu.Unlock()
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]ContentItem)), nil
}

// Forget drops the cached content for key.
func (c *Cache) Forget(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}
