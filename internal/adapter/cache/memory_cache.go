package cache

import (
	"sync"

	"github.com/example/storefront/internal/domain"
)

// MemoryCatalogCache keeps the open shop's catalog in insertion order with
// an index by item identifier.
type MemoryCatalogCache struct {
	mu    sync.RWMutex
	items []domain.Item
	index map[string]int
}

func NewMemoryCatalogCache() *MemoryCatalogCache {
	return &MemoryCatalogCache{index: make(map[string]int)}
}

func (c *MemoryCatalogCache) Replace(items []domain.Item) {
	index := make(map[string]int, len(items))
	stored := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if _, ok := index[it.ID]; ok {
			continue
		}
		index[it.ID] = len(stored)
		stored = append(stored, it)
	}
	c.mu.Lock()
	c.items, c.index = stored, index
	c.mu.Unlock()
}

func (c *MemoryCatalogCache) Get(id string) (domain.Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		return domain.Item{}, false
	}
	return c.items[i], true
}

func (c *MemoryCatalogCache) All() []domain.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Item, len(c.items))
	copy(out, c.items)
	return out
}

var _ domain.CatalogCache = (*MemoryCatalogCache)(nil)
