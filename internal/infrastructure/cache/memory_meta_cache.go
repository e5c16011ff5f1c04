package cache

import (
	"context"
	"sync"

	"github.com/shopkit/backend/internal/domain/shared"
)

// MemoryMetaCache is an in-process meta cache for tests and single-node
// deployments. It holds deep-enough copies that callers cannot mutate a
// cached row slice after storing it.
type MemoryMetaCache struct {
	mu      sync.RWMutex
	entries map[string][]shared.MetaRow
}

// NewMemoryMetaCache creates an empty in-memory meta cache.
func NewMemoryMetaCache() *MemoryMetaCache {
	return &MemoryMetaCache{entries: make(map[string][]shared.MetaRow)}
}

// Get returns the cached rows for an entity and whether the key was present.
func (c *MemoryMetaCache) Get(ctx context.Context, kind string, id uint64) ([]shared.MetaRow, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rows, ok := c.entries[metaKey(kind, id)]
	if !ok {
		return nil, false, nil
	}
	out := make([]shared.MetaRow, len(rows))
	copy(out, rows)
	return out, true, nil
}

// Set stores the rows for an entity, replacing any previous entry.
func (c *MemoryMetaCache) Set(ctx context.Context, kind string, id uint64, rows []shared.MetaRow) error {
	stored := make([]shared.MetaRow, len(rows))
	copy(stored, rows)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[metaKey(kind, id)] = stored
	return nil
}

// Invalidate drops the entry for an entity.
func (c *MemoryMetaCache) Invalidate(ctx context.Context, kind string, id uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, metaKey(kind, id))
	return nil
}

// Len reports how many entities currently have cached meta.
func (c *MemoryMetaCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
