package assets

import (
	"sync"

	"github.com/MNasiifu/automobile-association-sub000/permit"
)

// LogoCache is a single-slot store for the resolved organization logo.
type LogoCache interface {
	Get() (permit.ResolvedAsset, bool)
	Set(asset permit.ResolvedAsset)
	Clear()
}

// MemoryCache is an in-memory LogoCache. Last write wins; entries never
// expire on their own.
type MemoryCache struct {
	mu    sync.RWMutex
	asset permit.ResolvedAsset
	ok    bool
}

func NewMemoryCache() *MemoryCache { return &MemoryCache{} }

func (c *MemoryCache) Get() (permit.ResolvedAsset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.asset, c.ok
}

func (c *MemoryCache) Set(asset permit.ResolvedAsset) {
	c.mu.Lock()
	c.asset, c.ok = asset, true
	c.mu.Unlock()
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	c.asset, c.ok = permit.ResolvedAsset{}, false
	c.mu.Unlock()
}
