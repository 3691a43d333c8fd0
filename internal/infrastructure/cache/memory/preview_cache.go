package memory

import (
	"sync"

	"github.com/dreschagin/kvm-streamer-api/internal/application/port"
)

// PreviewCache keeps the single most recently rendered preview.
type PreviewCache struct {
	mu    sync.RWMutex
	key   port.PreviewKey
	data  []byte
	valid bool
}

// NewPreviewCache creates an empty single-slot preview cache.
func NewPreviewCache() *PreviewCache {
	return &PreviewCache{}
}

// Get returns the cached preview if key matches the stored one.
func (c *PreviewCache) Get(key port.PreviewKey) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.valid || c.key != key {
		return nil, false
	}
	return c.data, true
}

// Put replaces the stored preview.
func (c *PreviewCache) Put(key port.PreviewKey, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.key = key
	c.data = data
	c.valid = true
}

// Len returns 1 when a preview is stored, 0 otherwise.
func (c *PreviewCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.valid {
		return 1
	}
	return 0
}
