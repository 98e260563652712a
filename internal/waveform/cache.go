package waveform

import (
	"sync"

	"github.com/mmcdole/tapedeck/internal/domain"
)

// BufferCache maps track IDs to their decoded buffers for the lifetime of
// the process. Entries are write-once and never evicted.
type BufferCache struct {
	mu      sync.RWMutex
	entries map[domain.TrackID]*Buffer
}

// NewBufferCache creates an empty cache
func NewBufferCache() *BufferCache {
	return &BufferCache{entries: make(map[domain.TrackID]*Buffer)}
}

// Get returns the buffer for id, if one has been decoded
func (c *BufferCache) Get(id domain.TrackID) (*Buffer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	buf, ok := c.entries[id]
	return buf, ok
}

// Set stores buf under id. A second Set for an existing id is a no-op.
// It reports whether buf was stored.
func (c *BufferCache) Set(id domain.TrackID, buf *Buffer) bool {
	if buf == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; ok {
		return false
	}
	c.entries[id] = buf
	return true
}

// Len returns the number of cached buffers
func (c *BufferCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
