package cachedec

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Blocking decorates a Cache so that misses on the same key whose lookups
// overlap in time share one delegate lookup, via
// golang.org/x/sync/singleflight. A miss does not hold the key: the caller
// that missed gets (nil, false) at once, and other callers are not made to
// wait until the entry is Put.
type Blocking struct {
	delegate Cache
	group    singleflight.Group

	mu      sync.Mutex
	pending map[any]struct{}
}

func NewBlocking(delegate Cache) *Blocking {
	return &Blocking{delegate: delegate, pending: make(map[any]struct{})}
}

func (c *Blocking) ID() string { return c.delegate.ID() }

func (c *Blocking) Put(key, value any) {
	c.delegate.Put(key, value)
	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()
}

// Get returns the cached value if present. On a miss, callers for the same
// key whose lookups overlap share one singleflight call, which records the
// key as pending; each of them returns (nil, false) without waiting for a
// later Put.
func (c *Blocking) Get(key any) (any, bool) {
	if v, ok := c.delegate.Get(key); ok {
		return v, true
	}
	v, _, _ := c.group.Do(fmt.Sprint(key), func() (any, error) {
		if v, ok := c.delegate.Get(key); ok {
			return v, nil
		}
		c.mu.Lock()
		c.pending[key] = struct{}{}
		c.mu.Unlock()
		return nil, nil
	})
	if v == nil {
		return nil, false
	}
	return v, true
}

func (c *Blocking) Remove(key any) {
	c.delegate.Remove(key)
	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()
}

func (c *Blocking) Clear() {
	c.delegate.Clear()
	c.mu.Lock()
	c.pending = make(map[any]struct{})
	c.mu.Unlock()
}

func (c *Blocking) Size() int { return c.delegate.Size() }
