package cachedec

import "sync"

// Synchronized decorates a Cache with a coarse-grained mutex around every
// call, for delegates (such as a raw map-backed base) that are not safe
// for concurrent use on their own.
type Synchronized struct {
	delegate Cache
	mu       sync.Mutex
}

func NewSynchronized(delegate Cache) *Synchronized {
	return &Synchronized{delegate: delegate}
}

func (c *Synchronized) ID() string { return c.delegate.ID() }

func (c *Synchronized) Put(key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delegate.Put(key, value)
}

func (c *Synchronized) Get(key any) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delegate.Get(key)
}

func (c *Synchronized) Remove(key any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delegate.Remove(key)
}

func (c *Synchronized) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delegate.Clear()
}

func (c *Synchronized) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delegate.Size()
}
