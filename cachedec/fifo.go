package cachedec

import "sync"

// FIFO decorates a Cache with first-in-first-out eviction: the oldest
// inserted key (irrespective of access pattern) is evicted once size is
// exceeded.
type FIFO struct {
	delegate Cache
	size     int

	mu    sync.Mutex
	queue []any
	keys  map[any]struct{}
}

func NewFIFO(delegate Cache, size int) *FIFO {
	return &FIFO{delegate: delegate, size: size, keys: make(map[any]struct{})}
}

func (c *FIFO) ID() string { return c.delegate.ID() }

func (c *FIFO) Put(key, value any) {
	c.delegate.Put(key, value)
	c.mu.Lock()
	if _, exists := c.keys[key]; !exists {
		c.queue = append(c.queue, key)
		c.keys[key] = struct{}{}
	}
	var evict any
	hasEvict := false
	if len(c.queue) > c.size {
		evict = c.queue[0]
		c.queue = c.queue[1:]
		delete(c.keys, evict)
		hasEvict = true
	}
	c.mu.Unlock()
	if hasEvict {
		c.delegate.Remove(evict)
	}
}

func (c *FIFO) Get(key any) (any, bool) { return c.delegate.Get(key) }

func (c *FIFO) Remove(key any) {
	c.delegate.Remove(key)
	c.mu.Lock()
	if _, exists := c.keys[key]; exists {
		delete(c.keys, key)
		for i, k := range c.queue {
			if k == key {
				c.queue = append(c.queue[:i], c.queue[i+1:]...)
				break
			}
		}
	}
	c.mu.Unlock()
}

func (c *FIFO) Clear() {
	c.delegate.Clear()
	c.mu.Lock()
	c.queue = nil
	c.keys = make(map[any]struct{})
	c.mu.Unlock()
}

func (c *FIFO) Size() int { return c.delegate.Size() }
