package cachedec

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU decorates a Cache with least-recently-used eviction backed by
// hashicorp/golang-lru/v2, capped at size entries: the index tracks
// recency, and its eviction callback removes the corresponding entry from
// the wrapped delegate so the two stay in sync.
type LRU struct {
	delegate Cache
	index    *lru.Cache[any, struct{}]
}

// NewLRU wraps delegate with an LRU eviction policy of the given size.
func NewLRU(delegate Cache, size int) (*LRU, error) {
	c := &LRU{delegate: delegate}
	idx, err := lru.NewWithEvict[any, struct{}](size, func(key any, _ struct{}) {
		delegate.Remove(key)
	})
	if err != nil {
		return nil, err
	}
	c.index = idx
	return c, nil
}

func (c *LRU) ID() string { return c.delegate.ID() }

func (c *LRU) Put(key, value any) {
	c.delegate.Put(key, value)
	c.index.Add(key, struct{}{})
}

func (c *LRU) Get(key any) (any, bool) {
	v, ok := c.delegate.Get(key)
	if ok {
		c.index.Get(key) // refresh recency
	}
	return v, ok
}

func (c *LRU) Remove(key any) {
	c.delegate.Remove(key)
	c.index.Remove(key)
}

func (c *LRU) Clear() {
	c.delegate.Clear()
	c.index.Purge()
}

func (c *LRU) Size() int { return c.delegate.Size() }
