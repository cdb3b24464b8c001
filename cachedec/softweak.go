package cachedec

import (
	"fmt"
	"time"

	"github.com/karlseguin/ccache/v3"
)

// SoftWeak approximates a soft/weak-reference eviction decorator. Go has
// no soft/weak references, so this decorator keeps a karlseguin/ccache/v3
// index bounded by item count and by time: an entry is dropped once ccache
// prunes it to stay within maxItems (least recently used first) or once
// ttl has passed since its last Put. Memory pressure plays no part; the
// shared contract with a soft/weak reference is only that an entry may be
// gone before the caller needs it.
type SoftWeak struct {
	delegate Cache
	idx      *ccache.Cache[struct{}]
	ttl      time.Duration
}

// NewSoftWeak wraps delegate; maxItems bounds ccache's internal size, ttl
// bounds how long an entry survives after its last Put (a Get does not
// extend it).
func NewSoftWeak(delegate Cache, maxItems int64, ttl time.Duration) *SoftWeak {
	idx := ccache.New(ccache.Configure[struct{}]().MaxSize(maxItems))
	return &SoftWeak{delegate: delegate, idx: idx, ttl: ttl}
}

func (c *SoftWeak) ID() string { return c.delegate.ID() }

func (c *SoftWeak) Put(key, value any) {
	c.delegate.Put(key, value)
	c.idx.Set(toCacheKeyString(key), struct{}{}, c.ttl)
}

func (c *SoftWeak) Get(key any) (any, bool) {
	item := c.idx.Get(toCacheKeyString(key))
	if item == nil || item.Expired() {
		c.delegate.Remove(key)
		return nil, false
	}
	return c.delegate.Get(key)
}

func (c *SoftWeak) Remove(key any) {
	c.delegate.Remove(key)
	c.idx.Delete(toCacheKeyString(key))
}

func (c *SoftWeak) Clear() {
	c.delegate.Clear()
	c.idx.Clear()
}

func (c *SoftWeak) Size() int { return c.delegate.Size() }

func toCacheKeyString(key any) string {
	if s, ok := key.(string); ok {
		return s
	}
	if stringer, ok := key.(interface{ String() string }); ok {
		return stringer.String()
	}
	return fmt.Sprint(key) // e.g. the int64 hash codes exec.Caching uses as keys
}
