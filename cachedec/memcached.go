package cachedec

import (
	"github.com/bradfitz/gomemcache/memcache"
	"github.com/cockroachdb/errors"
)

// Memcached is a namespace Cache base backed by a real memcached cluster
// via bradfitz/gomemcache, for deployments that want the namespace cache
// shared across process instances rather than held in-process.
type Memcached struct {
	id     string
	client *memcache.Client
	enc    Codec
}

func NewMemcached(id string, client *memcache.Client, codec Codec) *Memcached {
	if codec == nil {
		codec = GobCodec{}
	}
	return &Memcached{id: id, client: client, enc: codec}
}

func (c *Memcached) ID() string { return c.id }

func (c *Memcached) Put(key, value any) {
	b, err := c.enc.Encode(value)
	if err != nil {
		return
	}
	_ = c.client.Set(&memcache.Item{Key: toCacheKeyString(key), Value: b})
}

func (c *Memcached) Get(key any) (any, bool) {
	item, err := c.client.Get(toCacheKeyString(key))
	if err != nil {
		return nil, false
	}
	v, err := c.enc.Decode(item.Value)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (c *Memcached) Remove(key any) { _ = c.client.Delete(toCacheKeyString(key)) }

// Clear is a best-effort FlushAll: memcached has no per-namespace clear,
// so this affects the whole cluster. Callers that share one memcached
// instance across namespaces should avoid relying on it.
func (c *Memcached) Clear() {
	if err := c.client.FlushAll(); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		// best effort; nothing actionable for the caller here
		_ = err
	}
}

// Size is unsupported by the memcached protocol; it always returns -1.
func (c *Memcached) Size() int { return -1 }
