package cachedec

import (
	"time"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/allegro/bigcache"
	"github.com/cockroachdb/errors"
	"github.com/coocood/freecache"
	"github.com/dgraph-io/ristretto/v2"
	cmap "github.com/orcaman/concurrent-map/v2"
	gocache "github.com/patrickmn/go-cache"
)

// BigCache is a namespace Cache base backed by allegro/bigcache, suited to
// namespaces with many entries and a preference for GC-friendly off-heap
// byte storage over PerpetualCache's plain map.
type BigCache struct {
	id  string
	bc  *bigcache.BigCache
	enc Codec
}

// Codec serializes cache values to bytes for byte-oriented bases
// (BigCache, FreeCache, FastCache). Callers supply one matching their
// value types; GobCodec{} is the default used by NewBigCache et al.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(b []byte) (any, error)
}

func NewBigCache(id string, life time.Duration, codec Codec) (*BigCache, error) {
	bc, err := bigcache.NewBigCache(bigcache.DefaultConfig(life))
	if err != nil {
		return nil, errors.Wrap(err, "cachedec: init bigcache")
	}
	if codec == nil {
		codec = GobCodec{}
	}
	return &BigCache{id: id, bc: bc, enc: codec}, nil
}

func (c *BigCache) ID() string { return c.id }

func (c *BigCache) Put(key, value any) {
	b, err := c.enc.Encode(value)
	if err != nil {
		return
	}
	_ = c.bc.Set(toCacheKeyString(key), b)
}

func (c *BigCache) Get(key any) (any, bool) {
	b, err := c.bc.Get(toCacheKeyString(key))
	if err != nil {
		return nil, false
	}
	v, err := c.enc.Decode(b)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (c *BigCache) Remove(key any) { _ = c.bc.Delete(toCacheKeyString(key)) }

func (c *BigCache) Clear() { _ = c.bc.Reset() }

func (c *BigCache) Size() int { return c.bc.Len() }

// Ristretto is a namespace Cache base backed by dgraph-io/ristretto/v2, a
// high-throughput admission-counted cache suited to read-heavy namespaces.
type Ristretto struct {
	id    string
	cache *ristretto.Cache[string, any]
}

func NewRistretto(id string, numCounters, maxCost int64) (*Ristretto, error) {
	rc, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: numCounters,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "cachedec: init ristretto")
	}
	return &Ristretto{id: id, cache: rc}, nil
}

func (c *Ristretto) ID() string { return c.id }

func (c *Ristretto) Put(key, value any) {
	c.cache.Set(toCacheKeyString(key), value, 1)
	c.cache.Wait()
}

func (c *Ristretto) Get(key any) (any, bool) { return c.cache.Get(toCacheKeyString(key)) }

func (c *Ristretto) Remove(key any) { c.cache.Del(toCacheKeyString(key)) }

func (c *Ristretto) Clear() { c.cache.Clear() }

func (c *Ristretto) Size() int { return int(c.cache.Metrics.KeysAdded() - c.cache.Metrics.KeysEvicted()) }

// FreeCache is a namespace Cache base backed by coocood/freecache, a
// zero-GC-pressure ring-buffer cache suited to very high churn namespaces.
type FreeCache struct {
	id  string
	fc  *freecache.Cache
	enc Codec
}

func NewFreeCache(id string, sizeBytes int, codec Codec) *FreeCache {
	if codec == nil {
		codec = GobCodec{}
	}
	return &FreeCache{id: id, fc: freecache.NewCache(sizeBytes), enc: codec}
}

func (c *FreeCache) ID() string { return c.id }

func (c *FreeCache) Put(key, value any) {
	b, err := c.enc.Encode(value)
	if err != nil {
		return
	}
	_ = c.fc.Set([]byte(toCacheKeyString(key)), b, 0)
}

func (c *FreeCache) Get(key any) (any, bool) {
	b, err := c.fc.Get([]byte(toCacheKeyString(key)))
	if err != nil {
		return nil, false
	}
	v, err := c.enc.Decode(b)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (c *FreeCache) Remove(key any) { c.fc.Del([]byte(toCacheKeyString(key))) }

func (c *FreeCache) Clear() { c.fc.Clear() }

func (c *FreeCache) Size() int { return int(c.fc.EntryCount()) }

// FastCache is a namespace Cache base backed by VictoriaMetrics/fastcache,
// a memory-bounded byte cache with no per-key TTL, suited to fixed-size
// namespaces that need predictable memory ceilings.
type FastCache struct {
	id  string
	fc  *fastcache.Cache
	enc Codec
}

func NewFastCache(id string, maxBytes int, codec Codec) *FastCache {
	if codec == nil {
		codec = GobCodec{}
	}
	return &FastCache{id: id, fc: fastcache.New(maxBytes), enc: codec}
}

func (c *FastCache) ID() string { return c.id }

func (c *FastCache) Put(key, value any) {
	b, err := c.enc.Encode(value)
	if err != nil {
		return
	}
	c.fc.Set([]byte(toCacheKeyString(key)), b)
}

func (c *FastCache) Get(key any) (any, bool) {
	b, ok := c.fc.HasGet(nil, []byte(toCacheKeyString(key)))
	if !ok {
		return nil, false
	}
	v, err := c.enc.Decode(b)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (c *FastCache) Remove(key any) { c.fc.Del([]byte(toCacheKeyString(key))) }

func (c *FastCache) Clear() { c.fc.Reset() }

func (c *FastCache) Size() int {
	var s fastcache.Stats
	c.fc.UpdateStats(&s)
	return int(s.EntriesCount)
}

// ConcurrentMap is a namespace Cache base backed by
// orcaman/concurrent-map/v2, sharding its locks across the keyspace
// instead of PerpetualCache's single RWMutex.
type ConcurrentMap struct {
	id string
	m  cmap.ConcurrentMap[string, any]
}

func NewConcurrentMap(id string) *ConcurrentMap {
	return &ConcurrentMap{id: id, m: cmap.New[any]()}
}

func (c *ConcurrentMap) ID() string { return c.id }

func (c *ConcurrentMap) Put(key, value any) { c.m.Set(toCacheKeyString(key), value) }

func (c *ConcurrentMap) Get(key any) (any, bool) { return c.m.Get(toCacheKeyString(key)) }

func (c *ConcurrentMap) Remove(key any) { c.m.Remove(toCacheKeyString(key)) }

func (c *ConcurrentMap) Clear() { c.m.Clear() }

func (c *ConcurrentMap) Size() int { return c.m.Count() }

// GoCache is a namespace Cache base backed by patrickmn/go-cache, a
// plain in-process map with a background janitor that expires entries
// on a fixed TTL with no per-entry size accounting, suited to small
// namespaces that just want "forget this after N minutes" semantics
// without reaching for an eviction policy.
type GoCache struct {
	id string
	gc *gocache.Cache
}

func NewGoCache(id string, ttl time.Duration) *GoCache {
	return &GoCache{id: id, gc: gocache.New(ttl, ttl*2)}
}

func (c *GoCache) ID() string { return c.id }

func (c *GoCache) Put(key, value any) { c.gc.SetDefault(toCacheKeyString(key), value) }

func (c *GoCache) Get(key any) (any, bool) { return c.gc.Get(toCacheKeyString(key)) }

func (c *GoCache) Remove(key any) { c.gc.Delete(toCacheKeyString(key)) }

func (c *GoCache) Clear() { c.gc.Flush() }

func (c *GoCache) Size() int { return c.gc.ItemCount() }
