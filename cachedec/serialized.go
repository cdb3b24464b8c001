package cachedec

import (
	"bytes"
	"encoding/gob"

	"github.com/cockroachdb/errors"
)

// Serialized decorates a Cache with forced gob round-tripping on every
// Put/Get, matching MyBatis's SerializedCache contract: callers can mutate
// a value after Put (or the value Get returns) without affecting what the
// cache holds, because the cache only ever stores an encoded copy.
type Serialized struct {
	delegate Cache
}

func NewSerialized(delegate Cache) *Serialized {
	return &Serialized{delegate: delegate}
}

func (c *Serialized) ID() string { return c.delegate.ID() }

func (c *Serialized) Put(key, value any) {
	if value == nil {
		c.delegate.Put(key, nil)
		return
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&value); err != nil {
		panic(errors.Wrapf(err, "cachedec: serialize value for key %v", key))
	}
	c.delegate.Put(key, buf.Bytes())
}

func (c *Serialized) Get(key any) (any, bool) {
	raw, ok := c.delegate.Get(key)
	if !ok || raw == nil {
		return raw, ok
	}
	b, ok := raw.([]byte)
	if !ok {
		return raw, true // not something we serialized; pass through
	}
	var value any
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&value); err != nil {
		panic(errors.Wrapf(err, "cachedec: deserialize value for key %v", key))
	}
	return value, true
}

func (c *Serialized) Remove(key any) { c.delegate.Remove(key) }

func (c *Serialized) Clear() { c.delegate.Clear() }

func (c *Serialized) Size() int { return c.delegate.Size() }
