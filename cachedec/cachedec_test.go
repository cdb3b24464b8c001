package cachedec

import (
	"encoding/gob"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gob.Register(map[string]int{})
}

func TestLRUEvictsFromDelegate(t *testing.T) {
	base := NewPerpetualCache("t")
	l, err := NewLRU(base, 2)
	require.NoError(t, err)

	l.Put("a", 1)
	l.Put("b", 2)
	l.Put("c", 3) // evicts "a"

	_, ok := base.Get("a")
	assert.False(t, ok, "evicted key must be removed from the delegate, not just the LRU index")
	v, ok := l.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestFIFOEvictsOldest(t *testing.T) {
	base := NewPerpetualCache("t")
	f := NewFIFO(base, 2)

	f.Put("a", 1)
	f.Put("b", 2)
	f.Put("c", 3)

	_, ok := f.Get("a")
	assert.False(t, ok)
	v, ok := f.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestSerializedRoundTrip(t *testing.T) {
	base := NewPerpetualCache("t")
	s := NewSerialized(base)

	s.Put("k", map[string]int{"x": 1})
	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, map[string]int{"x": 1}, v)
}

func TestBlockingFirstMissThenHit(t *testing.T) {
	base := NewPerpetualCache("t")
	b := NewBlocking(base)

	_, ok := b.Get("k")
	assert.False(t, ok)

	b.Put("k", "value")
	v, ok := b.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "value", v)
}

func TestGoCachePutGetRemoveClear(t *testing.T) {
	c := NewGoCache("ns", time.Minute)

	c.Put("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, c.Size())

	c.Remove("a")
	_, ok = c.Get("a")
	assert.False(t, ok)

	c.Put("b", 2)
	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestBuildDefaultStack(t *testing.T) {
	base := NewPerpetualCache("ns")
	cache, stop, err := Build(base, Options{Eviction: EvictionLRU, Size: 1})
	require.NoError(t, err)
	defer stop()

	cache.Put("a", 1)
	cache.Put("b", 2) // evicts "a" under size 1

	_, ok := cache.Get("a")
	assert.False(t, ok)
	v, ok := cache.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}
