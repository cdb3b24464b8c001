// Package cachekey implements the CacheKey composite key: built
// by appending an ordered sequence of component values, with equality
// requiring equal running hash, equal checksum, equal component count and
// component-wise equality.
package cachekey

import (
	"fmt"
	"reflect"
)

const (
	prime1 = 37
	prime2 = 17
)

// Key is the CacheKey composite key. The zero value is an empty key
// ready for Update calls.
type Key struct {
	hashcode int64
	checksum int64
	count    int
	updates  []any
}

// New builds a Key from an ordered sequence of components (statement id,
// row bounds, SQL text, parameter values in parameter-mapping order,
// environment id).
func New(components ...any) *Key {
	k := &Key{hashcode: prime1}
	for _, c := range components {
		k.Update(c)
	}
	return k
}

// Update appends one component to the key: its 32-bit hash is folded into
// the running 64-bit hashcode and added to the running checksum, the
// component count grows by one, and the component itself (pointers
// flattened) is retained so Equal can compare component-wise after the
// cheaper hash, checksum and count checks.
func (k *Key) Update(obj any) *Key {
	h := componentHash(obj)
	k.count++
	k.checksum += int64(h)
	k.hashcode = k.hashcode*prime2 + int64(h)
	k.updates = append(k.updates, normalize(obj))
	return k
}

// UpdateAll appends every element of objs in order.
func (k *Key) UpdateAll(objs ...any) *Key {
	for _, o := range objs {
		k.Update(o)
	}
	return k
}

// Clone produces an independent copy - used for compound parent/child keys
// in nested-result scenarios.
func (k *Key) Clone() *Key {
	clone := &Key{hashcode: k.hashcode, checksum: k.checksum, count: k.count}
	clone.updates = append(clone.updates, k.updates...)
	return clone
}

// Equal reports whether k and other were built from the same sequence of
// component values: equal hash, equal checksum, equal component count, and
// component-wise equality.
func (k *Key) Equal(other *Key) bool {
	if other == nil {
		return false
	}
	if k.hashcode != other.hashcode || k.checksum != other.checksum || k.count != other.count {
		return false
	}
	if len(k.updates) != len(other.updates) {
		return false
	}
	for i := range k.updates {
		if !deepEqual(k.updates[i], other.updates[i]) {
			return false
		}
	}
	return true
}

// HashCode returns the running hash, suitable as a map key alongside
// Equal for final disambiguation (two distinct Keys may collide on
// HashCode with negligible probability).
func (k *Key) HashCode() int64 { return k.hashcode }

func (k *Key) String() string {
	return fmt.Sprintf("CacheKey{hash=%d, checksum=%d, count=%d, updates=%v}", k.hashcode, k.checksum, k.count, k.updates)
}

func componentHash(obj any) uint32 {
	if obj == nil {
		return 0
	}
	s := fmt.Sprintf("%#v", normalize(obj))
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// normalize flattens pointers so two equal-valued-but-differently-addressed
// parameters hash and compare equal.
func normalize(obj any) any {
	v := reflect.ValueOf(obj)
	for v.IsValid() && v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}

func deepEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
