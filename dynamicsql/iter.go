package dynamicsql

import (
	"reflect"
	"sort"

	"github.com/wolfleong/gobatis/merr"
)

// IterItem is one (index, value) pair produced by EvalIterable: index is an
// int for slices/arrays, the map key for maps.
type IterItem struct {
	Index any
	Value any
}

// EvalIterable evaluates expr to an iterable sequence for <foreach>.
// Collections, arrays and maps are supported; maps yield (key, value) pairs
// with key bound to `index` and value bound to `item`. A null
// result is an error - there is nothing to iterate.
func EvalIterable(expr string, ctx *Context) ([]IterItem, error) {
	v, err := EvalValue(expr, ctx)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, merr.Wrapf(merr.ErrUnknownProperty, "foreach collection %q evaluated to null", expr)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]IterItem, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = IterItem{Index: i, Value: rv.Index(i).Interface()}
		}
		return items, nil
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keyLess(keys[i], keys[j]) })
		items := make([]IterItem, len(keys))
		for i, k := range keys {
			items[i] = IterItem{Index: k.Interface(), Value: rv.MapIndex(k).Interface()}
		}
		return items, nil
	default:
		return nil, merr.Wrapf(merr.ErrUnknownProperty, "foreach collection %q is not iterable (%s)", expr, rv.Kind())
	}
}

func keyLess(a, b reflect.Value) bool {
	if a.Kind() == reflect.String {
		return a.String() < b.String()
	}
	af, aok := toFloat(a.Interface())
	bf, bok := toFloat(b.Interface())
	if aok && bok {
		return af < bf
	}
	return false
}
