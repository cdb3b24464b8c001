package dynamicsql

import (
	"reflect"

	"github.com/wolfleong/gobatis/reflectx"
)

// lookupInParameter resolves a (possibly dotted) property path against the
// caller's parameter object. Maps are consulted directly; everything else
// goes through the reflection facade. A missing path yields (nil, false)
// rather than an error - expression evaluation treats an unresolved name as
// null.
func lookupInParameter(parameter any, path string) (any, bool) {
	if parameter == nil {
		return nil, false
	}
	if m, ok := parameter.(map[string]any); ok {
		if v, ok := lookupDotted(m, path); ok {
			return v, true
		}
		return nil, false
	}
	rv := reflect.ValueOf(parameter)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	// Single scalar/primitive parameter bound directly under its own value:
	// a bare path (e.g. "#{value}" or the property name matching nothing on
	// the type) falls back to the raw parameter itself.
	v, err := reflectx.ReadValue(parameter, path)
	if err == nil {
		return v, true
	}
	if rv.Kind() != reflect.Struct && rv.Kind() != reflect.Map {
		return parameter, true
	}
	return nil, false
}

func lookupDotted(m map[string]any, path string) (any, bool) {
	segs := reflectx.Tokenize(path)
	var cur any = m
	for _, seg := range segs {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := mm[seg.Name]
		if !ok {
			return nil, false
		}
		cur = v
		if seg.Index != "" {
			rv := reflect.ValueOf(cur)
			switch rv.Kind() {
			case reflect.Slice, reflect.Array:
				i := atoi(seg.Index)
				if i < 0 || i >= rv.Len() {
					return nil, false
				}
				cur = rv.Index(i).Interface()
			case reflect.Map:
				mv := rv.MapIndex(reflect.ValueOf(seg.Index))
				if !mv.IsValid() {
					return nil, false
				}
				cur = mv.Interface()
			}
		}
	}
	return cur, true
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return -1
		}
		n = n*10 + int(c-'0')
	}
	return n
}
