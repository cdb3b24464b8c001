// Package reflectx is the Reflection Facade: it resolves
// property paths against user-defined Go types, reads/writes properties,
// default-constructs objects, and memoizes per-type descriptors.
//
// A per-type descriptor is computed once and cached in a sync.Map keyed
// by the (pointer-stripped) reflect.Type, so repeated lookups against the
// same struct avoid re-walking its fields via reflect.
package reflectx

import (
	"reflect"
	"sync"

	"github.com/wolfleong/gobatis/merr"
)

// typeMeta is the memoized per-struct-type descriptor: field index paths,
// a case-insensitive name map (so `name` resolves to `Name`), and getter/
// setter method lookups for types that expose Get*/Set*/Is* methods
// instead of plain exported fields.
type typeMeta struct {
	typ reflect.Type

	// fieldIndex maps the canonical (exported, case-correct) property name
	// to the reflect.StructField index path, supporting embedded structs.
	fieldIndex map[string][]int
	// caseInsensitive maps a lower-cased property name to its canonical name.
	caseInsensitive map[string]string

	getters map[string]reflect.Method
	setters map[string]reflect.Method
}

var metaCache sync.Map // map[reflect.Type]*typeMeta

func getTypeMeta(t reflect.Type) *typeMeta {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if v, ok := metaCache.Load(t); ok {
		return v.(*typeMeta) //nolint:errcheck
	}
	m := buildTypeMeta(t)
	actual, _ := metaCache.LoadOrStore(t, m)
	return actual.(*typeMeta) //nolint:errcheck
}

func buildTypeMeta(t reflect.Type) *typeMeta {
	m := &typeMeta{
		typ:             t,
		fieldIndex:      make(map[string][]int),
		caseInsensitive: make(map[string]string),
		getters:         make(map[string]reflect.Method),
		setters:         make(map[string]reflect.Method),
	}
	if t.Kind() != reflect.Struct {
		return m
	}

	var walk func(rt reflect.Type, prefix []int)
	walk = func(rt reflect.Type, prefix []int) {
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			if !f.IsExported() && !f.Anonymous {
				continue
			}
			idx := append(append([]int{}, prefix...), i)
			if f.Anonymous && f.Type.Kind() == reflect.Struct {
				walk(f.Type, idx)
				continue
			}
			if !f.IsExported() {
				continue
			}
			if _, exists := m.fieldIndex[f.Name]; !exists {
				m.fieldIndex[f.Name] = idx
				m.caseInsensitive[lower(f.Name)] = f.Name
			}
		}
	}
	walk(t, nil)

	pt := reflect.PointerTo(t)
	for i := 0; i < pt.NumMethod(); i++ {
		meth := pt.Method(i)
		switch {
		case isGetterName(meth.Name) && meth.Type.NumIn() == 1 && meth.Type.NumOut() == 1:
			name := stripGetterPrefix(meth.Name)
			m.getters[lower(name)] = meth
			if _, ok := m.caseInsensitive[lower(name)]; !ok {
				m.caseInsensitive[lower(name)] = name
			}
		case len(meth.Name) > 3 && meth.Name[:3] == "Set" && meth.Type.NumIn() == 2:
			name := meth.Name[3:]
			m.setters[lower(name)] = meth
			if _, ok := m.caseInsensitive[lower(name)]; !ok {
				m.caseInsensitive[lower(name)] = name
			}
		}
	}
	return m
}

func isGetterName(name string) bool {
	if len(name) > 3 && name[:3] == "Get" {
		return true
	}
	if len(name) > 2 && name[:2] == "Is" {
		return true
	}
	return false
}

func stripGetterPrefix(name string) string {
	if len(name) > 2 && name[:2] == "Is" {
		return name[2:]
	}
	return name[3:]
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}

// CanonicalName resolves path segment `name` (any case) against type t to
// its case-correct exported name. Fails with ErrUnknownProperty, wrapped
// with the type and name, when no match exists.
func CanonicalName(t reflect.Type, name string) (string, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	meta := getTypeMeta(t)
	if _, ok := meta.fieldIndex[name]; ok {
		return name, nil
	}
	if canon, ok := meta.caseInsensitive[lower(name)]; ok {
		return canon, nil
	}
	return "", merr.Wrapf(merr.ErrUnknownProperty, "%s.%s", t, name)
}
