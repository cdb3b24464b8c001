package reflectx

import (
	"reflect"

	"github.com/wolfleong/gobatis/merr"
)

// IsCollection reports whether t is a slice, array or map - the kinds the
// facade treats specially when reading/writing an indexed path segment.
func IsCollection(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	default:
		return false
	}
}

// HasGetter reports whether path resolves to a readable property on t.
func HasGetter(t reflect.Type, path string) bool {
	_, err := GetTypeOfGetter(t, path)
	return err == nil
}

// HasSetter reports whether path resolves to a writable property on t.
func HasSetter(t reflect.Type, path string) bool {
	_, err := GetTypeOfSetter(t, path)
	return err == nil
}

// GetTypeOfGetter resolves the static type produced by reading path from a
// value of type t, without requiring an instance.
func GetTypeOfGetter(t reflect.Type, path string) (reflect.Type, error) {
	return resolvePathType(t, Tokenize(path), false)
}

// GetTypeOfSetter resolves the static type accepted when writing path on a
// value of type t.
func GetTypeOfSetter(t reflect.Type, path string) (reflect.Type, error) {
	return resolvePathType(t, Tokenize(path), true)
}

// resolvePathType walks segs through fields and getters; with setter set,
// a last segment backed only by a Set method resolves to its argument type.
func resolvePathType(t reflect.Type, segs []PathSegment, setter bool) (reflect.Type, error) {
	cur := t
	for _, seg := range segs {
		for cur.Kind() == reflect.Pointer {
			cur = cur.Elem()
		}
		switch cur.Kind() {
		case reflect.Struct:
			meta := getTypeMeta(cur)
			canon, ok := meta.caseInsensitive[lower(seg.Name)]
			if !ok {
				return nil, merr.Wrapf(merr.ErrUnknownProperty, "%s.%s", cur, seg.Name)
			}
			if idx, ok := meta.fieldIndex[canon]; ok {
				cur = fieldTypeByIndex(cur, idx)
			} else if g, ok := meta.getters[lower(canon)]; ok {
				cur = g.Type.Out(0)
			} else if s, ok := meta.setters[lower(canon)]; ok && setter && !seg.HasNext {
				cur = s.Type.In(1)
			} else {
				return nil, merr.Wrapf(merr.ErrUnknownProperty, "%s.%s", cur, seg.Name)
			}
		case reflect.Map:
			cur = cur.Elem()
		case reflect.Slice, reflect.Array:
			cur = cur.Elem()
		default:
			return nil, merr.Wrapf(merr.ErrUnknownProperty, "%s.%s", cur, seg.Name)
		}
		if seg.Index != "" {
			if cur.Kind() == reflect.Slice || cur.Kind() == reflect.Array {
				cur = cur.Elem()
			} else if cur.Kind() == reflect.Map {
				cur = cur.Elem()
			}
		}
	}
	return cur, nil
}

func fieldTypeByIndex(t reflect.Type, idx []int) reflect.Type {
	cur := t
	for _, i := range idx {
		f := cur.Field(i)
		cur = f.Type
	}
	return cur
}

// ReadValue descends the property path from instance and returns the value
// found there. Collection index segments ("list[0]") extract the element.
func ReadValue(instance any, path string) (any, error) {
	v := reflect.ValueOf(instance)
	segs := Tokenize(path)
	for _, seg := range segs {
		var err error
		v, err = readSegment(v, seg)
		if err != nil {
			return nil, err
		}
	}
	if !v.IsValid() {
		return nil, nil
	}
	return v.Interface(), nil
}

func readSegment(v reflect.Value, seg PathSegment) (reflect.Value, error) {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, nil
		}
		v = v.Elem()
	}
	var field reflect.Value
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		meta := getTypeMeta(t)
		canon, ok := meta.caseInsensitive[lower(seg.Name)]
		if !ok {
			return reflect.Value{}, merr.Wrapf(merr.ErrUnknownProperty, "%s.%s", t, seg.Name)
		}
		if idx, ok := meta.fieldIndex[canon]; ok {
			field = v.FieldByIndex(idx)
		} else if g, ok := meta.getters[lower(canon)]; ok {
			out := reflect.ValueOf(v.Addr().Interface()).Method(g.Index).Call(nil)
			field = out[0]
		} else {
			return reflect.Value{}, merr.Wrapf(merr.ErrUnknownProperty, "%s.%s", t, seg.Name)
		}
	case reflect.Map:
		field = v.MapIndex(reflect.ValueOf(seg.Name).Convert(v.Type().Key()))
	default:
		return reflect.Value{}, merr.Wrapf(merr.ErrUnknownProperty, "%v.%s", v.Kind(), seg.Name)
	}
	if seg.Index != "" && field.IsValid() {
		for field.Kind() == reflect.Pointer {
			field = field.Elem()
		}
		switch field.Kind() {
		case reflect.Slice, reflect.Array:
			i := atoiSafe(seg.Index)
			if i < 0 || i >= field.Len() {
				return reflect.Value{}, merr.Wrapf(merr.ErrUnknownProperty, "index %s out of range", seg.Index)
			}
			field = field.Index(i)
		case reflect.Map:
			field = field.MapIndex(reflect.ValueOf(seg.Index).Convert(field.Type().Key()))
		}
	}
	return field, nil
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return -1
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// WriteValue writes value at path on instance, auto-instantiating nil
// intermediate pointers whose type is default-constructible.
func WriteValue(instance any, path string, value any) error {
	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Pointer {
		return merr.Wrapf(merr.ErrUnknownProperty, "write target must be a pointer, got %T", instance)
	}
	segs := Tokenize(path)
	cur := v
	for i, seg := range segs {
		last := i == len(segs)-1
		for cur.Kind() == reflect.Pointer {
			if cur.IsNil() {
				if !cur.CanSet() {
					return merr.Wrapf(merr.ErrUnknownProperty, "cannot auto-instantiate nil pointer at %q", seg.Name)
				}
				cur.Set(reflect.New(cur.Type().Elem()))
			}
			cur = cur.Elem()
		}
		if cur.Kind() != reflect.Struct {
			return merr.Wrapf(merr.ErrUnknownProperty, "%v.%s", cur.Kind(), seg.Name)
		}
		t := cur.Type()
		meta := getTypeMeta(t)
		canon, ok := meta.caseInsensitive[lower(seg.Name)]
		if !ok {
			return merr.Wrapf(merr.ErrUnknownProperty, "%s.%s", t, seg.Name)
		}
		if idx, ok := meta.fieldIndex[canon]; ok {
			field := cur.FieldByIndex(idx)
			if seg.Index != "" {
				field = indexInto(field, seg.Index)
			}
			if last {
				return setValue(field, value)
			}
			cur = field
			continue
		}
		if s, ok := meta.setters[lower(canon)]; ok && last {
			args := []reflect.Value{cur.Addr(), coerce(value, s.Type.In(1))}
			reflect.ValueOf(cur.Addr().Interface()).Method(s.Index).Call(args[1:])
			return nil
		}
		return merr.Wrapf(merr.ErrUnknownProperty, "%s.%s", t, seg.Name)
	}
	return nil
}

func indexInto(field reflect.Value, index string) reflect.Value {
	for field.Kind() == reflect.Pointer {
		field = field.Elem()
	}
	switch field.Kind() {
	case reflect.Slice, reflect.Array:
		i := atoiSafe(index)
		if i >= 0 && i < field.Len() {
			return field.Index(i)
		}
	case reflect.Map:
		return field.MapIndex(reflect.ValueOf(index).Convert(field.Type().Key()))
	}
	return field
}

func setValue(field reflect.Value, value any) error {
	if !field.CanSet() {
		return merr.Wrapf(merr.ErrUnknownProperty, "field %s is not settable", field.Type())
	}
	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	rv := coerce(value, field.Type())
	field.Set(rv)
	return nil
}

func coerce(value any, target reflect.Type) reflect.Value {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		return reflect.Zero(target)
	}
	if rv.Type().AssignableTo(target) {
		return rv
	}
	if rv.Type().ConvertibleTo(target) {
		return rv.Convert(target)
	}
	if target.Kind() == reflect.Pointer && rv.Type().AssignableTo(target.Elem()) {
		p := reflect.New(target.Elem())
		p.Elem().Set(rv)
		return p
	}
	return rv
}

// DefaultConstruct builds a new zero-valued instance of t, matching the
// facade's default-construct op: for a struct type (or a pointer to one)
// it returns a pointer to a new zero struct; for a map or slice type it
// returns an empty map or slice value.
func DefaultConstruct(t reflect.Type) (any, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct && t.Kind() != reflect.Map && t.Kind() != reflect.Slice {
		return nil, merr.Wrapf(merr.ErrNoApplicableCtor, "%s is not default-constructible", t)
	}
	switch t.Kind() {
	case reflect.Map:
		return reflect.MakeMap(t).Interface(), nil
	case reflect.Slice:
		return reflect.MakeSlice(t, 0, 0).Interface(), nil
	default:
		return reflect.New(t).Interface(), nil
	}
}

// ConstructWithArgs calls the constructor-equivalent: since Go has no
// constructors, this builds a zero value of t and positionally assigns
// argValues to the exported fields in declaration order - the facade's
// analogue of a reflective constructor invocation for CONSTRUCTOR-flagged
// ResultMappings.
func ConstructWithArgs(t reflect.Type, argValues []any) (any, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, merr.Wrapf(merr.ErrNoApplicableCtor, "%s is not a struct", t)
	}
	ptr := reflect.New(t)
	elem := ptr.Elem()
	argIdx := 0
	for i := 0; i < t.NumField() && argIdx < len(argValues); i++ {
		f := elem.Field(i)
		if !f.CanSet() {
			continue
		}
		if argValues[argIdx] != nil {
			f.Set(coerce(argValues[argIdx], f.Type()))
		}
		argIdx++
	}
	return ptr.Interface(), nil
}
