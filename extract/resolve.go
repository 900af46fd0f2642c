// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package extract

import (
	"reflect"
	"strconv"
	"strings"
)

// Getter is implemented by structured values that expose named fields
// themselves rather than through reflection.
type Getter interface {
	// Get returns the named field and true, or false when the value has no
	// such field.
	Get(name string) (interface{}, bool)
}

// Lookuper is implemented by values that can be indexed by key, like the raw
// parameters of a token response.
type Lookuper interface {
	// Lookup returns the value stored under key and true, or false when the
	// key isn't present.
	Lookup(key string) (interface{}, bool)
}

var (
	errorType = reflect.TypeOf((*error)(nil)).Elem()

	separatorReplacer = strings.NewReplacer("_", "", "-", "")
)

// Resolve walks p through obj and returns the value it ends on. A nil obj, or
// a segment that can't be resolved, returns nil. An empty path returns obj
// unchanged.
//
// Each segment is resolved against the current value as:
//
//   - a field, via Getter, an exported zero-argument method (optionally also
//     returning an error) or an exported struct field. Field names may be given
//     in snake_case or by their json tag: "access_token" resolves AccessToken().
//   - otherwise a key, via Lookuper, a map with string keys, or a decimal index
//     into a slice or array.
//
// Pointers are followed, so structs and maps can be mixed at any depth.
func Resolve(obj interface{}, p Path) interface{} {
	if len(p) == 0 {
		return obj
	}
	current := obj
	for _, segment := range p {
		if isNil(current) {
			return nil
		}
		next, ok := field(current, segment)
		if !ok {
			next, ok = key(current, segment)
		}
		if !ok || isNil(next) {
			return nil
		}
		current = next
	}
	return indirect(current)
}

// field resolves segment as a named field or accessor of obj.
func field(obj interface{}, segment string) (interface{}, bool) {
	if g, ok := obj.(Getter); ok {
		if v, ok := g.Get(segment); ok {
			return v, true
		}
	}
	rv := reflect.ValueOf(obj)

	// methods are checked on the value as given so pointer receivers count
	t := rv.Type()
	for i := 0; i < t.NumMethod(); i++ {
		if !matchName(segment, t.Method(i).Name) {
			continue
		}
		m := rv.Method(i)
		mt := m.Type()
		if mt.NumIn() != 0 {
			continue
		}
		switch {
		case mt.NumOut() == 1:
			return m.Call(nil)[0].Interface(), true
		case mt.NumOut() == 2 && mt.Out(1).Implements(errorType):
			out := m.Call(nil)
			if !out[1].IsNil() {
				return nil, false
			}
			return out[0].Interface(), true
		}
	}

	rv = reflect.Indirect(rv)
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	fields := reflect.VisibleFields(rv.Type())
	// json tags are an exact match and take precedence over field names
	for _, f := range fields {
		if !f.IsExported() {
			continue
		}
		if tag := strings.Split(f.Tag.Get("json"), ",")[0]; tag != "" && tag == segment {
			return structField(rv, f)
		}
	}
	for _, f := range fields {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		if matchName(segment, f.Name) {
			return structField(rv, f)
		}
	}
	return nil, false
}

func structField(rv reflect.Value, f reflect.StructField) (interface{}, bool) {
	fv, err := rv.FieldByIndexErr(f.Index)
	// a nil embedded pointer, or a field promoted from an unexported embedded
	// struct
	if err != nil || !fv.CanInterface() {
		return nil, false
	}
	return fv.Interface(), true
}

// key resolves segment as a key (or index) of obj.
func key(obj interface{}, segment string) (interface{}, bool) {
	if l, ok := obj.(Lookuper); ok {
		return l.Lookup(segment)
	}
	rv := reflect.Indirect(reflect.ValueOf(obj))
	switch rv.Kind() {
	case reflect.Map:
		kt := rv.Type().Key()
		if kt.Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(segment).Convert(kt))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(segment)
		if err != nil || i < 0 || i >= rv.Len() {
			return nil, false
		}
		return rv.Index(i).Interface(), true
	default:
		return nil, false
	}
}

// matchName compares a path segment with a Go identifier, ignoring case and
// the "_" and "-" separators.
func matchName(segment, name string) bool {
	return strings.EqualFold(separatorReplacer.Replace(segment), name)
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// indirect follows pointers to the value they point at.
func indirect(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}
