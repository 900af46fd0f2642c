// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package extract

import (
	"reflect"
	"strconv"
)

// UID resolves p through obj and returns the result as a string. It returns
// false when p is empty, the value can't be resolved, is an empty string or
// isn't a scalar (string, number or bool).
func UID(obj interface{}, p Path) (string, bool) {
	if len(p) == 0 {
		return "", false
	}
	s, ok := scalarString(Resolve(obj, p))
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// UIDString is UID for a dotted path that hasn't been parsed yet.
func UIDString(obj interface{}, uidPath string) (string, bool) {
	return UID(obj, ParsePath(uidPath))
}

// Info resolves every entry of ip through obj. It returns nil when ip is nil,
// otherwise the returned map has an entry for every key in ip whose value is
// nil when the path couldn't be resolved. When ip has duplicate keys the last
// one wins.
func Info(obj interface{}, ip InfoPaths) map[string]interface{} {
	if ip == nil {
		return nil
	}
	info := make(map[string]interface{}, len(ip))
	for _, e := range ip {
		info[e.Key] = Resolve(obj, e.Path)
	}
	return info
}

// InfoString is Info for an info path configuration that hasn't been parsed
// yet. Malformed entries are skipped.
func InfoString(obj interface{}, infoPaths string) map[string]interface{} {
	// without WithStrict parsing can't fail
	ip, _ := ParseInfoPaths(infoPaths)
	return Info(obj, ip)
}

// scalarString renders strings, numbers and bools. Named types are rendered by
// kind, so a named string type with a redacting String() still returns its
// value.
func scalarString(v interface{}) (string, bool) {
	if v == nil {
		return "", false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	default:
		return "", false
	}
}
