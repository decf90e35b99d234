// Package typeset deduplicates lists of type objects by instance identity.
package typeset

import (
	"reflect"
)

type identity struct {
	typ  reflect.Type
	addr uintptr
}

// Unique returns items without the later occurrences of a same instance,
// keeping the first occurrence order. Two distinct instances with equal
// contents are both kept.
//
// Instances are pointers, maps, channels and unsafe pointers, possibly boxed
// in an interface. Anything else is compared by value against what was kept
// so far with reflect.DeepEqual, this path is quadratic and is not expected
// on lists of types. DeepEqual follows the pointers held inside such values,
// so two structs pointing to distinct but equal instances are merged. Func
// values are never equal to anything and are always kept.
//
// Pointers to distinct zero-sized values may share an address and would then
// be seen as the same instance.
func Unique[T any](items []T) []T {
	switch len(items) {
	case 0:
		return []T{}
	case 1:
		return []T{items[0]}
	}

	seen := make(map[identity]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		if id, ok := identityOf(item); ok {
			if _, found := seen[id]; found {
				continue
			}

			seen[id] = struct{}{}
			out = append(out, item)
			continue
		}

		if !containsEqual(out, item) {
			out = append(out, item)
		}
	}

	return out
}

func identityOf(item any) (id identity, ok bool) {
	rv := reflect.ValueOf(item)
	switch rv.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan:
		if rv.IsNil() {
			return id, false
		}

		return identity{typ: rv.Type(), addr: rv.Pointer()}, true
	}

	return id, false
}

func containsEqual[T any](list []T, item T) bool {
	for _, existing := range list {
		if reflect.DeepEqual(any(existing), any(item)) {
			return true
		}
	}

	return false
}
