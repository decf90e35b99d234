// Package ast holds the read-only view of parser nodes consumed by the
// fingerprint engine, and a small in-memory node implementation used by
// loaders and tests.
package ast

import (
	"reflect"
	"strconv"
	"strings"
)

// Node is the capability a parser node must expose to be fingerprinted. It is
// never mutated through this interface. Children may share nodes. A pointer
// node reachable from itself is cut where it repeats on the path.
type Node interface {
	Kind() int64
	Flags() int64
	// Children returns the node children in collection order. Order is
	// significant and must be the insertion order produced by the parser.
	Children() []Child
}

// IsNil reports whether node is a nil interface or an interface holding a nil
// pointer. Such a node has no readable fields at all.
func IsNil(node Node) bool {
	if node == nil {
		return true
	}

	rv := reflect.ValueOf(node)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}

	return false
}

type Child struct {
	Key   ChildKey
	Value Value
}

func NamedChild(name string, value Value) Child {
	return Child{Key: Named(name), Value: value}
}

func IndexedChild(index uint64, value Value) Child {
	return Child{Key: Indexed(index), Value: value}
}

// ChildKey is either an ordinal index or a string name. The zero value is
// Indexed(0).
type ChildKey struct {
	name  string
	index uint64
	named bool
}

func Indexed(index uint64) ChildKey {
	return ChildKey{index: index}
}

func Named(name string) ChildKey {
	return ChildKey{name: name, named: true}
}

func (k ChildKey) IsNamed() bool {
	return k.named
}

// Name returns the key name, empty for indexed keys.
func (k ChildKey) Name() string {
	return k.name
}

// Index returns the key ordinal, 0 for named keys.
func (k ChildKey) Index() uint64 {
	return k.index
}

// HasPrefix is always false for indexed keys.
func (k ChildKey) HasPrefix(prefix string) bool {
	return k.named && strings.HasPrefix(k.name, prefix)
}

func (k ChildKey) String() string {
	if k.named {
		return strconv.Quote(k.name)
	}

	return strconv.FormatUint(k.index, 10)
}
