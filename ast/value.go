package ast

import (
	"fmt"
	"strconv"

	"golang.org/x/exp/constraints"
)

type Type uint8

const (
	TypeNull Type = iota
	TypeInt
	TypeFloat
	TypeString
	TypeBool
	TypeNode
	TypeRef
	TypeUnsupported
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeNode:
		return "node"
	case TypeRef:
		return "ref"
	case TypeUnsupported:
		return "unsupported"
	}

	return fmt.Sprintf("Type(%d)", uint8(t))
}

// maxRefDepth bounds Resolve on reference chains, a cycle resolves to an
// unsupported value.
const maxRefDepth = 64

// Value is a child value or a top-level fingerprint input. The zero Value is
// Null.
type Value struct {
	typ  Type
	num  int64
	real float64
	str  string
	node Node
	ref  *Value
}

func Null() Value {
	return Value{}
}

func Int[T constraints.Integer](v T) Value {
	return Value{typ: TypeInt, num: int64(v)}
}

func Float[T constraints.Float](v T) Value {
	return Value{typ: TypeFloat, real: float64(v)}
}

func String(v string) Value {
	return Value{typ: TypeString, str: v}
}

func Bool(v bool) Value {
	out := Value{typ: TypeBool}
	if v {
		out.num = 1
	}

	return out
}

// NodeValue wraps a node. A nil node is kept as is and treated as a
// malformed node by consumers.
func NodeValue(node Node) Value {
	return Value{typ: TypeNode, node: node}
}

// Ref is a transparent alias of target, see Resolve.
func Ref(target *Value) Value {
	return Value{typ: TypeRef, ref: target}
}

// Unsupported is a value of a kind the encoders have no representation for.
func Unsupported() Value {
	return Value{typ: TypeUnsupported}
}

func (v Value) Type() Type {
	return v.typ
}

func (v Value) IsNull() bool {
	return v.typ == TypeNull
}

func (v Value) AsInt() int64 {
	return v.num
}

func (v Value) AsFloat() float64 {
	return v.real
}

func (v Value) AsString() string {
	return v.str
}

func (v Value) AsBool() bool {
	return v.typ == TypeBool && v.num != 0
}

func (v Value) AsNode() Node {
	return v.node
}

// Target returns the aliased value of a Ref, nil otherwise.
func (v Value) Target() *Value {
	return v.ref
}

// Resolve follows Ref values until a non reference is found. A Ref to nil
// resolves to Null.
func (v Value) Resolve() Value {
	for depth := 0; v.typ == TypeRef; depth++ {
		if depth >= maxRefDepth {
			return Unsupported()
		}

		if v.ref == nil {
			return Null()
		}

		v = *v.ref
	}

	return v
}

func (v Value) String() string {
	switch v.typ {
	case TypeNull:
		return "null"
	case TypeInt:
		return strconv.FormatInt(v.num, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.real, 'g', -1, 64)
	case TypeString:
		return strconv.Quote(v.str)
	case TypeBool:
		return strconv.FormatBool(v.AsBool())
	case TypeNode:
		if IsNil(v.node) {
			return "node(nil)"
		}
		return fmt.Sprintf("node(kind=%d, flags=%d, children=%d)", v.node.Kind(), v.node.Flags(), len(v.node.Children()))
	case TypeRef:
		if v.ref == nil {
			return "&null"
		}
		return "&" + v.Resolve().String()
	}

	return v.typ.String()
}
