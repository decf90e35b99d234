package ast

var _ Node = (*Element)(nil)

// Element is a plain in-memory Node. Keys behave like the ones of an ordered
// hash map: setting an existing key replaces its value in place, appending
// uses the next free ordinal.
type Element struct {
	kind      int64
	flags     int64
	children  []Child
	nextIndex uint64
}

func NewElement(kind, flags int64, children ...Child) *Element {
	e := &Element{kind: kind, flags: flags}
	for _, child := range children {
		e.Add(child.Key, child.Value)
	}

	return e
}

func (e *Element) Kind() int64 {
	return e.kind
}

func (e *Element) Flags() int64 {
	return e.flags
}

func (e *Element) Children() []Child {
	return e.children
}

func (e *Element) Len() int {
	return len(e.children)
}

func (e *Element) Add(key ChildKey, value Value) *Element {
	for i := range e.children {
		if e.children[i].Key == key {
			e.children[i].Value = value
			return e
		}
	}

	if !key.IsNamed() && key.Index() >= e.nextIndex {
		e.nextIndex = key.Index() + 1
	}

	e.children = append(e.children, Child{Key: key, Value: value})
	return e
}

func (e *Element) Set(name string, value Value) *Element {
	return e.Add(Named(name), value)
}

func (e *Element) Append(value Value) *Element {
	return e.Add(Indexed(e.nextIndex), value)
}

func (e *Element) Get(key ChildKey) (Value, bool) {
	for _, child := range e.children {
		if child.Key == key {
			return child.Value, true
		}
	}

	return Value{}, false
}

func (e *Element) Value() Value {
	return NodeValue(e)
}
