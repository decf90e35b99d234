// Package astdump reads serialized AST dumps, in YAML or JSON, into ast
// values. Mapping order is preserved since children order is part of a node
// identity.
//
// A node is a mapping holding a `kind` field:
//
//	kind: 132
//	flags: 0
//	children:
//	  name: foo
//	  0: ~
//
// Children can be a mapping or a sequence (indexed from 0). Keys that are
// integers, or strings holding a canonical non-negative integer, are ordinal
// keys. Anchors and aliases are kept as references.
package astdump

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/streamingfast/ast-hash/ast"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var ErrEmptyDocument = errors.New("empty document")

func LoadFile(path string) (ast.Value, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return ast.Value{}, fmt.Errorf("reading file: %w", err)
	}

	value, err := LoadBytes(content)
	if err != nil {
		return ast.Value{}, fmt.Errorf("loading %q: %w", path, err)
	}

	return value, nil
}

func LoadBytes(content []byte) (ast.Value, error) {
	return Load(bytes.NewReader(content))
}

// Load decodes the first document found in reader.
func Load(reader io.Reader) (ast.Value, error) {
	var document yaml.Node
	if err := yaml.NewDecoder(reader).Decode(&document); err != nil {
		if errors.Is(err, io.EOF) {
			return ast.Value{}, ErrEmptyDocument
		}

		return ast.Value{}, fmt.Errorf("decoding: %w", err)
	}

	root := &document
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return ast.Value{}, ErrEmptyDocument
		}
		root = root.Content[0]
	}

	l := &loader{
		anchors: map[*yaml.Node]*ast.Value{},
		pending: map[*yaml.Node]bool{},
	}

	value, err := l.value(root)
	if err != nil {
		return ast.Value{}, err
	}

	if tracer.Enabled() {
		zlog.Debug("loaded dump", zap.Stringer("root", value), zap.Int("nodes", l.nodes), zap.Int("anchors", len(l.anchors)))
	}

	return value, nil
}

type loader struct {
	// converted anchored nodes, aliases point to the same value
	anchors map[*yaml.Node]*ast.Value
	pending map[*yaml.Node]bool
	nodes   int
}

func (l *loader) value(node *yaml.Node) (ast.Value, error) {
	if node.Kind == yaml.AliasNode {
		return l.alias(node)
	}

	if node.Anchor == "" {
		return l.convert(node)
	}

	if converted, found := l.anchors[node]; found {
		return *converted, nil
	}

	l.pending[node] = true
	converted, err := l.convert(node)
	delete(l.pending, node)
	if err != nil {
		return ast.Value{}, err
	}

	l.anchors[node] = &converted
	return converted, nil
}

func (l *loader) alias(node *yaml.Node) (ast.Value, error) {
	target := node.Alias
	if target == nil {
		return ast.Value{}, fmt.Errorf("line %d: alias %q has no target", node.Line, node.Value)
	}

	if l.pending[target] {
		return ast.Value{}, fmt.Errorf("line %d: alias %q refers to a value containing itself", node.Line, node.Value)
	}

	if _, err := l.value(target); err != nil {
		return ast.Value{}, err
	}

	converted, found := l.anchors[target]
	if !found {
		return ast.Value{}, fmt.Errorf("line %d: alias %q target is not anchored", node.Line, node.Value)
	}

	return ast.Ref(converted), nil
}

func (l *loader) convert(node *yaml.Node) (ast.Value, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return scalar(node)

	case yaml.MappingNode:
		if lookup(node, "kind") == nil {
			return ast.Unsupported(), nil
		}

		element, err := l.element(node)
		if err != nil {
			return ast.Value{}, err
		}
		return element.Value(), nil

	case yaml.SequenceNode:
		return ast.Unsupported(), nil

	case yaml.AliasNode:
		return l.alias(node)

	default:
		return ast.Value{}, fmt.Errorf("line %d: unexpected yaml node kind %d", node.Line, node.Kind)
	}
}

func (l *loader) element(node *yaml.Node) (*ast.Element, error) {
	kind, err := integerField(node, "kind")
	if err != nil {
		return nil, err
	}

	flags, err := integerField(node, "flags")
	if err != nil {
		return nil, err
	}

	l.nodes++
	element := ast.NewElement(kind, flags)

	children := lookup(node, "children")
	if children == nil {
		return element, nil
	}

	children = resolveAlias(children)
	switch {
	case children.Kind == yaml.ScalarNode && children.ShortTag() == "!!null":
		return element, nil

	case children.Kind == yaml.SequenceNode:
		for i, child := range children.Content {
			value, err := l.value(child)
			if err != nil {
				return nil, fmt.Errorf("child %d: %w", i, err)
			}

			element.Add(ast.Indexed(uint64(i)), value)
		}

	case children.Kind == yaml.MappingNode:
		for i := 0; i+1 < len(children.Content); i += 2 {
			key, err := childKey(children.Content[i])
			if err != nil {
				return nil, err
			}

			value, err := l.value(children.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("child %s: %w", key, err)
			}

			element.Add(key, value)
		}

	default:
		return nil, fmt.Errorf("line %d: children must be a mapping or a sequence", children.Line)
	}

	return element, nil
}

func scalar(node *yaml.Node) (ast.Value, error) {
	switch node.ShortTag() {
	case "!!null":
		return ast.Null(), nil

	case "!!int":
		var v int64
		if err := node.Decode(&v); err == nil {
			return ast.Int(v), nil
		}

		// Out of int64 range, kept as a float like the parser would
		var f float64
		if err := node.Decode(&f); err != nil {
			return ast.Value{}, fmt.Errorf("line %d: invalid integer %q: %w", node.Line, node.Value, err)
		}
		return ast.Float(f), nil

	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return ast.Value{}, fmt.Errorf("line %d: invalid float %q: %w", node.Line, node.Value, err)
		}
		return ast.Float(f), nil

	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return ast.Value{}, fmt.Errorf("line %d: invalid bool %q: %w", node.Line, node.Value, err)
		}
		return ast.Bool(b), nil

	default:
		return ast.String(node.Value), nil
	}
}

func childKey(node *yaml.Node) (ast.ChildKey, error) {
	node = resolveAlias(node)
	if node.Kind != yaml.ScalarNode {
		return ast.ChildKey{}, fmt.Errorf("line %d: children keys must be scalars", node.Line)
	}

	if node.ShortTag() == "!!int" {
		var v int64
		if err := node.Decode(&v); err == nil && v >= 0 {
			return ast.Indexed(uint64(v)), nil
		}
	}

	if index, ok := canonicalIndex(node.Value); ok {
		return ast.Indexed(index), nil
	}

	return ast.Named(node.Value), nil
}

// canonicalIndex accepts "0" and decimal numbers without sign nor leading
// zeros that fit an int64.
func canonicalIndex(in string) (uint64, bool) {
	if in == "" || (in[0] == '0' && len(in) > 1) {
		return 0, false
	}

	for _, c := range in {
		if c < '0' || c > '9' {
			return 0, false
		}
	}

	v, err := strconv.ParseInt(in, 10, 64)
	if err != nil {
		return 0, false
	}

	return uint64(v), true
}

func integerField(mapping *yaml.Node, name string) (int64, error) {
	node := lookup(mapping, name)
	if node == nil {
		return 0, nil
	}

	node = resolveAlias(node)
	if node.Kind != yaml.ScalarNode || node.ShortTag() != "!!int" {
		return 0, fmt.Errorf("line %d: field %q must be an integer, got %q", node.Line, name, node.Value)
	}

	var v int64
	if err := node.Decode(&v); err != nil {
		return 0, fmt.Errorf("line %d: field %q: %w", node.Line, name, err)
	}

	return v, nil
}

func lookup(mapping *yaml.Node, name string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := resolveAlias(mapping.Content[i])
		if key.Kind == yaml.ScalarNode && key.Value == name {
			return mapping.Content[i+1]
		}
	}

	return nil
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}

	return node
}
