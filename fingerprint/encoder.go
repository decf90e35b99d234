package fingerprint

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/streamingfast/ast-hash/ast"
	"github.com/streamingfast/ast-hash/stablehash"
	"go.uber.org/zap"
)

// Version identifies the canonicalization rules of CanonicalEncoder. Digests
// produced under different versions must never share a cache.
const Version = "xxh3-128/v1"

const (
	// FlagsMask keeps the parser owned flag bits, anything above bit 25 is
	// bookkeeping set by analysis passes.
	FlagsMask = 0x3ffffff

	// ReservedKeyPrefix tags children added by the analyzer on top of the
	// parsed tree.
	ReservedKeyPrefix = "phan"

	nodeMarker = 'N'
	separator  = ':'
	floatTag   = 0x03

	// EncodedSize is the size of every encoded key and value.
	EncodedSize = 16
)

var (
	nullSentinel        = [EncodedSize]byte{7: 0x02}
	unsupportedSentinel = [EncodedSize]byte{7: 0x01}

	be = binary.BigEndian
	le = binary.LittleEndian
)

// ErrEngineInit is returned when a hash state cannot be created.
var ErrEngineInit = errors.New("unable to initialize hash engine")

// Encoder turns nodes and values into the canonical byte stream that gets
// hashed.
type Encoder interface {
	Version() string

	// AppendNode appends the byte stream of node to dst.
	AppendNode(dst []byte, node ast.Node) ([]byte, error)

	// AppendValue appends the fixed size encoding of value to dst.
	AppendValue(dst []byte, value ast.Value) ([]byte, error)
}

var _ Encoder = (*CanonicalEncoder)(nil)

type CanonicalEncoder struct {
	newState stablehash.Factory
	logger   *zap.Logger
}

// NewCanonicalEncoder creates the Version encoder. A nil newState uses the
// XXH3-128 one-shot functions directly, a nil logger disables traces.
func NewCanonicalEncoder(newState stablehash.Factory, logger *zap.Logger) *CanonicalEncoder {
	return &CanonicalEncoder{
		newState: newState,
		logger:   logger,
	}
}

func (e *CanonicalEncoder) Version() string {
	return Version
}

// AppendNode appends the stream of node. A child node already being encoded
// higher on the same path is a cycle and is encoded as an unsupported value.
func (e *CanonicalEncoder) AppendNode(dst []byte, node ast.Node) ([]byte, error) {
	return e.appendNode(dst, node, nil)
}

func (e *CanonicalEncoder) appendNode(dst []byte, node ast.Node, path []ast.Node) ([]byte, error) {
	// Nothing readable, contributes nothing
	if ast.IsNil(node) {
		return dst, nil
	}

	path = append(path, node)

	dst = append(dst, nodeMarker)
	dst = be.AppendUint64(dst, uint64(node.Kind()))
	dst = append(dst, separator)
	dst = be.AppendUint64(dst, uint64(node.Flags()&FlagsMask))

	var err error
	for _, child := range node.Children() {
		if child.Key.HasPrefix(ReservedKeyPrefix) {
			if e.logger != nil {
				e.logger.Debug("skipping reserved child", zap.Stringer("key", child.Key), zap.Int64("kind", node.Kind()))
			}
			continue
		}

		if e.logger != nil {
			e.logger.Debug("visiting child", zap.Stringer("key", child.Key), zap.Stringer("type", child.Value.Resolve().Type()))
		}

		dst, err = e.appendKey(dst, child.Key)
		if err != nil {
			return nil, err
		}

		dst, err = e.appendValue(dst, child.Value, path)
		if err != nil {
			return nil, fmt.Errorf("child %s: %w", child.Key, err)
		}
	}

	return dst, nil
}

func (e *CanonicalEncoder) appendKey(dst []byte, key ast.ChildKey) ([]byte, error) {
	if key.IsNamed() {
		return e.appendSum(dst, []byte(key.Name()))
	}

	return appendPadded(dst, key.Index()), nil
}

func (e *CanonicalEncoder) AppendValue(dst []byte, value ast.Value) ([]byte, error) {
	return e.appendValue(dst, value, nil)
}

func (e *CanonicalEncoder) appendValue(dst []byte, value ast.Value, path []ast.Node) ([]byte, error) {
	value = value.Resolve()

	switch value.Type() {
	case ast.TypeNull:
		return append(dst, nullSentinel[:]...), nil

	case ast.TypeString:
		return e.appendSum(dst, []byte(value.AsString()))

	case ast.TypeInt:
		return appendPadded(dst, uint64(value.AsInt())), nil

	case ast.TypeFloat:
		dst = append(dst, 0, 0, 0, 0, 0, 0, 0, floatTag)
		return le.AppendUint64(dst, math.Float64bits(value.AsFloat())), nil

	case ast.TypeNode:
		node := value.AsNode()
		if onPath(path, node) {
			if e.logger != nil {
				e.logger.Debug("cutting node cycle", zap.Int64("kind", node.Kind()), zap.Int("depth", len(path)))
			}
			return append(dst, unsupportedSentinel[:]...), nil
		}

		stream, err := e.appendNode(nil, node, path)
		if err != nil {
			return nil, err
		}

		return e.appendSum(dst, stream)

	default:
		return append(dst, unsupportedSentinel[:]...), nil
	}
}

// onPath reports whether node is one of path. A cycle always goes through a
// pointer, so only pointer nodes are looked up.
func onPath(path []ast.Node, node ast.Node) bool {
	if len(path) == 0 || node == nil || reflect.TypeOf(node).Kind() != reflect.Pointer {
		return false
	}

	for _, ancestor := range path {
		if ancestor == node {
			return true
		}
	}

	return false
}

// appendSum appends the digest of bytes computed through an independent
// hash state.
func (e *CanonicalEncoder) appendSum(dst []byte, bytes []byte) ([]byte, error) {
	digest, err := sum(e.newState, bytes)
	if err != nil {
		return nil, err
	}

	return append(dst, digest[:]...), nil
}

// appendPadded appends value as 8 zero bytes followed by its big-endian
// representation, the same layout whatever the platform word size.
func appendPadded(dst []byte, value uint64) []byte {
	dst = append(dst, 0, 0, 0, 0, 0, 0, 0, 0)
	return be.AppendUint64(dst, value)
}

func sum(newState stablehash.Factory, bytes []byte) (stablehash.Digest, error) {
	if newState == nil {
		return stablehash.Hash128(bytes), nil
	}

	state, err := newState()
	if err != nil {
		return stablehash.Digest{}, fmt.Errorf("%w: %w", ErrEngineInit, err)
	}

	if state == nil {
		return stablehash.Digest{}, fmt.Errorf("%w: factory returned no state", ErrEngineInit)
	}

	if _, err := state.Write(bytes); err != nil {
		return stablehash.Digest{}, fmt.Errorf("%w: %w", ErrEngineInit, err)
	}

	return state.Digest(), nil
}
