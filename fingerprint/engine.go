package fingerprint

import (
	"fmt"
	"sync"

	"github.com/streamingfast/ast-hash/ast"
	"github.com/streamingfast/ast-hash/stablehash"
	"go.uber.org/zap"
)

// Engine computes fingerprints. It holds no mutable state, a single Engine
// can be used from many goroutines at once.
type Engine struct {
	encoder  Encoder
	newState stablehash.Factory
	logger   *zap.Logger
}

type Option func(e *Engine)

// WithEncoder replaces the canonical encoder, digests then follow the
// encoder's Version.
func WithEncoder(encoder Encoder) Option {
	return func(e *Engine) {
		e.encoder = encoder
	}
}

// WithHasherFactory sets where hash states come from, for the final pass as
// well as for nested strings and nodes of the default encoder.
func WithHasherFactory(factory stablehash.Factory) Option {
	return func(e *Engine) {
		e.newState = factory
	}
}

// WithLogger forces traces to logger, regardless of the diagnostic
// environment.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = traceLogger()
	}

	if e.encoder == nil {
		e.encoder = NewCanonicalEncoder(e.newState, e.logger)
	}

	return e
}

func (e *Engine) Version() string {
	return e.encoder.Version()
}

// Hash returns the fingerprint of value. A node is encoded then hashed once,
// any other value gets its fixed size encoding hashed once more so scalars
// never collide with nodes by construction.
func (e *Engine) Hash(value ast.Value) (out stablehash.Digest, err error) {
	value = value.Resolve()

	var stream []byte
	if value.Type() == ast.TypeNode {
		stream, err = e.encoder.AppendNode(nil, value.AsNode())
	} else {
		stream, err = e.encoder.AppendValue(make([]byte, 0, EncodedSize), value)
	}
	if err != nil {
		return out, fmt.Errorf("encode %s: %w", value.Type(), err)
	}

	out, err = sum(e.newState, stream)
	if err != nil {
		return out, err
	}

	if e.logger != nil {
		e.logger.Debug("computed digest", zap.Stringer("type", value.Type()), zap.Int("stream_size", len(stream)), zap.Stringer("digest", out))
	}

	return out, nil
}

func (e *Engine) HashNode(node ast.Node) (stablehash.Digest, error) {
	return e.Hash(ast.NodeValue(node))
}

var (
	defaultEngineOnce sync.Once
	defaultEngine     *Engine
)

// Default returns the process wide engine, created on first use.
func Default() *Engine {
	defaultEngineOnce.Do(func() {
		defaultEngine = New()
	})

	return defaultEngine
}

// Hash computes the fingerprint of value with the Default engine.
func Hash(value ast.Value) (stablehash.Digest, error) {
	return Default().Hash(value)
}

func HashNode(node ast.Node) (stablehash.Digest, error) {
	return Default().HashNode(node)
}
