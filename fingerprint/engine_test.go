package fingerprint

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/streamingfast/ast-hash/ast"
	"github.com/streamingfast/ast-hash/stablehash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// sampleTree mimics a parsed `function foo(int $a) { return $a + 1; }`.
func sampleTree(flags int64) *ast.Element {
	param := ast.NewElement(1, 0,
		ast.NamedChild("type", ast.NewElement(2, 4).Value()),
		ast.NamedChild("name", ast.String("a")),
		ast.NamedChild("default", ast.Null()),
	)

	body := ast.NewElement(3, 0,
		ast.IndexedChild(0, ast.NewElement(4, 0,
			ast.NamedChild("expr", ast.NewElement(5, 1,
				ast.NamedChild("left", ast.NewElement(6, 0, ast.NamedChild("name", ast.String("a"))).Value()),
				ast.NamedChild("right", ast.Int(1)),
			).Value()),
		).Value()),
	)

	return ast.NewElement(66, flags,
		ast.NamedChild("name", ast.String("foo")),
		ast.NamedChild("params", ast.NewElement(7, 0, ast.IndexedChild(0, param.Value())).Value()),
		ast.NamedChild("stmts", body.Value()),
		ast.NamedChild("returnType", ast.Null()),
		ast.NamedChild("ratio", ast.Float(0.5)),
	)
}

func mustHash(t *testing.T, value ast.Value) stablehash.Digest {
	t.Helper()

	digest, err := New().Hash(value)
	require.NoError(t, err)

	return digest
}

func TestEngine_Deterministic(t *testing.T) {
	first := mustHash(t, sampleTree(0).Value())

	for i := 0; i < 5; i++ {
		assert.Equal(t, first, mustHash(t, sampleTree(0).Value()))
	}

	fromDefault, err := Hash(sampleTree(0).Value())
	require.NoError(t, err)
	assert.Equal(t, first, fromDefault)
}

func TestEngine_IdentityIrrelevant(t *testing.T) {
	a := sampleTree(3)
	b := sampleTree(3)
	require.NotSame(t, a, b)

	assert.Equal(t, mustHash(t, a.Value()), mustHash(t, b.Value()))
}

func TestEngine_StructuralSensitivity(t *testing.T) {
	base := mustHash(t, sampleTree(0).Value())

	tests := []struct {
		name string
		tree *ast.Element
	}{
		{"root kind", func() *ast.Element {
			tree := sampleTree(0)
			return ast.NewElement(67, tree.Flags(), tree.Children()...)
		}()},
		{"root low flag", sampleTree(1)},
		{"root flag bit 25", sampleTree(1 << 25)},
		{"child value", sampleTree(0).Set("name", ast.String("bar"))},
		{"child type", sampleTree(0).Set("returnType", ast.Unsupported())},
		{"float value", sampleTree(0).Set("ratio", ast.Float(0.25))},
		{"extra child", sampleTree(0).Set("extra", ast.Null())},
		{"nested value", func() *ast.Element {
			tree := sampleTree(0)
			tree.Set("stmts", ast.NewElement(3, 0).Value())
			return tree
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, base, mustHash(t, tt.tree.Value()))
		})
	}
}

func TestEngine_HighFlagBitsIgnored(t *testing.T) {
	base := mustHash(t, sampleTree(0x15).Value())

	for _, bit := range []uint{26, 27, 30, 40, 62} {
		flags := int64(0x15) | int64(1)<<bit
		assert.Equal(t, base, mustHash(t, sampleTree(flags).Value()), "bit %d", bit)
	}

	assert.Equal(t, base, mustHash(t, sampleTree(0x15|math.MinInt64).Value()))
}

func TestEngine_AnnotationInsensitive(t *testing.T) {
	plain := sampleTree(0)
	annotated := sampleTree(0)

	// deep inside the tree, on a node whose digest feeds every ancestor
	stmts, _ := annotated.Get(ast.Named("stmts"))
	returnStmt, _ := stmts.AsNode().(*ast.Element).Get(ast.Indexed(0))
	returnStmt.AsNode().(*ast.Element).Set("phanTypeCache", ast.String("int"))
	annotated.Set("phan_nodes", ast.Int(42))

	assert.Equal(t, mustHash(t, plain.Value()), mustHash(t, annotated.Value()))
}

func TestEngine_OrderSensitive(t *testing.T) {
	first := ast.NewElement(10, 0)
	first.Set("left", ast.Int(1))
	first.Set("right", ast.Int(2))

	second := ast.NewElement(10, 0)
	second.Set("right", ast.Int(2))
	second.Set("left", ast.Int(1))

	assert.NotEqual(t, mustHash(t, first.Value()), mustHash(t, second.Value()))
}

func TestEngine_NamedAndIndexedKeysDiffer(t *testing.T) {
	named := ast.NewElement(10, 0, ast.NamedChild("0", ast.Int(1)))
	indexed := ast.NewElement(10, 0, ast.IndexedChild(0, ast.Int(1)))

	assert.NotEqual(t, mustHash(t, named.Value()), mustHash(t, indexed.Value()))
}

func TestEngine_Scalars(t *testing.T) {
	scalars := map[string]ast.Value{
		"null":        ast.Null(),
		"unsupported": ast.Unsupported(),
		"int 0":       ast.Int(0),
		"int 1":       ast.Int(1),
		"int 2":       ast.Int(2),
		"int -1":      ast.Int(-1),
		"float 0":     ast.Float(0.0),
		"float -0":    ast.Float(math.Copysign(0, -1)),
		"float 1":     ast.Float(1.0),
		"string":      ast.String(""),
		"string a":    ast.String("a"),
		"empty node":  ast.NewElement(0, 0).Value(),
	}

	seen := map[stablehash.Digest]string{}
	for name, value := range scalars {
		digest := mustHash(t, value)
		if other, found := seen[digest]; found {
			t.Errorf("%s and %s share digest %s", name, other, digest)
		}
		seen[digest] = name
	}
}

func TestEngine_ScalarTwoRounds(t *testing.T) {
	inner := stablehash.Hash128String("foo")
	assert.Equal(t, stablehash.Hash128(inner[:]), mustHash(t, ast.String("foo")))

	encoded := appendPadded(nil, 12)
	assert.Equal(t, stablehash.Hash128(encoded), mustHash(t, ast.Int(12)))
	assert.Equal(t, stablehash.Hash128(nullSentinel[:]), mustHash(t, ast.Null()))
}

func TestEngine_NodeSingleRound(t *testing.T) {
	tree := sampleTree(0)
	stream := encodeNode(t, tree)

	assert.Equal(t, stablehash.Hash128(stream), mustHash(t, tree.Value()))

	digest, err := New().HashNode(tree)
	require.NoError(t, err)
	assert.Equal(t, stablehash.Hash128(stream), digest)
}

func TestEngine_References(t *testing.T) {
	tree := sampleTree(0)
	value := tree.Value()

	assert.Equal(t, mustHash(t, value), mustHash(t, ast.Ref(&value)))

	name := ast.String("foo")
	aliased := sampleTree(0).Set("name", ast.Ref(&name))
	assert.Equal(t, mustHash(t, value), mustHash(t, aliased.Value()))
}

func TestEngine_MalformedNode(t *testing.T) {
	var missing *ast.Element

	digest, err := New().HashNode(missing)
	require.NoError(t, err)
	assert.Equal(t, stablehash.Hash128(nil), digest)
}

type failingFactory struct {
	failAfter int
	calls     int
}

func (f *failingFactory) New() (stablehash.State, error) {
	f.calls++
	if f.calls > f.failAfter {
		return nil, errors.New("out of memory")
	}

	return stablehash.NewFastHasher(), nil
}

func TestEngine_InitFailure(t *testing.T) {
	tests := []struct {
		name      string
		value     ast.Value
		failAfter int
	}{
		{"scalar final pass", ast.Int(1), 0},
		{"string encoding", ast.String("foo"), 0},
		{"node final pass", ast.NewElement(1, 0).Value(), 0},
		{"nested node", sampleTree(0).Value(), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := &failingFactory{failAfter: tt.failAfter}

			digest, err := New(WithHasherFactory(factory.New)).Hash(tt.value)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrEngineInit)
			assert.True(t, digest.IsZero())
		})
	}
}

func TestEngine_FactoryMatchesDefault(t *testing.T) {
	engine := New(WithHasherFactory(stablehash.DefaultFactory))

	digest, err := engine.Hash(sampleTree(0).Value())
	require.NoError(t, err)
	assert.Equal(t, mustHash(t, sampleTree(0).Value()), digest)
}

func TestEngine_Concurrent(t *testing.T) {
	engine := New()
	expected := mustHash(t, sampleTree(0).Value())

	var wg sync.WaitGroup
	digests := make([]stablehash.Digest, 16)
	for i := range digests {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			digests[i], _ = engine.Hash(sampleTree(0).Value())
		}(i)
	}
	wg.Wait()

	for _, digest := range digests {
		assert.Equal(t, expected, digest)
	}
}

type versionTwo struct {
	*CanonicalEncoder
}

func (versionTwo) Version() string { return "test/v2" }

func (v versionTwo) AppendNode(dst []byte, node ast.Node) ([]byte, error) {
	return v.CanonicalEncoder.AppendNode(append(dst, 'v', '2'), node)
}

func TestEngine_WithEncoder(t *testing.T) {
	engine := New(WithEncoder(versionTwo{NewCanonicalEncoder(nil, nil)}))

	assert.Equal(t, "test/v2", engine.Version())
	assert.Equal(t, Version, New().Version())

	digest, err := engine.Hash(sampleTree(0).Value())
	require.NoError(t, err)
	assert.NotEqual(t, mustHash(t, sampleTree(0).Value()), digest)
}

func TestEngine_Traces(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	engine := New(WithLogger(zap.New(core)))

	tree := ast.NewElement(1, 0,
		ast.NamedChild("name", ast.String("foo")),
		ast.NamedChild("phanCache", ast.Int(1)),
	)

	digest, err := engine.Hash(tree.Value())
	require.NoError(t, err)

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, "visiting child", entries[0].Message)
	assert.Equal(t, "skipping reserved child", entries[1].Message)
	assert.Equal(t, "computed digest", entries[2].Message)
	assert.Equal(t, digest.String(), entries[2].ContextMap()["digest"])

	assert.Equal(t, mustHash(t, tree.Value()), digest)
}

func TestEngine_KnownAnswers(t *testing.T) {
	tests := []struct {
		name     string
		value    ast.Value
		expected string
	}{
		{"string", ast.String("foo"), "022773ec9992008738eccc7986788c6e"},
		{"int", ast.Int(42), "b2f85e59d4b3c38f3cfffd2553cd469e"},
		{"negative int", ast.Int(-1), "91de7409ff967463439f3077b77bed63"},
		{"float", ast.Float(0.5), "b05d1851e77813fa2689f841bf48fd35"},
		{"null", ast.Null(), "99e1747d7357b4792e42a56dedbddfb0"},
		{"bool", ast.Bool(true), "78070fe9759853b33527c783e6c1dd39"},
		{"malformed node", ast.NodeValue(nil), "99aa06d3014798d86001c324468d497f"},
		{"node", ast.NewElement(1, 0, ast.NamedChild("name", ast.String("foo"))).Value(), "d304509fedbdb353e37650bfeb1f5cec"},
		{"nested node", ast.NewElement(66, 0x7c000003,
			ast.NamedChild("name", ast.String("foo")),
			ast.NamedChild("phan_x", ast.Int(9)),
			ast.IndexedChild(0, ast.NewElement(2, 4).Value()),
			ast.NamedChild("ratio", ast.Float(0.5)),
			ast.NamedChild("default", ast.Null()),
		).Value(), "61032f171e5fdaf083667bba39e1d70b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			digest, err := Hash(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, digest.String())
		})
	}
}

func TestEngine_NodeCycles(t *testing.T) {
	t.Run("self", func(t *testing.T) {
		self := ast.NewElement(1, 0)
		self.Set("self", self.Value())

		digest := mustHash(t, self.Value())
		assert.Equal(t, "684dd699fcdc361e020580e87a599241", digest.String())
		assert.Equal(t, mustHash(t, ast.NewElement(1, 0, ast.NamedChild("self", ast.Unsupported())).Value()), digest)
	})

	t.Run("through a child", func(t *testing.T) {
		parent := ast.NewElement(1, 0)
		child := ast.NewElement(2, 0)
		parent.Set("next", child.Value())
		child.Set("back", parent.Value())

		expected := ast.NewElement(1, 0,
			ast.NamedChild("next", ast.NewElement(2, 0, ast.NamedChild("back", ast.Unsupported())).Value()),
		)
		assert.Equal(t, mustHash(t, expected.Value()), mustHash(t, parent.Value()))
	})

	t.Run("through a reference", func(t *testing.T) {
		self := ast.NewElement(1, 0)
		target := self.Value()
		self.Set("self", ast.Ref(&target))

		assert.Equal(t, mustHash(t, ast.NewElement(1, 0, ast.NamedChild("self", ast.Unsupported())).Value()), mustHash(t, self.Value()))
	})

	t.Run("shared child is not a cycle", func(t *testing.T) {
		shared := ast.NewElement(3, 0, ast.NamedChild("name", ast.String("a")))
		tree := ast.NewElement(1, 0,
			ast.IndexedChild(0, shared.Value()),
			ast.IndexedChild(1, shared.Value()),
		)

		copies := ast.NewElement(1, 0,
			ast.IndexedChild(0, ast.NewElement(3, 0, ast.NamedChild("name", ast.String("a"))).Value()),
			ast.IndexedChild(1, ast.NewElement(3, 0, ast.NamedChild("name", ast.String("a"))).Value()),
		)
		assert.Equal(t, mustHash(t, copies.Value()), mustHash(t, tree.Value()))
	})
}
