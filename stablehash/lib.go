package stablehash

import (
	"encoding/binary"
	"io"

	"github.com/zeebo/xxh3"
)

// State is the incremental side of a 128-bit hash. A State is owned by a
// single in-flight computation and must never be shared between goroutines.
type State interface {
	io.Writer

	Reset()
	Digest() Digest
}

var be = binary.BigEndian

// Factory creates a fresh State. Construction is allowed to fail, callers
// are expected to surface the error instead of producing a digest.
type Factory func() (State, error)

// DefaultFactory returns XXH3-128 backed states.
func DefaultFactory() (State, error) {
	return NewFastHasher(), nil
}

// Hash128 runs bytes through a single, independent XXH3-128 invocation.
func Hash128(bytes []byte) Digest {
	return digestFromUint128(xxh3.Hash128(bytes))
}

// Hash128String is like Hash128 but avoids copying the string.
func Hash128String(s string) Digest {
	return digestFromUint128(xxh3.HashString128(s))
}

// digestFromUint128 lays out the hash in canonical XXH128 form: high word
// first, both words big-endian.
func digestFromUint128(hash xxh3.Uint128) (out Digest) {
	be.PutUint64(out[0:8], hash.Hi)
	be.PutUint64(out[8:16], hash.Lo)

	return
}
