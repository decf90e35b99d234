package stablehash

import (
	"github.com/zeebo/xxh3"
)

var _ State = (*FastHasher)(nil)

type FastHasher struct {
	hasher *xxh3.Hasher
	count  uint64
}

func NewFastHasher() *FastHasher {
	return &FastHasher{
		hasher: xxh3.New(),
		count:  0,
	}
}

// Write implements io.Writer, it never fails.
func (h *FastHasher) Write(bytes []byte) (int, error) {
	h.count += uint64(len(bytes))

	return h.hasher.Write(bytes)
}

func (h *FastHasher) WriteString(s string) (int, error) {
	h.count += uint64(len(s))

	return h.hasher.WriteString(s)
}

func (h *FastHasher) Reset() {
	h.hasher.Reset()
	h.count = 0
}

// Len returns the amount of bytes written since creation or the last Reset.
func (h *FastHasher) Len() uint64 {
	return h.count
}

// Digest returns the hash of everything written so far. It does not change
// the state, more bytes can be written afterwards.
func (h *FastHasher) Digest() Digest {
	return digestFromUint128(h.hasher.Sum128())
}
