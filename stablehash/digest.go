package stablehash

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/shabbyrobe/go-num"
)

// Size is the length in bytes of a Digest.
const Size = 16

// Digest is the raw 128-bit output of the hash, in canonical (big-endian)
// byte order. It is comparable with ==.
type Digest [Size]byte

func NewDigestFromBytes(bytes []byte) (out Digest, err error) {
	if len(bytes) != Size {
		return out, fmt.Errorf("accepting exactly %d bytes, got %d", Size, len(bytes))
	}

	copy(out[:], bytes)
	return out, nil
}

func NewDigestFromHex(in string) (out Digest, err error) {
	bytes, err := hex.DecodeString(in)
	if err != nil {
		return out, fmt.Errorf("invalid hex %q: %w", in, err)
	}

	return NewDigestFromBytes(bytes)
}

func (d Digest) Bytes() []byte {
	return d[:]
}

// U128 returns the digest as an unsigned 128-bit integer, high word first.
func (d Digest) U128() num.U128 {
	return num.U128FromRaw(be.Uint64(d[0:8]), be.Uint64(d[8:16]))
}

func (d Digest) IsZero() bool {
	return d == Digest{}
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) Base64() string {
	return base64.StdEncoding.EncodeToString(d[:])
}

// Decimal renders the digest as a base 10 unsigned integer.
func (d Digest) Decimal() string {
	return d.U128().String()
}

func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Digest) UnmarshalText(text []byte) error {
	out, err := NewDigestFromHex(string(text))
	if err != nil {
		return err
	}

	*d = out
	return nil
}
