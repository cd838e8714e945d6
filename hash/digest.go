// Package hash provides the module's two hashing primitives: a
// domain-separated scalar accumulator (ScalarDigest) used to bind
// transcripts of points and bytes into a single challenge or witness
// scalar, and a BLAKE2b-backed HKDF for deriving symmetric keys.
package hash

import (
	"encoding/binary"
	stdhash "hash"

	"golang.org/x/crypto/blake2b"

	"github.com/eth2030/umbral/curve"
)

// ScalarDigest accumulates domain-separated input and reduces it to a
// scalar in Z_n. The protocol's hash-to-scalar operations (the capsule's
// challenge, key fragment x-coordinates, DH factors and signed metadata, the
// capsule fragment NIZK's challenge, secret key factory keys) go through one
// of these rather than calling blake2b directly, so the domain separation
// tag is always the first thing written and can never be omitted by
// accident. The one exception is the ECDSA message digest in package keys,
// which is a plain BLAKE2b-256 of the message.
type ScalarDigest struct {
	h stdhash.Hash
}

// NewScalarDigest starts an accumulator bound to dst. The tag is written as
// a one-byte length prefix followed by its bytes, so no two distinct tags
// can produce a colliding prefix regardless of what follows.
func NewScalarDigest(dst string) *ScalarDigest {
	h, err := blake2b.New512(nil)
	if err != nil {
		// blake2b.New512 only fails for an oversized key, and this module
		// never supplies one.
		panic(err)
	}
	h.Write([]byte{byte(len(dst))})
	h.Write([]byte(dst))
	return &ScalarDigest{h: h}
}

// UpdateBytes folds a length-prefixed byte string into the transcript.
func (d *ScalarDigest) UpdateBytes(b []byte) *ScalarDigest {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(b)))
	d.h.Write(lenBuf[:])
	d.h.Write(b)
	return d
}

// UpdatePoint folds a point's compressed encoding into the transcript.
func (d *ScalarDigest) UpdatePoint(p curve.Point) *ScalarDigest {
	b := p.Bytes()
	return d.UpdateBytes(b[:])
}

// UpdateScalar folds a scalar's encoding into the transcript.
func (d *ScalarDigest) UpdateScalar(s curve.Scalar) *ScalarDigest {
	b := s.Bytes()
	return d.UpdateBytes(b[:])
}

// Finalize reduces the accumulated transcript to a scalar in Z_n. In the
// vanishingly unlikely event the reduction lands on zero, the digest
// re-hashes its own output and retries, so Finalize always returns a
// nonzero scalar.
func (d *ScalarDigest) Finalize() curve.Scalar {
	sum := d.h.Sum(nil)
	for {
		s := curve.ScalarFromReducedBytes(sum)
		if !s.IsZero() {
			return s
		}
		next := blake2b.Sum512(sum)
		sum = next[:]
	}
}
