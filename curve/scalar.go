// Package curve is a thin semantic façade over the secp256k1 scalar/point
// backend (github.com/decred/dcrd/dcrec/secp256k1/v4), exposing only the
// operations the Umbral protocol needs: scalar add/sub/mul/invert, point
// add, scalar*point, equality, and fixed-width compressed serialization.
//
// The backend is treated as an external collaborator: this package never
// implements its own field or curve arithmetic for anything on the hot
// path. The one exception, the one-time derivation of the NUMS generator U
// in params.go, intentionally steps outside the backend because that
// derivation needs a square root in the base field, runs exactly once at
// init, and is not required to be constant-time.
package curve

import (
	"crypto/rand"
	"crypto/subtle"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/eth2030/umbral/errs"
)

// ScalarSize is the fixed wire size of a scalar: 32 bytes, big-endian.
const ScalarSize = 32

// Scalar is an element of Z_n, n the order of the secp256k1 base point.
type Scalar struct {
	s secp256k1.ModNScalar
}

// RandomScalar draws a uniformly random nonzero scalar via rejection
// sampling.
func RandomScalar() (Scalar, error) {
	var buf [ScalarSize]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return Scalar{}, err
		}
		var s secp256k1.ModNScalar
		overflow := s.SetByteSlice(buf[:])
		if overflow || s.IsZero() {
			continue
		}
		return Scalar{s: s}, nil
	}
}

// ScalarFromBytes decodes a canonical 32-byte big-endian scalar. Values
// that are not the minimal reduced representative of an element of Z_n are
// rejected; callers must supply exactly ScalarSize bytes.
func ScalarFromBytes(b []byte) (Scalar, error) {
	if len(b) < ScalarSize {
		return Scalar{}, &errs.SerializationError{Kind: errs.Truncated, Type: "Scalar"}
	}
	if len(b) > ScalarSize {
		return Scalar{}, &errs.SerializationError{Kind: errs.ExtraBytes, Type: "Scalar"}
	}
	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(b); overflow {
		return Scalar{}, &errs.SerializationError{Kind: errs.InvalidScalar, Type: "Scalar"}
	}
	return Scalar{s: s}, nil
}

// ScalarFromReducedBytes reduces an arbitrary-length big-endian byte string
// mod n. Used by the hash accumulator's Finalize and by ECDSA's hash-to-
// scalar conversion, both of which are explicitly reductions rather than
// canonical decodes.
func ScalarFromReducedBytes(b []byte) Scalar {
	var s secp256k1.ModNScalar
	if len(b) <= ScalarSize {
		s.SetByteSlice(b)
		return Scalar{s: s}
	}
	// SetByteSlice only reads 32 bytes, so longer input is folded in 32-byte
	// chunks by Horner's rule: acc = acc*2^256 + chunk (mod n).
	var twoTo256 secp256k1.ModNScalar // 2^256 mod n
	twoTo256.SetByteSlice([]byte{0x01, 0x45, 0x51, 0x23, 0x19, 0x50, 0xb7, 0x5f, 0xc4,
		0x40, 0x2d, 0xa1, 0x73, 0x2f, 0xc9, 0xbe, 0xbf})
	head := len(b) % ScalarSize
	if head == 0 {
		head = ScalarSize
	}
	s.SetByteSlice(b[:head])
	for off := head; off < len(b); off += ScalarSize {
		var chunk secp256k1.ModNScalar
		chunk.SetByteSlice(b[off : off+ScalarSize])
		s.Mul(&twoTo256).Add(&chunk)
	}
	return Scalar{s: s}
}

// ScalarFromUint32 lifts a small non-negative integer into Z_n.
func ScalarFromUint32(v uint32) Scalar {
	var s secp256k1.ModNScalar
	s.SetInt(v)
	return Scalar{s: s}
}

// Bytes serializes the scalar as 32-byte big-endian.
func (s Scalar) Bytes() [ScalarSize]byte {
	return s.s.Bytes()
}

// Add returns s + o mod n.
func (s Scalar) Add(o Scalar) Scalar {
	var r secp256k1.ModNScalar
	r.Add2(&s.s, &o.s)
	return Scalar{s: r}
}

// Sub returns s - o mod n.
func (s Scalar) Sub(o Scalar) Scalar {
	return s.Add(o.Negate())
}

// Mul returns s * o mod n.
func (s Scalar) Mul(o Scalar) Scalar {
	var r secp256k1.ModNScalar
	r.Mul2(&s.s, &o.s)
	return Scalar{s: r}
}

// Negate returns -s mod n.
func (s Scalar) Negate() Scalar {
	r := s.s
	r.Negate()
	return Scalar{s: r}
}

// Invert returns s^-1 mod n, or ErrZeroScalar if s is zero.
func (s Scalar) Invert() (Scalar, error) {
	if s.s.IsZero() {
		return Scalar{}, errs.ErrZeroScalar
	}
	r := s.s
	r.InverseNonConst()
	return Scalar{s: r}, nil
}

// IsZero reports whether s is the additive identity.
func (s Scalar) IsZero() bool {
	return s.s.IsZero()
}

// Equal reports whether s == o. Safe for use on public scalars (ids,
// challenge hashes, signature components); use ConstantTimeEqual for any
// comparison that touches a SecretKey's scalar.
func (s Scalar) Equal(o Scalar) bool {
	return s.s.Equals(&o.s)
}

// ConstantTimeEqual reports whether s == o without branching on the scalar
// value. Use this for any comparison that touches secret material.
func (s Scalar) ConstantTimeEqual(o Scalar) bool {
	a := s.Bytes()
	b := o.Bytes()
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// Zeroize overwrites the scalar's internal representation.
func (s *Scalar) Zeroize() {
	s.s.Zero()
}

// IsHighS reports whether s is greater than n/2, the ECDSA low-s
// normalization threshold.
func (s Scalar) IsHighS() bool {
	return s.s.IsOverHalfOrder()
}
