// Package capsule implements the KEM capsule: the three-element ciphertext
// from which a symmetric key is derived, either directly by the holder of
// the matching secret key or, after threshold re-encryption, by a
// delegatee reconstructing the key from capsule fragments (see package
// reconstruct).
package capsule

import (
	"github.com/eth2030/umbral/curve"
	"github.com/eth2030/umbral/errs"
	"github.com/eth2030/umbral/hash"
	"github.com/eth2030/umbral/keys"
)

// Size is the fixed wire size of a Capsule: E(33) ‖ V(33) ‖ s(32).
const Size = 2*curve.PointSize + curve.ScalarSize

// SharedKeySize is the length of the symmetric key this package derives.
const SharedKeySize = 32

// Capsule is the KEM ciphertext (E, V, s) produced by Encapsulate.
type Capsule struct {
	E curve.Point
	V curve.Point
	s curve.Scalar
}

// challengeScalar computes h = H_capsule(E‖V), the Schnorr-style challenge
// binding the capsule's two points to its correctness witness s.
func challengeScalar(e, v curve.Point) curve.Scalar {
	return hash.NewScalarDigest(hash.DSTCapsule).UpdatePoint(e).UpdatePoint(v).Finalize()
}

// Encapsulate generates a fresh capsule addressed to pk and returns the
// 32-byte symmetric key an eventual decapsulation (original or
// re-encrypted) will also derive.
func Encapsulate(pk keys.PublicKey) (key []byte, cap Capsule, err error) {
	privR, err := curve.RandomScalar()
	if err != nil {
		return nil, Capsule{}, err
	}
	privU, err := curve.RandomScalar()
	if err != nil {
		return nil, Capsule{}, err
	}

	pubR := curve.ScalarBaseMult(privR)
	pubU := curve.ScalarBaseMult(privU)

	h := challengeScalar(pubR, pubU)
	s := privU.Add(privR.Mul(h))

	sharedScalar := privR.Add(privU)
	shared, err := pk.Point().ScalarMult(sharedScalar)
	if err != nil {
		return nil, Capsule{}, err
	}
	sharedBytes := shared.Bytes()
	key, err = hash.KDF(sharedBytes[:], SharedKeySize, nil, []byte(hash.DSTPointShared))
	if err != nil {
		return nil, Capsule{}, err
	}

	return key, Capsule{E: pubR, V: pubU, s: s}, nil
}

// Verify reports whether s*g == V + h*E, the capsule's self-consistency
// check.
func (c Capsule) Verify() bool {
	h := challengeScalar(c.E, c.V)
	lhs := curve.ScalarBaseMult(c.s)
	rhsTerm, err := c.E.ScalarMult(h)
	if err != nil {
		return false
	}
	rhs, err := c.V.Add(rhsTerm)
	if err != nil {
		return false
	}
	return lhs.Equal(rhs)
}

// Witness returns the capsule's correctness witness s, the scalar
// reconstruction checks a re-derived V' and E' against.
func (c Capsule) Witness() curve.Scalar { return c.s }

// ChallengeScalar returns h = H_capsule(E‖V), recomputed from the capsule's
// own points. Package reconstruct needs this to re-run the correctness
// check against the Lagrange-combined fragments rather than the capsule's
// original E and V.
func (c Capsule) ChallengeScalar() curve.Scalar {
	return challengeScalar(c.E, c.V)
}

// DecapsulateOriginal recovers the symmetric key for the secret key holder
// that Encapsulate addressed the capsule to.
func DecapsulateOriginal(sk keys.SecretKey, c Capsule) ([]byte, error) {
	if !c.Verify() {
		return nil, errs.ErrInvalidCapsule
	}
	sumPoint, err := c.E.Add(c.V)
	if err != nil {
		return nil, errs.ErrInvalidCapsule
	}
	shared, err := sumPoint.ScalarMult(secretScalar(sk))
	if err != nil {
		return nil, errs.ErrInvalidCapsule
	}
	sharedBytes := shared.Bytes()
	return hash.KDF(sharedBytes[:], SharedKeySize, nil, []byte(hash.DSTPointShared))
}

// Bytes serializes the capsule as E(33) ‖ V(33) ‖ s(32).
func (c Capsule) Bytes() [Size]byte {
	var out [Size]byte
	e := c.E.Bytes()
	v := c.V.Bytes()
	s := c.s.Bytes()
	copy(out[:curve.PointSize], e[:])
	copy(out[curve.PointSize:2*curve.PointSize], v[:])
	copy(out[2*curve.PointSize:], s[:])
	return out
}

// FromBytes decodes a canonical 98-byte capsule. It does not itself call
// Verify; callers that need a verified capsule should call Verify
// explicitly, matching the module-wide convention that decoding and
// verification are separate steps.
func FromBytes(b []byte) (Capsule, error) {
	if len(b) < Size {
		return Capsule{}, &errs.SerializationError{Kind: errs.Truncated, Type: "Capsule"}
	}
	if len(b) > Size {
		return Capsule{}, &errs.SerializationError{Kind: errs.ExtraBytes, Type: "Capsule"}
	}
	e, err := curve.PointFromBytes(b[:curve.PointSize])
	if err != nil {
		return Capsule{}, &errs.SerializationError{Kind: errs.InvalidPoint, Type: "Capsule.E"}
	}
	v, err := curve.PointFromBytes(b[curve.PointSize : 2*curve.PointSize])
	if err != nil {
		return Capsule{}, &errs.SerializationError{Kind: errs.InvalidPoint, Type: "Capsule.V"}
	}
	s, err := curve.ScalarFromBytes(b[2*curve.PointSize:])
	if err != nil {
		return Capsule{}, &errs.SerializationError{Kind: errs.InvalidScalar, Type: "Capsule.s"}
	}
	return Capsule{E: e, V: v, s: s}, nil
}

// secretScalar reaches into a SecretKey for its raw scalar. keys.SecretKey
// deliberately does not export this; capsule, kfrag, and reconstruct all
// need it for KEM/rekey arithmetic, so it goes through a package-level accessor
// kept next to the type it unwraps rather than widening SecretKey's public
// API.
func secretScalar(sk keys.SecretKey) curve.Scalar {
	return keys.ScalarOf(sk)
}
