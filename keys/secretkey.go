// Package keys implements the delegator/delegatee/signer key material: raw
// secp256k1 secret and public keys, the label-derived secret key factory,
// and manual ECDSA-on-secp256k1 signing over the curve façade. None of
// this reaches for a third-party signature package because the protocol
// needs a fixed 64-byte r‖s layout, not the DER encoding those packages
// emit.
package keys

import (
	"fmt"

	"github.com/eth2030/umbral/curve"
	"github.com/eth2030/umbral/errs"
	"github.com/eth2030/umbral/hash"
)

// SecretKeySize is the fixed wire size of a SecretKey: 32 bytes.
const SecretKeySize = curve.ScalarSize

// SecretKey is a delegator's, delegatee's, or signer's private scalar.
type SecretKey struct {
	scalar curve.Scalar
}

// RandomSecretKey draws a uniformly random secret key.
func RandomSecretKey() (SecretKey, error) {
	s, err := curve.RandomScalar()
	if err != nil {
		return SecretKey{}, err
	}
	return SecretKey{scalar: s}, nil
}

// SecretKeyFromBytes decodes a canonical 32-byte scalar.
func SecretKeyFromBytes(b []byte) (SecretKey, error) {
	s, err := curve.ScalarFromBytes(b)
	if err != nil {
		return SecretKey{}, err
	}
	if s.IsZero() {
		return SecretKey{}, errs.ErrZeroScalar
	}
	return SecretKey{scalar: s}, nil
}

// Bytes returns the 32-byte big-endian encoding of the secret scalar.
func (sk SecretKey) Bytes() [SecretKeySize]byte {
	return sk.scalar.Bytes()
}

// PublicKey returns the corresponding public key P = k*g.
func (sk SecretKey) PublicKey() PublicKey {
	return PublicKey{point: curve.ScalarBaseMult(sk.scalar)}
}

// Zeroize overwrites the secret scalar.
func (sk *SecretKey) Zeroize() {
	sk.scalar.Zeroize()
}

// ScalarOf exposes a SecretKey's raw scalar to the other protocol packages
// (capsule, kfrag, reconstruct) that must multiply curve points by it
// directly. It is not a method on SecretKey so that the zero-value-safe,
// no-leak String() below stays the only way this type prints.
func ScalarOf(sk SecretKey) curve.Scalar {
	return sk.scalar
}

// String never prints the secret scalar, per the module's no-leak
// discipline for secret-bearing types.
func (sk SecretKey) String() string {
	return "SecretKey:<redacted>"
}

// SecretKeyFactorySize is the fixed wire size of a SecretKeyFactory seed.
const SecretKeyFactorySize = 32

// SecretKeyFactory derives a tree of secret keys and sub-factories from a
// single 32-byte seed, by label.
type SecretKeyFactory struct {
	seed [SecretKeyFactorySize]byte
}

// RandomSecretKeyFactory draws a uniformly random 32-byte seed.
func RandomSecretKeyFactory() (SecretKeyFactory, error) {
	var f SecretKeyFactory
	s, err := curve.RandomScalar()
	if err != nil {
		return SecretKeyFactory{}, err
	}
	// Any uniformly random 32 bytes serve as a seed; reusing RandomScalar's
	// rejection-sampled output is simplest and still uniform over the seed
	// space modulo the (negligible) bias of excluding zero and every value
	// at or above the group order n.
	f.seed = s.Bytes()
	return f, nil
}

// SecretKeyFactoryFromBytes decodes a 32-byte seed.
func SecretKeyFactoryFromBytes(b []byte) (SecretKeyFactory, error) {
	if len(b) < SecretKeyFactorySize {
		return SecretKeyFactory{}, &errs.SerializationError{Kind: errs.Truncated, Type: "SecretKeyFactory"}
	}
	if len(b) > SecretKeyFactorySize {
		return SecretKeyFactory{}, &errs.SerializationError{Kind: errs.ExtraBytes, Type: "SecretKeyFactory"}
	}
	var f SecretKeyFactory
	copy(f.seed[:], b)
	return f, nil
}

// Bytes returns the 32-byte seed.
func (f SecretKeyFactory) Bytes() [SecretKeyFactorySize]byte {
	return f.seed
}

// MakeFactory derives a child factory whose seed is
// KDF(parent_seed, 32, salt=label, info="SKF_FACTORY").
func (f SecretKeyFactory) MakeFactory(label []byte) (SecretKeyFactory, error) {
	derived, err := hash.KDF(f.seed[:], SecretKeyFactorySize, label, []byte(hash.DSTSKFFactory))
	if err != nil {
		return SecretKeyFactory{}, err
	}
	var child SecretKeyFactory
	copy(child.seed[:], derived)
	return child, nil
}

// MakeKey derives a secret key whose scalar is
// hash_to_scalar(dst="SKF_SECRET_KEY", KDF(seed, 64, salt=label, info="SKF_KEY")).
func (f SecretKeyFactory) MakeKey(label []byte) (SecretKey, error) {
	derived, err := hash.KDF(f.seed[:], 64, label, []byte(hash.DSTSKFKey))
	if err != nil {
		return SecretKey{}, err
	}
	scalar := hash.NewScalarDigest(hash.DSTSKFSecretKey).UpdateBytes(derived).Finalize()
	return SecretKey{scalar: scalar}, nil
}

// Zeroize overwrites the seed.
func (f *SecretKeyFactory) Zeroize() {
	for i := range f.seed {
		f.seed[i] = 0
	}
}

// String never prints the seed.
func (f SecretKeyFactory) String() string {
	return "SecretKeyFactory:<redacted>"
}

// PublicKeySize is the fixed wire size of a PublicKey: 33 bytes.
const PublicKeySize = curve.PointSize

// PublicKey is a delegator's, delegatee's, or signer's public point.
type PublicKey struct {
	point curve.Point
}

// PublicKeyFromBytes decodes a canonical 33-byte compressed point.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	p, err := curve.PointFromBytes(b)
	if err != nil {
		return PublicKey{}, err
	}
	return PublicKey{point: p}, nil
}

// Bytes returns the 33-byte SEC1-compressed encoding.
func (pk PublicKey) Bytes() [PublicKeySize]byte {
	return pk.point.Bytes()
}

// Equal reports whether pk == o.
func (pk PublicKey) Equal(o PublicKey) bool {
	return pk.point.Equal(o.point)
}

// Point exposes the underlying curve point for packages that build on top
// of raw keys (capsule, kfrag, reconstruct).
func (pk PublicKey) Point() curve.Point {
	return pk.point
}

// PublicKeyFromPoint wraps an already-computed point as a PublicKey.
func PublicKeyFromPoint(p curve.Point) PublicKey {
	return PublicKey{point: p}
}

func (pk PublicKey) String() string {
	b := pk.Bytes()
	return fmt.Sprintf("PublicKey:%x", b)
}
