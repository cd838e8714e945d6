package keys

import (
	"golang.org/x/crypto/blake2b"

	"github.com/eth2030/umbral/curve"
	"github.com/eth2030/umbral/errs"
)

// SignatureSize is the fixed wire size of a Signature: 32-byte r followed
// by 32-byte s.
const SignatureSize = 2 * curve.ScalarSize

// Signature is a low-s-normalized ECDSA-on-secp256k1 signature.
type Signature struct {
	r, s curve.Scalar
}

// SignatureFromBytes decodes a canonical 64-byte r‖s signature.
func SignatureFromBytes(b []byte) (Signature, error) {
	if len(b) < SignatureSize {
		return Signature{}, &errs.SerializationError{Kind: errs.Truncated, Type: "Signature"}
	}
	if len(b) > SignatureSize {
		return Signature{}, &errs.SerializationError{Kind: errs.ExtraBytes, Type: "Signature"}
	}
	r, err := curve.ScalarFromBytes(b[:curve.ScalarSize])
	if err != nil {
		return Signature{}, &errs.SerializationError{Kind: errs.InvalidScalar, Type: "Signature.r"}
	}
	s, err := curve.ScalarFromBytes(b[curve.ScalarSize:])
	if err != nil {
		return Signature{}, &errs.SerializationError{Kind: errs.InvalidScalar, Type: "Signature.s"}
	}
	return Signature{r: r, s: s}, nil
}

// Bytes returns the 64-byte r‖s encoding.
func (sig Signature) Bytes() [SignatureSize]byte {
	var out [SignatureSize]byte
	rb := sig.r.Bytes()
	sb := sig.s.Bytes()
	copy(out[:curve.ScalarSize], rb[:])
	copy(out[curve.ScalarSize:], sb[:])
	return out
}

// Signer holds a secret key and produces signatures over it.
type Signer struct {
	sk SecretKey
}

// NewSigner wraps sk as a signing capability.
func NewSigner(sk SecretKey) Signer {
	return Signer{sk: sk}
}

// PublicKey returns the public key the produced signatures verify under.
func (s Signer) PublicKey() PublicKey {
	return s.sk.PublicKey()
}

// Sign hashes msg with BLAKE2b-256 and produces a low-s-normalized
// ECDSA-on-secp256k1 signature over the digest: draw a nonce, compute r
// from its base-point multiple's x-coordinate, solve for s, and retry on
// the (negligible-probability) degenerate cases where r or s would be
// zero.
func (s Signer) Sign(msg []byte) (Signature, error) {
	e := hashToScalar(msg)

	for {
		k, err := curve.RandomScalar()
		if err != nil {
			return Signature{}, err
		}
		R := curve.ScalarBaseMult(k)
		r := R.XCoordScalarModN()
		if r.IsZero() {
			continue
		}
		kInv, err := k.Invert()
		if err != nil {
			continue
		}
		sVal := kInv.Mul(e.Add(r.Mul(s.sk.scalar)))
		if sVal.IsZero() {
			continue
		}
		if sVal.IsHighS() {
			sVal = sVal.Negate()
		}
		return Signature{r: r, s: sVal}, nil
	}
}

// Verify reports whether sig is a valid signature by pk over msg.
func (sig Signature) Verify(pk PublicKey, msg []byte) bool {
	if sig.r.IsZero() || sig.s.IsZero() {
		return false
	}
	e := hashToScalar(msg)

	w, err := sig.s.Invert()
	if err != nil {
		return false
	}
	u1 := e.Mul(w)
	u2 := sig.r.Mul(w)

	p1 := curve.ScalarBaseMult(u1)
	p2, err := pk.point.ScalarMult(u2)
	if err != nil {
		return false
	}
	sumPoint, err := p1.Add(p2)
	if err != nil {
		return false
	}
	rPrime := sumPoint.XCoordScalarModN()
	return rPrime.Equal(sig.r)
}

func hashToScalar(msg []byte) curve.Scalar {
	digest := blake2b.Sum256(msg)
	return curve.ScalarFromReducedBytes(digest[:])
}

