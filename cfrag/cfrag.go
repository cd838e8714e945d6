// Package cfrag implements proxy re-encryption and capsule fragment
// verification: turning a capsule plus a verified key fragment into a
// fragment a delegatee can combine with t-1 others to recover the
// symmetric key, along with a non-interactive proof that the proxy did so
// honestly.
package cfrag

import (
	"github.com/eth2030/umbral/capsule"
	"github.com/eth2030/umbral/curve"
	"github.com/eth2030/umbral/errs"
	"github.com/eth2030/umbral/hash"
	"github.com/eth2030/umbral/keys"
	"github.com/eth2030/umbral/kfrag"
)

// ProofSize is the fixed wire size of a CapsuleFragProof:
// E2(33) ‖ V2(33) ‖ U2(33) ‖ z(32) ‖ kfrag_signature(64) ‖ mode(1).
const ProofSize = 3*curve.PointSize + curve.ScalarSize + keys.SignatureSize + 1

// BaseSize is the fixed wire size of a CapsuleFrag excluding its proof:
// E1(33) ‖ V1(33) ‖ id(32) ‖ precursor(33).
const BaseSize = 2*curve.PointSize + curve.ScalarSize + curve.PointSize

// Size is the total fixed wire size of a CapsuleFrag.
const Size = BaseSize + ProofSize

// CapsuleFragProof is the non-interactive zero-knowledge proof that E1
// and V1 share the discrete log rk with the originating key fragment's
// commitment, relative to bases E, V, and U respectively.
type CapsuleFragProof struct {
	E2, V2, U2     curve.Point
	z              curve.Scalar
	kfragSignature keys.Signature
	mode           byte
}

// CapsuleFrag is a proxy's re-encryption of a capsule toward one key
// fragment's share of the re-encryption key.
type CapsuleFrag struct {
	E1, V1    curve.Point
	id        curve.Scalar
	precursor curve.Point
	proof     CapsuleFragProof
}

// ID returns the identifier of the key fragment this capsule fragment was
// produced from, used to detect repeated fragments during reconstruction.
func (cf CapsuleFrag) ID() curve.Scalar { return cf.id }

// Precursor returns the precursor point shared by every fragment from the
// same key fragment batch, used to detect mismatched fragments during
// reconstruction.
func (cf CapsuleFrag) Precursor() curve.Point { return cf.precursor }

// VerifiedCapsuleFrag is a CapsuleFrag that has passed Verify, or one
// produced directly by Reencrypt (whose own proof is correct by
// construction). It is the only form package reconstruct accepts.
type VerifiedCapsuleFrag struct {
	CapsuleFrag
}

// Unverify strips the verification attestation.
func (vcf VerifiedCapsuleFrag) Unverify() CapsuleFrag {
	return vcf.CapsuleFrag
}

func challengeScalar(e, e1, e2, v, v1, v2, u, commitment, u2 curve.Point) curve.Scalar {
	return hash.NewScalarDigest(hash.DSTCFragVerification).
		UpdatePoint(e).
		UpdatePoint(e1).
		UpdatePoint(e2).
		UpdatePoint(v).
		UpdatePoint(v1).
		UpdatePoint(v2).
		UpdatePoint(u).
		UpdatePoint(commitment).
		UpdatePoint(u2).
		Finalize()
}

// Reencrypt transforms cap toward the delegatee implied by vkf's share of
// the re-encryption key, without ever learning the delegator's or
// delegatee's secret key. The capsule must already be self-consistent
// (cap.Verify()); the proxy is never trusted to evaluate that on the
// caller's behalf silently, so failure is reported rather than assumed.
func Reencrypt(cap capsule.Capsule, vkf kfrag.VerifiedKeyFrag) (VerifiedCapsuleFrag, error) {
	if !cap.Verify() {
		return VerifiedCapsuleFrag{}, errs.ErrInvalidCapsule
	}

	rk := vkf.RK()
	e1, err := cap.E.ScalarMult(rk)
	if err != nil {
		return VerifiedCapsuleFrag{}, err
	}
	v1, err := cap.V.ScalarMult(rk)
	if err != nil {
		return VerifiedCapsuleFrag{}, err
	}

	t, err := curve.RandomScalar()
	if err != nil {
		return VerifiedCapsuleFrag{}, err
	}
	e2, err := cap.E.ScalarMult(t)
	if err != nil {
		return VerifiedCapsuleFrag{}, err
	}
	v2, err := cap.V.ScalarMult(t)
	if err != nil {
		return VerifiedCapsuleFrag{}, err
	}
	u2, err := curve.UGenerator().ScalarMult(t)
	if err != nil {
		return VerifiedCapsuleFrag{}, err
	}

	h := challengeScalar(cap.E, e1, e2, cap.V, v1, v2, curve.UGenerator(), vkf.Commitment(), u2)
	z := t.Add(h.Mul(rk))

	cf := CapsuleFrag{
		E1:        e1,
		V1:        v1,
		id:        vkf.ID(),
		precursor: vkf.Precursor(),
		proof: CapsuleFragProof{
			E2:             e2,
			V2:             v2,
			U2:             u2,
			z:              z,
			kfragSignature: vkf.Signature(),
			mode:           vkf.Mode(),
		},
	}
	return VerifiedCapsuleFrag{CapsuleFrag: cf}, nil
}

// Verify checks cf's NIZK proof against cap and commitment (the
// originating key fragment's commitment, which the verifier must already
// know — see DESIGN.md for why the proof itself cannot carry it), then
// re-checks the embedded key fragment signature against verifyingPK,
// binding this capsule fragment back to the delegator that authorized it.
func (cf CapsuleFrag) Verify(cap capsule.Capsule, verifyingPK, pkA, pkB keys.PublicKey, commitment curve.Point) (VerifiedCapsuleFrag, error) {
	h := challengeScalar(cap.E, cf.E1, cf.proof.E2, cap.V, cf.V1, cf.proof.V2, curve.UGenerator(), commitment, cf.proof.U2)

	if !checkLinearRelation(cap.E, cf.E1, cf.proof.E2, h, cf.proof.z) {
		return VerifiedCapsuleFrag{}, errs.ErrInvalidCapsuleFragProof
	}
	if !checkLinearRelation(cap.V, cf.V1, cf.proof.V2, h, cf.proof.z) {
		return VerifiedCapsuleFrag{}, errs.ErrInvalidCapsuleFragProof
	}
	if !checkLinearRelation(curve.UGenerator(), commitment, cf.proof.U2, h, cf.proof.z) {
		return VerifiedCapsuleFrag{}, errs.ErrInvalidCapsuleFragProof
	}

	signDelegatingKey := cf.proof.mode&kfrag.ModeSignDelegatingKey != 0
	signReceivingKey := cf.proof.mode&kfrag.ModeSignReceivingKey != 0
	metadata := kfrag.MetadataScalar(cf.id, pkA, pkB, commitment, cf.precursor, signDelegatingKey, signReceivingKey)
	if !cf.proof.kfragSignature.Verify(verifyingPK, kfrag.SigningMessage(metadata, cf.proof.mode)) {
		return VerifiedCapsuleFrag{}, errs.ErrInvalidKeyFragSignature
	}

	return VerifiedCapsuleFrag{CapsuleFrag: cf}, nil
}

// checkLinearRelation verifies z*base == resp + h*target, the Sigma
// protocol's verification equation for one of the three bases (E, V, U)
// the NIZK binds together.
func checkLinearRelation(base, target, resp curve.Point, h, z curve.Scalar) bool {
	lhs, err := base.ScalarMult(z)
	if err != nil {
		return false
	}
	term, err := target.ScalarMult(h)
	if err != nil {
		return false
	}
	rhs, err := resp.Add(term)
	if err != nil {
		return false
	}
	return lhs.Equal(rhs)
}

// Bytes serializes the capsule fragment: E1 ‖ V1 ‖ id ‖ precursor ‖
// E2 ‖ V2 ‖ U2 ‖ z ‖ kfrag_signature ‖ mode.
func (cf CapsuleFrag) Bytes() [Size]byte {
	var out [Size]byte
	off := 0
	putPoint := func(p curve.Point) {
		b := p.Bytes()
		copy(out[off:], b[:])
		off += curve.PointSize
	}
	putScalar := func(s curve.Scalar) {
		b := s.Bytes()
		copy(out[off:], b[:])
		off += curve.ScalarSize
	}

	putPoint(cf.E1)
	putPoint(cf.V1)
	putScalar(cf.id)
	putPoint(cf.precursor)
	putPoint(cf.proof.E2)
	putPoint(cf.proof.V2)
	putPoint(cf.proof.U2)
	putScalar(cf.proof.z)
	sigB := cf.proof.kfragSignature.Bytes()
	copy(out[off:], sigB[:])
	off += keys.SignatureSize
	out[off] = cf.proof.mode
	return out
}

// FromBytes decodes a canonical capsule fragment.
func FromBytes(b []byte) (CapsuleFrag, error) {
	if len(b) < Size {
		return CapsuleFrag{}, &errs.SerializationError{Kind: errs.Truncated, Type: "CapsuleFrag"}
	}
	if len(b) > Size {
		return CapsuleFrag{}, &errs.SerializationError{Kind: errs.ExtraBytes, Type: "CapsuleFrag"}
	}

	off := 0
	getPoint := func(typ string) (curve.Point, error) {
		p, err := curve.PointFromBytes(b[off : off+curve.PointSize])
		off += curve.PointSize
		if err != nil {
			return curve.Point{}, &errs.SerializationError{Kind: errs.InvalidPoint, Type: typ}
		}
		return p, nil
	}
	getScalar := func(typ string) (curve.Scalar, error) {
		s, err := curve.ScalarFromBytes(b[off : off+curve.ScalarSize])
		off += curve.ScalarSize
		if err != nil {
			return curve.Scalar{}, &errs.SerializationError{Kind: errs.InvalidScalar, Type: typ}
		}
		return s, nil
	}

	e1, err := getPoint("CapsuleFrag.E1")
	if err != nil {
		return CapsuleFrag{}, err
	}
	v1, err := getPoint("CapsuleFrag.V1")
	if err != nil {
		return CapsuleFrag{}, err
	}
	id, err := getScalar("CapsuleFrag.id")
	if err != nil {
		return CapsuleFrag{}, err
	}
	precursor, err := getPoint("CapsuleFrag.precursor")
	if err != nil {
		return CapsuleFrag{}, err
	}
	e2, err := getPoint("CapsuleFragProof.E2")
	if err != nil {
		return CapsuleFrag{}, err
	}
	v2, err := getPoint("CapsuleFragProof.V2")
	if err != nil {
		return CapsuleFrag{}, err
	}
	u2, err := getPoint("CapsuleFragProof.U2")
	if err != nil {
		return CapsuleFrag{}, err
	}
	z, err := getScalar("CapsuleFragProof.z")
	if err != nil {
		return CapsuleFrag{}, err
	}
	sig, err := keys.SignatureFromBytes(b[off : off+keys.SignatureSize])
	if err != nil {
		return CapsuleFrag{}, err
	}
	off += keys.SignatureSize
	mode := b[off]

	return CapsuleFrag{
		E1:        e1,
		V1:        v1,
		id:        id,
		precursor: precursor,
		proof: CapsuleFragProof{
			E2:             e2,
			V2:             v2,
			U2:             u2,
			z:              z,
			kfragSignature: sig,
			mode:           mode,
		},
	}, nil
}
