// Package kfrag implements split-rekey key fragment generation and
// verification: a delegator turns a secret key into N shares of a
// re-encryption key, any t of which a proxy can later use to transform a
// capsule addressed to the delegator into one addressable by a delegatee,
// without the proxy ever learning the delegator's or delegatee's secret
// key.
package kfrag

import (
	"github.com/eth2030/umbral/curve"
	"github.com/eth2030/umbral/errs"
	"github.com/eth2030/umbral/hash"
	"github.com/eth2030/umbral/keys"
)

// Mode bits record which of the delegating/receiving public keys are
// embedded in the fragment's wire encoding and folded a second time into
// its signed metadata. pk_A and pk_B are always folded in once regardless
// of mode, per the canonical metadata framing below; the mode bits add a
// second, redundant binding and control whether the key is worth shipping
// alongside the fragment instead of relying on the verifier already
// knowing it.
const (
	ModeSignDelegatingKey byte = 1 << 0
	ModeSignReceivingKey  byte = 1 << 1
)

// Size is the wire size of a KeyFrag carrying neither optional public key:
// id(32) ‖ rk(32) ‖ precursor(33) ‖ commitment(33) ‖ signature(64) ‖ mode(1).
const Size = 2*curve.ScalarSize + 2*curve.PointSize + keys.SignatureSize + 1

// KeyFrag is one of the N shares a delegator's split-rekey produces.
type KeyFrag struct {
	id         curve.Scalar
	rk         curve.Scalar
	precursor  curve.Point
	commitment curve.Point
	sig        keys.Signature
	mode       byte
	pkA        *keys.PublicKey
	pkB        *keys.PublicKey
}

// ID returns the fragment's unique identifier.
func (kf KeyFrag) ID() curve.Scalar { return kf.id }

// RK returns the fragment's re-encryption key share. This is the one piece
// of secret material a proxy holding a KeyFrag learns; nothing lets it
// recover the delegator's or delegatee's secret key from rk alone.
func (kf KeyFrag) RK() curve.Scalar { return kf.rk }

// Precursor returns X_A = x_A*g, the ephemeral point generated alongside
// this batch of fragments.
func (kf KeyFrag) Precursor() curve.Point { return kf.precursor }

// Commitment returns rk*U, binding rk to this fragment without revealing it.
func (kf KeyFrag) Commitment() curve.Point { return kf.commitment }

// Signature returns the delegator-issued signature over this fragment's
// metadata.
func (kf KeyFrag) Signature() keys.Signature { return kf.sig }

// Mode returns the mode byte recording which optional keys are embedded.
func (kf KeyFrag) Mode() byte { return kf.mode }

// PKA returns the embedded delegating public key, or nil if the fragment
// was generated without ModeSignDelegatingKey.
func (kf KeyFrag) PKA() *keys.PublicKey { return kf.pkA }

// PKB returns the embedded receiving public key, or nil if the fragment
// was generated without ModeSignReceivingKey.
func (kf KeyFrag) PKB() *keys.PublicKey { return kf.pkB }

// VerifiedKeyFrag is a KeyFrag that has passed Verify, or one produced
// directly by GenerateKFrags (whose signature is correct by construction).
// It is the only form cfrag.Reencrypt accepts, so a fragment decoded with
// FromBytes must go through Verify before it can be re-encrypted.
type VerifiedKeyFrag struct {
	KeyFrag
}

// Unverify strips the verification attestation, e.g. before re-serializing
// the fragment for transmission.
func (vkf VerifiedKeyFrag) Unverify() KeyFrag {
	return vkf.KeyFrag
}

// XCoordinate computes the hash-to-scalar "x-coordinate" at which a key
// fragment's polynomial share is evaluated, binding the fragment's id to
// the delegator, delegatee, and precursor.
func XCoordinate(id curve.Scalar, pkA, pkB keys.PublicKey, precursor curve.Point) curve.Scalar {
	return hash.NewScalarDigest(hash.DSTXCoordinate).
		UpdateScalar(id).
		UpdatePoint(pkA.Point()).
		UpdatePoint(pkB.Point()).
		UpdatePoint(precursor).
		Finalize()
}

// KFragDH computes d, the shared blinding factor derived symmetrically by
// the delegator (from x_A and pk_B) and, later, by the delegatee (from
// sk_B and X_A): x_A*pk_B == sk_B*X_A.
func KFragDH(precursor, pkB, sharedPoint curve.Point) curve.Scalar {
	return hash.NewScalarDigest(hash.DSTPointShared).
		UpdatePoint(precursor).
		UpdatePoint(pkB).
		UpdatePoint(sharedPoint).
		Finalize()
}

// MetadataScalar computes the canonical metadata hash a key fragment's
// signature covers: pk_A and pk_B are always folded in once; when a mode
// flag is set, the corresponding key is folded in a second time, binding
// the signature more tightly to that key for the fragments meant to carry
// it on the wire.
func MetadataScalar(id curve.Scalar, pkA, pkB keys.PublicKey, commitment, precursor curve.Point, signDelegatingKey, signReceivingKey bool) curve.Scalar {
	d := hash.NewScalarDigest(hash.DSTKFragSignature).
		UpdateScalar(id).
		UpdatePoint(pkA.Point()).
		UpdatePoint(pkB.Point()).
		UpdatePoint(commitment).
		UpdatePoint(precursor)
	if signDelegatingKey {
		d.UpdatePoint(pkA.Point())
	}
	if signReceivingKey {
		d.UpdatePoint(pkB.Point())
	}
	return d.Finalize()
}

// SigningMessage builds the exact bytes a key fragment issuer signs: the
// metadata scalar's 32 bytes followed by the mode byte. The mode byte sits
// outside the hash so a verifier can recover it without trial-and-error
// before recomputing the metadata hash.
func SigningMessage(metadata curve.Scalar, mode byte) []byte {
	b := metadata.Bytes()
	out := make([]byte, curve.ScalarSize+1)
	copy(out, b[:])
	out[curve.ScalarSize] = mode
	return out
}

// evaluatePolynomial evaluates, via Horner's method, the polynomial whose
// coefficients are coeffs (coeffs[0] is the constant term f(0)) at x.
func evaluatePolynomial(coeffs []curve.Scalar, x curve.Scalar) curve.Scalar {
	result := coeffs[len(coeffs)-1]
	for i := len(coeffs) - 2; i >= 0; i-- {
		result = result.Mul(x).Add(coeffs[i])
	}
	return result
}

// GenerateKFrags runs the split-rekey algorithm: it draws an ephemeral
// precursor, folds skA into a degree-(t-1) polynomial blinded by the
// precursor-derived factor d, and emits N fragments whose shares
// reconstruct skA*d^-1 from any t of them.
func GenerateKFrags(skA keys.SecretKey, pkB keys.PublicKey, signer keys.Signer, t, n int, signDelegatingKey, signReceivingKey bool) ([]VerifiedKeyFrag, error) {
	if t < 1 || n < t {
		return nil, errs.ErrInvalidThreshold
	}

	pkA := skA.PublicKey()

	xA, err := curve.RandomScalar()
	if err != nil {
		return nil, err
	}
	precursor := curve.ScalarBaseMult(xA)

	xApkB, err := pkB.Point().ScalarMult(xA)
	if err != nil {
		return nil, err
	}
	d := KFragDH(precursor, pkB.Point(), xApkB)
	dInv, err := d.Invert()
	if err != nil {
		return nil, err
	}

	coeffs := make([]curve.Scalar, t)
	coeffs[0] = keys.ScalarOf(skA).Mul(dInv)
	for i := 1; i < t; i++ {
		c, err := curve.RandomScalar()
		if err != nil {
			return nil, err
		}
		coeffs[i] = c
	}

	seenIDs := make(map[[curve.ScalarSize]byte]struct{}, n)
	out := make([]VerifiedKeyFrag, 0, n)
	for i := 0; i < n; i++ {
		var id curve.Scalar
		for {
			candidate, err := curve.RandomScalar()
			if err != nil {
				return nil, err
			}
			if _, dup := seenIDs[candidate.Bytes()]; dup {
				continue
			}
			seenIDs[candidate.Bytes()] = struct{}{}
			id = candidate
			break
		}

		x := XCoordinate(id, pkA, pkB, precursor)
		rk := evaluatePolynomial(coeffs, x)

		commitment, err := curve.UGenerator().ScalarMult(rk)
		if err != nil {
			return nil, err
		}

		metadata := MetadataScalar(id, pkA, pkB, commitment, precursor, signDelegatingKey, signReceivingKey)
		mode := byte(0)
		if signDelegatingKey {
			mode |= ModeSignDelegatingKey
		}
		if signReceivingKey {
			mode |= ModeSignReceivingKey
		}

		sig, err := signer.Sign(SigningMessage(metadata, mode))
		if err != nil {
			return nil, err
		}

		kf := KeyFrag{
			id:         id,
			rk:         rk,
			precursor:  precursor,
			commitment: commitment,
			sig:        sig,
			mode:       mode,
		}
		if signDelegatingKey {
			pkACopy := pkA
			kf.pkA = &pkACopy
		}
		if signReceivingKey {
			pkBCopy := pkB
			kf.pkB = &pkBCopy
		}
		out = append(out, VerifiedKeyFrag{KeyFrag: kf})
	}

	return out, nil
}

// Verify checks sig against the canonical metadata hash recomputed from
// pkA, pkB, and kf's own remaining fields. pkA and pkB are always required:
// the metadata framing folds them in unconditionally, and the mode bits
// only decide whether they are folded in a second time and embedded on
// the wire (see ModeSignDelegatingKey/ModeSignReceivingKey).
func (kf KeyFrag) Verify(verifyingPK, pkA, pkB keys.PublicKey) (VerifiedKeyFrag, error) {
	signDelegatingKey := kf.mode&ModeSignDelegatingKey != 0
	signReceivingKey := kf.mode&ModeSignReceivingKey != 0

	metadata := MetadataScalar(kf.id, pkA, pkB, kf.commitment, kf.precursor, signDelegatingKey, signReceivingKey)
	if !kf.sig.Verify(verifyingPK, SigningMessage(metadata, kf.mode)) {
		return VerifiedKeyFrag{}, errs.ErrInvalidKeyFragSignature
	}
	return VerifiedKeyFrag{KeyFrag: kf}, nil
}

// Bytes serializes the fragment: id ‖ rk ‖ precursor ‖ commitment ‖
// signature ‖ mode, followed by pkA and/or pkB when the corresponding
// mode bit is set.
func (kf KeyFrag) Bytes() []byte {
	out := make([]byte, 0, Size+2*keys.PublicKeySize)

	idB := kf.id.Bytes()
	rkB := kf.rk.Bytes()
	precB := kf.precursor.Bytes()
	commB := kf.commitment.Bytes()
	sigB := kf.sig.Bytes()

	out = append(out, idB[:]...)
	out = append(out, rkB[:]...)
	out = append(out, precB[:]...)
	out = append(out, commB[:]...)
	out = append(out, sigB[:]...)
	out = append(out, kf.mode)

	if kf.mode&ModeSignDelegatingKey != 0 && kf.pkA != nil {
		b := kf.pkA.Bytes()
		out = append(out, b[:]...)
	}
	if kf.mode&ModeSignReceivingKey != 0 && kf.pkB != nil {
		b := kf.pkB.Bytes()
		out = append(out, b[:]...)
	}
	return out
}

// FromBytes decodes a KeyFrag. When the mode byte indicates an optional
// public key is embedded, that key's bytes must be present; their absence
// is reported as ErrMissingDelegatingKey / ErrMissingReceivingKey rather
// than a generic truncation error, since the mode byte itself says what
// should follow.
func FromBytes(b []byte) (KeyFrag, error) {
	if len(b) < Size {
		return KeyFrag{}, &errs.SerializationError{Kind: errs.Truncated, Type: "KeyFrag"}
	}
	off := 0
	readScalar := func(typ string) (curve.Scalar, error) {
		s, err := curve.ScalarFromBytes(b[off : off+curve.ScalarSize])
		off += curve.ScalarSize
		if err != nil {
			return curve.Scalar{}, &errs.SerializationError{Kind: errs.InvalidScalar, Type: typ}
		}
		return s, nil
	}
	readPoint := func(typ string) (curve.Point, error) {
		p, err := curve.PointFromBytes(b[off : off+curve.PointSize])
		off += curve.PointSize
		if err != nil {
			return curve.Point{}, &errs.SerializationError{Kind: errs.InvalidPoint, Type: typ}
		}
		return p, nil
	}

	id, err := readScalar("KeyFrag.id")
	if err != nil {
		return KeyFrag{}, err
	}
	rk, err := readScalar("KeyFrag.rk")
	if err != nil {
		return KeyFrag{}, err
	}
	precursor, err := readPoint("KeyFrag.precursor")
	if err != nil {
		return KeyFrag{}, err
	}
	commitment, err := readPoint("KeyFrag.commitment")
	if err != nil {
		return KeyFrag{}, err
	}
	sig, err := keys.SignatureFromBytes(b[off : off+keys.SignatureSize])
	if err != nil {
		return KeyFrag{}, err
	}
	off += keys.SignatureSize
	mode := b[off]
	off++

	kf := KeyFrag{id: id, rk: rk, precursor: precursor, commitment: commitment, sig: sig, mode: mode}

	if mode&ModeSignDelegatingKey != 0 {
		if len(b) < off+keys.PublicKeySize {
			return KeyFrag{}, errs.ErrMissingDelegatingKey
		}
		pkA, err := keys.PublicKeyFromBytes(b[off : off+keys.PublicKeySize])
		if err != nil {
			return KeyFrag{}, err
		}
		off += keys.PublicKeySize
		kf.pkA = &pkA
	}
	if mode&ModeSignReceivingKey != 0 {
		if len(b) < off+keys.PublicKeySize {
			return KeyFrag{}, errs.ErrMissingReceivingKey
		}
		pkB, err := keys.PublicKeyFromBytes(b[off : off+keys.PublicKeySize])
		if err != nil {
			return KeyFrag{}, err
		}
		off += keys.PublicKeySize
		kf.pkB = &pkB
	}

	if off != len(b) {
		return KeyFrag{}, &errs.SerializationError{Kind: errs.ExtraBytes, Type: "KeyFrag"}
	}
	return kf, nil
}
