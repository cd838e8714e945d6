// Package reconstruct implements threshold decapsulation: combining t or
// more capsule fragments from distinct key fragments, via Lagrange
// interpolation at x=0, into the symmetric key a capsule was originally
// encapsulated under, without any single fragment issuer or the proxy ever
// learning that key.
package reconstruct

import (
	"github.com/eth2030/umbral/capsule"
	"github.com/eth2030/umbral/cfrag"
	"github.com/eth2030/umbral/curve"
	"github.com/eth2030/umbral/errs"
	"github.com/eth2030/umbral/hash"
	"github.com/eth2030/umbral/keys"
	"github.com/eth2030/umbral/kfrag"
)

// DecapsulateReencrypted recovers the symmetric key cap was encapsulated
// under, using t or more capsule fragments produced from key fragments
// delegated from pkA toward skB. Every fragment must share the same
// precursor (they came from the same GenerateKFrags batch) and carry a
// distinct id; violating either is rejected rather than silently
// tolerated, since either condition would let the combined result recover
// the wrong key.
func DecapsulateReencrypted(skB keys.SecretKey, pkA keys.PublicKey, cap capsule.Capsule, vcfrags []cfrag.VerifiedCapsuleFrag) ([]byte, error) {
	if len(vcfrags) == 0 {
		return nil, &errs.NotEnoughCfragsError{Need: 1, Got: 0}
	}

	precursor := vcfrags[0].Unverify().Precursor()
	ids := make(map[[curve.ScalarSize]byte]struct{}, len(vcfrags))
	xs := make([]curve.Scalar, len(vcfrags))
	pkB := skB.PublicKey()

	for i, vcf := range vcfrags {
		cf := vcf.Unverify()
		if !cf.Precursor().Equal(precursor) {
			return nil, errs.ErrMismatchedCfrags
		}
		idBytes := cf.ID().Bytes()
		if _, dup := ids[idBytes]; dup {
			return nil, errs.ErrRepeatedCfragID
		}
		ids[idBytes] = struct{}{}
		xs[i] = kfrag.XCoordinate(cf.ID(), pkA, pkB, precursor)
	}

	xApkB, err := precursor.ScalarMult(keys.ScalarOf(skB))
	if err != nil {
		return nil, err
	}
	d := kfrag.KFragDH(precursor, pkB.Point(), xApkB)

	lambdas, err := lagrangeCoefficientsAtZero(xs)
	if err != nil {
		return nil, err
	}

	var e, v curve.Point
	for i, vcf := range vcfrags {
		cf := vcf.Unverify()
		e1Term, err := cf.E1.ScalarMult(lambdas[i])
		if err != nil {
			return nil, err
		}
		v1Term, err := cf.V1.ScalarMult(lambdas[i])
		if err != nil {
			return nil, err
		}
		if i == 0 {
			e, v = e1Term, v1Term
			continue
		}
		if e, err = e.Add(e1Term); err != nil {
			return nil, err
		}
		if v, err = v.Add(v1Term); err != nil {
			return nil, err
		}
	}

	h := cap.ChallengeScalar()
	dInv, err := d.Invert()
	if err != nil {
		return nil, err
	}
	lhsScalar := cap.Witness().Mul(dInv)
	lhs, err := pkA.Point().ScalarMult(lhsScalar)
	if err != nil {
		return nil, err
	}
	hTerm, err := e.ScalarMult(h)
	if err != nil {
		return nil, err
	}
	rhs, err := v.Add(hTerm)
	if err != nil {
		return nil, err
	}
	if !lhs.Equal(rhs) {
		return nil, errs.ErrInvalidCapsule
	}

	sum, err := e.Add(v)
	if err != nil {
		return nil, err
	}
	shared, err := sum.ScalarMult(d)
	if err != nil {
		return nil, err
	}
	sharedBytes := shared.Bytes()
	return hash.KDF(sharedBytes[:], capsule.SharedKeySize, nil, []byte(hash.DSTPointShared))
}

// lagrangeCoefficientsAtZero computes, for each x in xs, the Lagrange basis
// coefficient lambda_i = prod_{j!=i} (-x_j)/(x_i - x_j), the weight x_i's
// share carries when interpolating the polynomial's value at 0.
func lagrangeCoefficientsAtZero(xs []curve.Scalar) ([]curve.Scalar, error) {
	out := make([]curve.Scalar, len(xs))
	for i, xi := range xs {
		num := curve.ScalarFromUint32(1)
		den := curve.ScalarFromUint32(1)
		for j, xj := range xs {
			if i == j {
				continue
			}
			num = num.Mul(xj.Negate())
			den = den.Mul(xi.Sub(xj))
		}
		denInv, err := den.Invert()
		if err != nil {
			return nil, err
		}
		out[i] = num.Mul(denInv)
	}
	return out, nil
}
