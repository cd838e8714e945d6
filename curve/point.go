package curve

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/eth2030/umbral/errs"
)

// PointSize is the fixed wire size of a compressed point: 33 bytes.
const PointSize = 33

// ErrPointAtInfinity is returned by any operation whose result would be the
// identity element, which this module's protocol never legitimately
// produces.
var ErrPointAtInfinity = errPointAtInfinity{}

type errPointAtInfinity struct{}

func (errPointAtInfinity) Error() string { return "umbral: point at infinity" }

// Point is an element of the secp256k1 subgroup of order n.
type Point struct {
	pub secp256k1.PublicKey
}

// BasePoint returns the secp256k1 generator g.
func BasePoint() Point {
	return ScalarBaseMult(ScalarFromUint32(1))
}

// ScalarBaseMult returns s*g.
func ScalarBaseMult(s Scalar) Point {
	var result secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&s.s, &result)
	p, err := publicKeyFromJacobian(&result)
	if err != nil {
		// s*g is the identity only when s == 0 mod n, which RandomScalar and
		// every caller in this module already excludes; a panic here
		// signals a broken invariant upstream rather than a recoverable
		// runtime condition.
		panic(err)
	}
	return Point{pub: *p}
}

// ScalarMult returns s*p.
func (p Point) ScalarMult(s Scalar) (Point, error) {
	var pj, result secp256k1.JacobianPoint
	p.pub.AsJacobian(&pj)
	secp256k1.ScalarMultNonConst(&s.s, &pj, &result)
	res, err := publicKeyFromJacobian(&result)
	if err != nil {
		return Point{}, err
	}
	return Point{pub: *res}, nil
}

// Add returns p + o.
func (p Point) Add(o Point) (Point, error) {
	var pj, oj, result secp256k1.JacobianPoint
	p.pub.AsJacobian(&pj)
	o.pub.AsJacobian(&oj)
	secp256k1.AddNonConst(&pj, &oj, &result)
	res, err := publicKeyFromJacobian(&result)
	if err != nil {
		return Point{}, err
	}
	return Point{pub: *res}, nil
}

// PointFromBytes decodes a 33-byte SEC1-compressed point.
func PointFromBytes(b []byte) (Point, error) {
	if len(b) < PointSize {
		return Point{}, &errs.SerializationError{Kind: errs.Truncated, Type: "Point"}
	}
	if len(b) > PointSize {
		return Point{}, &errs.SerializationError{Kind: errs.ExtraBytes, Type: "Point"}
	}
	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return Point{}, &errs.SerializationError{Kind: errs.InvalidPoint, Type: "Point"}
	}
	return Point{pub: *pub}, nil
}

// Bytes returns the 33-byte SEC1-compressed encoding of p.
func (p Point) Bytes() [PointSize]byte {
	var out [PointSize]byte
	copy(out[:], p.pub.SerializeCompressed())
	return out
}

// Equal reports whether p == o. Points are public by construction in this
// protocol, so this need not be constant-time.
func (p Point) Equal(o Point) bool {
	return p.pub.IsEqual(&o.pub)
}

// XCoordScalarModN returns the point's affine x-coordinate reduced modulo
// the group order n, as ECDSA's r = x(kG) mod n requires.
func (p Point) XCoordScalarModN() Scalar {
	uncompressed := p.pub.SerializeUncompressed()
	return ScalarFromReducedBytes(uncompressed[1:33])
}

// publicKeyFromJacobian converts a Jacobian point to affine form and wraps
// it as a secp256k1.PublicKey. The identity is represented in affine
// coordinates as (0, 0), which is never itself a point on y^2 = x^3 + 7.
func publicKeyFromJacobian(j *secp256k1.JacobianPoint) (*secp256k1.PublicKey, error) {
	j.ToAffine()
	if j.X.IsZero() && j.Y.IsZero() {
		return nil, ErrPointAtInfinity
	}
	return secp256k1.NewPublicKey(&j.X, &j.Y), nil
}
