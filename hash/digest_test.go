package hash

import (
	"testing"

	"github.com/eth2030/umbral/curve"
)

func TestScalarDigestDeterministic(t *testing.T) {
	p := curve.BasePoint()
	s1 := NewScalarDigest(DSTCapsule).UpdatePoint(p).UpdateBytes([]byte("hello")).Finalize()
	s2 := NewScalarDigest(DSTCapsule).UpdatePoint(p).UpdateBytes([]byte("hello")).Finalize()
	if !s1.Equal(s2) {
		t.Fatal("same transcript produced different scalars")
	}
}

func TestScalarDigestDomainSeparation(t *testing.T) {
	p := curve.BasePoint()
	s1 := NewScalarDigest(DSTCapsule).UpdatePoint(p).Finalize()
	s2 := NewScalarDigest(DSTPointShared).UpdatePoint(p).Finalize()
	if s1.Equal(s2) {
		t.Fatal("distinct DSTs produced the same scalar")
	}
}

func TestScalarDigestOrderSensitive(t *testing.T) {
	a := []byte("a")
	b := []byte("b")
	s1 := NewScalarDigest(DSTPointShared).UpdateBytes(a).UpdateBytes(b).Finalize()
	s2 := NewScalarDigest(DSTPointShared).UpdateBytes(b).UpdateBytes(a).Finalize()
	if s1.Equal(s2) {
		t.Fatal("swapping update order produced the same scalar")
	}
}

func TestScalarDigestNonZero(t *testing.T) {
	s := NewScalarDigest(DSTPointShared).Finalize()
	if s.IsZero() {
		t.Fatal("Finalize produced the zero scalar")
	}
}
