package curve

import (
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/blake2b"
)

// secp256k1FieldPrime is p from SEC 2, used only for the one-time NUMS
// generator derivation below (see the package doc comment for why this
// step, alone, does not go through the decred backend).
var secp256k1FieldPrime, _ = new(big.Int).SetString(
	"fffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2f", 16)

// numsGeneratorU is the second independent generator U, with unknown
// discrete log relative to g, used for key fragment commitments and the
// capsule fragment NIZK.
var numsGeneratorU Point

func init() {
	numsGeneratorU = hashToPoint("UMBRAL_NUMS_GENERATOR_U")
}

// UGenerator returns the fixed NUMS generator U.
func UGenerator() Point {
	return numsGeneratorU
}

// hashToPoint derives a point on secp256k1 deterministically from dst via
// try-and-increment: hash an incrementing counter, treat the hash as an
// x-coordinate candidate reduced mod p, and accept it if x^3+7 is a
// quadratic residue mod p (using the p ≡ 3 (mod 4) square-root shortcut:
// sqrt(a) = a^((p+1)/4) mod p), the same shortcut a hand-rolled secp256k1
// computeY helper would use for this curve; it is only ever run here, at
// init time, so math/big is the right tool rather than the constant-time
// backend.
func hashToPoint(dst string) Point {
	p := secp256k1FieldPrime
	b7 := big.NewInt(7)
	exp := new(big.Int).Rsh(new(big.Int).Add(p, big.NewInt(1)), 2) // (p+1)/4

	for counter := uint32(0); ; counter++ {
		h, _ := blake2b.New256(nil)
		h.Write([]byte{byte(len(dst))})
		h.Write([]byte(dst))
		h.Write([]byte{byte(counter >> 24), byte(counter >> 16), byte(counter >> 8), byte(counter)})
		digest := h.Sum(nil)

		x := new(big.Int).Mod(new(big.Int).SetBytes(digest), p)

		x3 := new(big.Int).Exp(x, big.NewInt(3), p)
		rhs := new(big.Int).Add(x3, b7)
		rhs.Mod(rhs, p)

		y := new(big.Int).Exp(rhs, exp, p)
		check := new(big.Int).Exp(y, big.NewInt(2), p)
		if check.Cmp(rhs) != 0 {
			continue // rhs is not a quadratic residue; try the next counter
		}

		// Pick the y whose parity matches the hash's low bit, so the point
		// is a deterministic function of dst alone.
		wantOdd := digest[len(digest)-1]&1 == 1
		if (y.Bit(0) == 1) != wantOdd {
			y.Sub(p, y)
		}

		xBytes := make([]byte, 32)
		x.FillBytes(xBytes)
		yBytes := make([]byte, 32)
		y.FillBytes(yBytes)

		var fx, fy secp256k1.FieldVal
		if overflow := fx.SetByteSlice(xBytes); overflow {
			continue
		}
		if overflow := fy.SetByteSlice(yBytes); overflow {
			continue
		}
		pub := secp256k1.NewPublicKey(&fx, &fy)
		return Point{pub: *pub}
	}
}
