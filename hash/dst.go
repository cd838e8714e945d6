package hash

// Domain separation tags. Every ScalarDigest and KDF call in this module is
// bound to one of these so that a value computed for one purpose can never be
// confused with a value computed for another, even when the underlying
// bytes being hashed happen to collide.
//
// Two names are admitted for the tag that binds a key fragment's signed
// metadata: "KFRAG_SIGNATURE" and "KFRAG_VALIDITY". This module signs with
// DSTKFragSignature; DSTKFragValidity is declared only so the historical
// alternative name is documented, and is never passed to NewScalarDigest.
const (
	DSTSKFKey            = "SKF_KEY"
	DSTSKFFactory        = "SKF_FACTORY"
	DSTSKFSecretKey      = "SKF_SECRET_KEY"
	DSTCapsule           = "CAPSULE"
	DSTXCoordinate       = "X_COORDINATE"
	DSTKFragSignature    = "KFRAG_SIGNATURE"
	DSTKFragValidity     = "KFRAG_VALIDITY" // documented alternative, unused
	DSTCFragVerification = "CFRAG_VERIFICATION"
	DSTPointShared       = "POINT_SHARED"

	// DSTNUMSGeneratorU is the tag package curve hashes once, at init, to
	// derive the fixed second generator U (see curve.UGenerator). curve
	// writes the same string literal itself and does not reference this
	// constant; it is listed here so every domain separation tag in the
	// module appears in one place.
	DSTNUMSGeneratorU = "UMBRAL_NUMS_GENERATOR_U"
)
