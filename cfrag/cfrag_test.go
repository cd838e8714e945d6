package cfrag

import (
	"testing"

	"github.com/eth2030/umbral/capsule"
	"github.com/eth2030/umbral/keys"
	"github.com/eth2030/umbral/kfrag"
)

func setup(t *testing.T) (keys.SecretKey, keys.SecretKey, keys.Signer, []kfrag.VerifiedKeyFrag) {
	t.Helper()
	skA, err := keys.RandomSecretKey()
	if err != nil {
		t.Fatalf("RandomSecretKey: %v", err)
	}
	skB, err := keys.RandomSecretKey()
	if err != nil {
		t.Fatalf("RandomSecretKey: %v", err)
	}
	skS, err := keys.RandomSecretKey()
	if err != nil {
		t.Fatalf("RandomSecretKey: %v", err)
	}
	signer := keys.NewSigner(skS)
	kfrags, err := kfrag.GenerateKFrags(skA, skB.PublicKey(), signer, 2, 3, true, true)
	if err != nil {
		t.Fatalf("GenerateKFrags: %v", err)
	}
	return skA, skB, signer, kfrags
}

func TestReencryptAndVerify(t *testing.T) {
	skA, _, signer, kfrags := setup(t)
	_, cap, err := capsule.Encapsulate(skA.PublicKey())
	if err != nil {
		t.Fatalf("Encapsulate: %v", err)
	}

	vcf, err := Reencrypt(cap, kfrags[0])
	if err != nil {
		t.Fatalf("Reencrypt: %v", err)
	}

	kf := kfrags[0].Unverify()
	if _, err := vcf.Unverify().Verify(cap, signer.PublicKey(), skA.PublicKey(), *kf.PKB(), kf.Commitment()); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestReencryptRejectsInvalidCapsule(t *testing.T) {
	skA, _, _, kfrags := setup(t)
	_, cap, err := capsule.Encapsulate(skA.PublicKey())
	if err != nil {
		t.Fatalf("Encapsulate: %v", err)
	}
	b := cap.Bytes()
	b[len(b)-1] ^= 0xFF // tamper with the capsule's correctness witness
	tampered, err := capsule.FromBytes(b[:])
	if err != nil {
		return
	}
	if _, err := Reencrypt(tampered, kfrags[0]); err == nil {
		t.Fatal("expected Reencrypt to reject a capsule that fails Verify")
	}
}

func TestCapsuleFragRoundTrip(t *testing.T) {
	skA, _, _, kfrags := setup(t)
	_, cap, err := capsule.Encapsulate(skA.PublicKey())
	if err != nil {
		t.Fatalf("Encapsulate: %v", err)
	}
	vcf, err := Reencrypt(cap, kfrags[0])
	if err != nil {
		t.Fatalf("Reencrypt: %v", err)
	}
	b := vcf.Unverify().Bytes()
	if len(b) != Size {
		t.Fatalf("got %d bytes, want %d", len(b), Size)
	}
	decoded, err := FromBytes(b[:])
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if decoded.Bytes() != b {
		t.Fatal("round trip changed capsule fragment bytes")
	}
}

func TestVerifyDetectsTamperedCommitmentMismatch(t *testing.T) {
	// S4: flipping a kfrag's rk leaves kfrag.Verify passing (rk unsigned)
	// but the resulting cfrag's proof no longer matches the original
	// commitment, so cfrag.Verify must fail.
	skA, _, signer, kfrags := setup(t)
	_, cap, err := capsule.Encapsulate(skA.PublicKey())
	if err != nil {
		t.Fatalf("Encapsulate: %v", err)
	}

	kf := kfrags[0].Unverify()
	b := kf.Bytes()
	rkOffset := 32 // id occupies the first 32 bytes; rk follows
	b[rkOffset] ^= 0xFF
	tamperedKF, err := kfrag.FromBytes(b)
	if err != nil {
		return
	}
	verifiedTampered, err := tamperedKF.Verify(signer.PublicKey(), *kf.PKA(), *kf.PKB())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	vcf, err := Reencrypt(cap, verifiedTampered)
	if err != nil {
		t.Fatalf("Reencrypt: %v", err)
	}
	// Verify against the ORIGINAL commitment (what the delegatee actually
	// knows), which no longer matches the tampered rk used to build vcf.
	if _, err := vcf.Unverify().Verify(cap, signer.PublicKey(), skA.PublicKey(), *kf.PKB(), kf.Commitment()); err == nil {
		t.Fatal("expected cfrag Verify to fail after rk was tampered")
	}
}

func TestCapsuleFragFromBytesRejectsWrongLength(t *testing.T) {
	if _, err := FromBytes(make([]byte, Size-1)); err == nil {
		t.Fatal("expected error for truncated capsule fragment")
	}
	if _, err := FromBytes(make([]byte, Size+1)); err == nil {
		t.Fatal("expected error for overlong capsule fragment")
	}
}
