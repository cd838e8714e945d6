package kfrag

import (
	"testing"

	"github.com/eth2030/umbral/curve"
	"github.com/eth2030/umbral/keys"
)

func setup(t *testing.T) (keys.SecretKey, keys.PublicKey, keys.Signer) {
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
	return skA, skB.PublicKey(), keys.NewSigner(skS)
}

func TestGenerateAndVerifyKFrags(t *testing.T) {
	skA, pkB, signer := setup(t)
	kfrags, err := GenerateKFrags(skA, pkB, signer, 2, 3, true, true)
	if err != nil {
		t.Fatalf("GenerateKFrags: %v", err)
	}
	if len(kfrags) != 3 {
		t.Fatalf("got %d kfrags, want 3", len(kfrags))
	}
	for _, vkf := range kfrags {
		kf := vkf.Unverify()
		if _, err := kf.Verify(signer.PublicKey(), skA.PublicKey(), pkB); err != nil {
			t.Fatalf("Verify: %v", err)
		}
	}
}

func TestKFragWireSizeWithoutOptionalKeys(t *testing.T) {
	skA, pkB, signer := setup(t)
	kfrags, err := GenerateKFrags(skA, pkB, signer, 2, 3, false, false)
	if err != nil {
		t.Fatalf("GenerateKFrags: %v", err)
	}
	b := kfrags[0].Unverify().Bytes()
	if len(b) != Size {
		t.Fatalf("got %d bytes, want %d", len(b), Size)
	}
}

func TestKFragWireSizeWithBothOptionalKeys(t *testing.T) {
	skA, pkB, signer := setup(t)
	kfrags, err := GenerateKFrags(skA, pkB, signer, 2, 3, true, true)
	if err != nil {
		t.Fatalf("GenerateKFrags: %v", err)
	}
	b := kfrags[0].Unverify().Bytes()
	want := Size + 2*keys.PublicKeySize
	if len(b) != want {
		t.Fatalf("got %d bytes, want %d", len(b), want)
	}
}

func TestKFragRoundTrip(t *testing.T) {
	skA, pkB, signer := setup(t)
	kfrags, err := GenerateKFrags(skA, pkB, signer, 2, 3, true, false)
	if err != nil {
		t.Fatalf("GenerateKFrags: %v", err)
	}
	original := kfrags[0].Unverify()
	b := original.Bytes()
	decoded, err := FromBytes(b)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if _, err := decoded.Verify(signer.PublicKey(), skA.PublicKey(), pkB); err != nil {
		t.Fatalf("decoded fragment failed to verify: %v", err)
	}
}

func TestKFragVerifyRejectsWrongSigner(t *testing.T) {
	skA, pkB, signer := setup(t)
	other, _ := keys.RandomSecretKey()
	kfrags, err := GenerateKFrags(skA, pkB, signer, 2, 3, false, false)
	if err != nil {
		t.Fatalf("GenerateKFrags: %v", err)
	}
	kf := kfrags[0].Unverify()
	if _, err := kf.Verify(other.PublicKey(), skA.PublicKey(), pkB); err == nil {
		t.Fatal("expected verification failure under the wrong signer key")
	}
}

func TestKFragSignedMetadataTamperDetection(t *testing.T) {
	// S4 (part 1): flipping any signed byte fails Verify immediately.
	skA, pkB, signer := setup(t)
	kfrags, err := GenerateKFrags(skA, pkB, signer, 2, 3, false, false)
	if err != nil {
		t.Fatalf("GenerateKFrags: %v", err)
	}
	kf := kfrags[0].Unverify()
	b := kf.Bytes()
	// The id field is folded into the signed metadata; flipping it must
	// invalidate the signature.
	b[0] ^= 0xFF
	tampered, err := FromBytes(b)
	if err != nil {
		return // an invalid scalar also demonstrates tamper detection
	}
	if _, err := tampered.Verify(signer.PublicKey(), skA.PublicKey(), pkB); err == nil {
		t.Fatal("tampered kfrag metadata field passed Verify")
	}
}

func TestKFragUnsignedRKTamperDoesNotBreakSignature(t *testing.T) {
	// S4 (part 2): rk is not itself part of the signed metadata, so
	// flipping it leaves kfrag.Verify passing; only the downstream
	// commitment check (exercised in package cfrag) catches it.
	skA, pkB, signer := setup(t)
	kfrags, err := GenerateKFrags(skA, pkB, signer, 2, 3, false, false)
	if err != nil {
		t.Fatalf("GenerateKFrags: %v", err)
	}
	kf := kfrags[0].Unverify()
	b := kf.Bytes()
	rkOffset := curve.ScalarSize
	b[rkOffset] ^= 0xFF
	tampered, err := FromBytes(b)
	if err != nil {
		return
	}
	if _, err := tampered.Verify(signer.PublicKey(), skA.PublicKey(), pkB); err != nil {
		t.Fatalf("expected Verify to still pass since rk is unsigned, got: %v", err)
	}
}

func TestGenerateKFragsRejectsInvalidThreshold(t *testing.T) {
	skA, pkB, signer := setup(t)
	if _, err := GenerateKFrags(skA, pkB, signer, 0, 3, false, false); err == nil {
		t.Fatal("expected error for t=0")
	}
	if _, err := GenerateKFrags(skA, pkB, signer, 4, 3, false, false); err == nil {
		t.Fatal("expected error for t>n")
	}
}

func TestKFragFromBytesRejectsMissingEmbeddedKey(t *testing.T) {
	skA, pkB, signer := setup(t)
	kfrags, err := GenerateKFrags(skA, pkB, signer, 2, 3, true, false)
	if err != nil {
		t.Fatalf("GenerateKFrags: %v", err)
	}
	full := kfrags[0].Unverify().Bytes()
	// Truncate to drop the embedded pkA the mode byte promises.
	truncated := full[:Size]
	if _, err := FromBytes(truncated); err == nil {
		t.Fatal("expected an error decoding a kfrag missing its promised embedded key")
	}
}
