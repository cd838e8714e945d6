package hash

import (
	stdhash "hash"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
)

// KDF derives length bytes of key material from input using HKDF built on
// BLAKE2b-256, with salt and info bound in the standard HKDF positions.
// The capsule KEM, the re-encryption shared-secret derivation, and the
// secret key factory all call through here rather than using a shared
// secret's or seed's bytes directly as key material.
func KDF(input []byte, length int, salt, info []byte) ([]byte, error) {
	newBlake2b256 := func() stdhash.Hash {
		h, err := blake2b.New256(nil)
		if err != nil {
			// blake2b.New256 only fails for an oversized key, and this
			// module never supplies one.
			panic(err)
		}
		return h
	}
	r := hkdf.New(newBlake2b256, input, salt, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}
