// Package pre is the top-level proxy re-encryption API: encrypting a
// message under a delegator's public key, and decrypting it either as the
// delegator (decapsulate_original) or as a delegatee holding t or more
// re-encrypted capsule fragments (decapsulate_reencrypted). Both paths
// derive a 32-byte key via the capsule KEM and seal/open the plaintext
// with ChaCha20-Poly1305, the capsule's canonical bytes bound in as
// associated data so a ciphertext can never be replayed under a capsule it
// was not sealed against.
package pre

import (
	"crypto/rand"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/eth2030/umbral/capsule"
	"github.com/eth2030/umbral/cfrag"
	"github.com/eth2030/umbral/errs"
	"github.com/eth2030/umbral/keys"
	"github.com/eth2030/umbral/log"
	"github.com/eth2030/umbral/reconstruct"
)

var logger = log.Default().Module("pre")

// Encrypt seals plaintext under pk's capsule KEM and returns the capsule
// alongside nonce‖sealed ciphertext.
func Encrypt(pk keys.PublicKey, plaintext []byte) (capsule.Capsule, []byte, error) {
	key, cap, err := capsule.Encapsulate(pk)
	if err != nil {
		return capsule.Capsule{}, nil, err
	}

	ct, err := seal(key, cap, plaintext)
	if err != nil {
		return capsule.Capsule{}, nil, err
	}
	logger.Info("encrypted message", "plaintext_len", len(plaintext))
	return cap, ct, nil
}

// DecryptOriginal opens ct using the symmetric key the holder of sk, the
// capsule's original delegator, would derive.
func DecryptOriginal(sk keys.SecretKey, cap capsule.Capsule, ct []byte) ([]byte, error) {
	key, err := capsule.DecapsulateOriginal(sk, cap)
	if err != nil {
		return nil, err
	}
	pt, err := open(key, cap, ct)
	if err != nil {
		logger.Warn("decrypt_original failed", "error", err)
		return nil, err
	}
	return pt, nil
}

// DecryptReencrypted opens ct using the symmetric key a delegatee skB
// reconstructs from t or more capsule fragments produced by reencrypting
// cap under kfrags delegated from pkA.
func DecryptReencrypted(skB keys.SecretKey, pkA keys.PublicKey, cap capsule.Capsule, vcfrags []cfrag.VerifiedCapsuleFrag, ct []byte) ([]byte, error) {
	key, err := reconstruct.DecapsulateReencrypted(skB, pkA, cap, vcfrags)
	if err != nil {
		return nil, err
	}
	pt, err := open(key, cap, ct)
	if err != nil {
		logger.Warn("decrypt_reencrypted failed", "error", err)
		return nil, err
	}
	logger.Info("decrypted reencrypted message", "cfrag_count", len(vcfrags))
	return pt, nil
}

// seal AEAD-encrypts plaintext under key, binding cap's canonical bytes as
// associated data, and prepends a fresh random 12-byte nonce to the
// sealed output.
func seal(key []byte, cap capsule.Capsule, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	capBytes := cap.Bytes()
	sealed := aead.Seal(nil, nonce, plaintext, capBytes[:])
	return append(nonce, sealed...), nil
}

// open splits ct into its leading nonce and AEAD-opens the remainder under
// key, with cap's canonical bytes as associated data.
func open(key []byte, cap capsule.Capsule, ct []byte) ([]byte, error) {
	if len(ct) < chacha20poly1305.NonceSize {
		return nil, errs.ErrDecryptionError
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce, sealed := ct[:chacha20poly1305.NonceSize], ct[chacha20poly1305.NonceSize:]
	capBytes := cap.Bytes()
	pt, err := aead.Open(nil, nonce, sealed, capBytes[:])
	if err != nil {
		return nil, errs.ErrDecryptionError
	}
	return pt, nil
}
