// Package cryptox provides the symmetric content box used for vault entries
// and the credential hashing used by the lockout machine.
//
// Decryption has a deterministic failure mode: corrupt ciphertext, a wrong
// nonce or a foreign key all yield common.ErrorUndecryptable, never a panic
// and never attacker-controlled plaintext.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"

	"github.com/lifesignal/lifesignal/internal/common"
)

const nonceSize = 12

// Seal encrypts plaintext using AES-GCM.
//
// The key must be a valid AES key length (16, 24, or 32 bytes). A new random
// 12-byte nonce is generated per call; ciphertext and nonce are returned
// separately so they can be stored in separate columns.
func Seal(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	return gcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Open decrypts ciphertext produced by Seal. Any authentication or format
// failure is reported as common.ErrorUndecryptable.
func Open(ciphertext, nonce, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, common.ErrorUndecryptable
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, common.ErrorUndecryptable
	}

	if len(nonce) != gcm.NonceSize() {
		return nil, common.ErrorUndecryptable
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, common.ErrorUndecryptable
	}

	return plaintext, nil
}

// HashCredential derives a fixed-size hash from a credential and salt using
// Argon2id. The same parameters must be used for enrollment and verification.
func HashCredential(credential, salt []byte) []byte {
	return argon2.IDKey(credential, salt, 1, 64*1024, 4, 32)
}

// CheckCredential reports whether candidate matches the stored hash for the
// given salt. The comparison is constant-time.
func CheckCredential(candidate, salt, hash []byte) bool {
	return subtle.ConstantTimeCompare(HashCredential(candidate, salt), hash) == 1
}
