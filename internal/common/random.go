// Package common also provides helpers for generating random secrets and
// wiping sensitive material from memory.
package common

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strings"
)

// GenerateRandByteArray returns size bytes of cryptographically random data.
// It panics if the system source of randomness is unavailable.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// MakeRandHexString generates a random hexadecimal string of the given size.
// The size parameter specifies the number of random bytes to generate, so the
// final string length will be twice the size.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// MakeRecoveryKey generates a fixed-length numeric one-time key drawn from
// crypto/rand. Leading zeros are allowed, so the keyspace is the full
// 10^RecoveryKeyLength.
func MakeRecoveryKey() (string, error) {
	var sb strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < RecoveryKeyLength; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		sb.WriteString(d.String())
	}
	return sb.String(), nil
}

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// Useful for removing credentials from memory after use. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
