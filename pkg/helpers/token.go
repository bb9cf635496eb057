package helpers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// GenerateVerificationToken returns a random token in plaintext and its
// sha256 hex digest. The plaintext goes into the emailed link; only the
// digest is persisted.
func GenerateVerificationToken() (plain string, hash string, err error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	plain = hex.EncodeToString(b)
	return plain, HashToken(plain), nil
}

// HashToken returns the sha256 hex digest of a plaintext token.
func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
