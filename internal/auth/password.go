package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters for stored credentials. Changing any of these invalidates
// every stored hash, so they are fixed.
const (
	saltLen    = 16
	keyLen     = 32
	iterations = 10000
)

// HashPassword derives a stored credential of the form
// "base64(salt):base64(key)" using PBKDF2-SHA256.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, iterations, keyLen, sha256.New)
	return base64.StdEncoding.EncodeToString(salt) + ":" + base64.StdEncoding.EncodeToString(key), nil
}

// VerifyPassword re-derives the key from the stored salt and compares it to
// the stored key in constant time. Returns false for empty or malformed
// stored hashes.
func VerifyPassword(password, storedHash string) bool {
	if storedHash == "" {
		return false
	}

	parts := strings.Split(storedHash, ":")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	stored, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computed := pbkdf2.Key([]byte(password), salt, iterations, keyLen, sha256.New)
	return subtle.ConstantTimeCompare(stored, computed) == 1
}
