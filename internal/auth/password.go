package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/crypto/pbkdf2"
)

const passwordSpecials = "!@#$%^&*()_+-=[]{}|;:,.<>?"

// Hasher derives and verifies salted password digests using PBKDF2-SHA256.
type Hasher struct {
	iterations int
	keyLen     int
	saltLen    int
}

// NewHasher returns a Hasher with production parameters.
func NewHasher() *Hasher {
	return &Hasher{iterations: 100_000, keyLen: 32, saltLen: 32}
}

// Hash derives a digest from secret under a fresh random salt. Both values
// are hex encoded; the caller stores them as a "digest:salt" composite.
func (h *Hasher) Hash(secret string) (digest, salt string, err error) {
	raw := make([]byte, h.saltLen)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	salt = hex.EncodeToString(raw)
	key := pbkdf2.Key([]byte(secret), []byte(salt), h.iterations, h.keyLen, sha256.New)
	return hex.EncodeToString(key), salt, nil
}

// Verify re-derives the digest under the stored salt and compares in
// constant time.
func (h *Hasher) Verify(secret, digest, salt string) bool {
	expected, err := hex.DecodeString(digest)
	if err != nil {
		return false
	}
	key := pbkdf2.Key([]byte(secret), []byte(salt), h.iterations, h.keyLen, sha256.New)
	return subtle.ConstantTimeCompare(key, expected) == 1
}

// IsStrong applies the password policy: at least 8 characters with an upper,
// a lower, a digit and one special character.
func (h *Hasher) IsStrong(secret string) bool {
	if len(secret) < 8 {
		return false
	}
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range secret {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSpecial
}

// GenerateResetToken returns an opaque URL-safe token for password reset
// links. Delivery is out of scope here; callers hand the token to whatever
// channel they operate.
func GenerateResetToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
