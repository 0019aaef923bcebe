package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// NewLoginCode generates a 6-digit one-time code.
func NewLoginCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate login code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// NewLoginToken generates an opaque magic-link token.
func NewLoginToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate login token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashCode hashes a login code for storage.
func HashCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CompareCode reports whether code matches the stored hash.
func CompareCode(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
