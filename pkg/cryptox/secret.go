package cryptox

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch is returned when a secret does not match its stored hash.
var ErrMismatch = errors.New("cryptox: secret does not match")

// bcryptCost is a balance between login latency and brute-force resistance.
const bcryptCost = 12

// HashSecret hashes a client secret or user password with bcrypt. The
// comparison bcrypt performs is constant-time, so stored hashes never leak
// timing information about the plaintext.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("cryptox: hash secret: %w", err)
	}
	return string(hash), nil
}

// VerifySecret compares a plaintext secret against a bcrypt hash.
func VerifySecret(secret, encodedHash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(secret)); err != nil {
		return ErrMismatch
	}
	return nil
}

// GenerateSecret returns a random alphanumeric secret suitable for
// provisioning new clients.
func GenerateSecret() (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 24

	secret := make([]byte, length)
	for i := range secret {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("cryptox: generate secret: %w", err)
		}
		secret[i] = charset[n.Int64()]
	}
	return string(secret), nil
}
