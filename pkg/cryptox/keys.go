package cryptox

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// Minimum RSA modulus size we will generate.
const MinRSABits = 2048

// GenerateRSAKeyPEM generates an RSA private key and returns it PEM-encoded
// in PKCS8 form. Used for ephemeral RS256 signing keys.
func GenerateRSAKeyPEM(bits int) ([]byte, error) {
	if bits < MinRSABits {
		bits = MinRSABits
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("cryptox: generate rsa key: %w", err)
	}
	return marshalPKCS8(key)
}

// GenerateEd25519KeyPEM generates an Ed25519 private key and returns it
// PEM-encoded in PKCS8 form. Used for ephemeral EdDSA signing keys.
func GenerateEd25519KeyPEM() ([]byte, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cryptox: generate ed25519 key: %w", err)
	}
	return marshalPKCS8(key)
}

func marshalPKCS8(key any) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: marshal pkcs8: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}
