package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	mrand "math/rand/v2"
	"sync"

	"github.com/caseflow/caseflow/pkg/cryptox"
)

// KeyManager owns the process-wide signing keys. Keys are generated at
// startup and only live in memory, so every restart invalidates outstanding
// tokens and no private key material ever touches disk.
type KeyManager struct {
	Verifier Verifier
	KeySet   *KeySet

	mu      sync.RWMutex
	signers []Signer
}

// KeyManagerOptions configures ephemeral key generation.
type KeyManagerOptions struct {
	// Algorithm is "RS256" (default) or "EdDSA".
	Algorithm string

	// Issuer is the iss claim enforced on verification.
	Issuer string

	// RSABits is the RSA modulus size for RS256. Defaults to 2048.
	RSABits int

	// NumKeys is how many signing keys to generate; signing load is spread
	// across them. Defaults to 1, capped at 10.
	NumKeys int
}

// NewEphemeralKeyManager generates signing keys and wires up the matching
// verifier and KeySet.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: issuer is required")
	}

	alg := opts.Algorithm
	if alg == "" {
		alg = AlgorithmRS256
	}

	numKeys := opts.NumKeys
	if numKeys <= 0 {
		numKeys = 1
	}
	if numKeys > 10 {
		numKeys = 10
	}

	keyset := NewKeySet()
	signers := make([]Signer, 0, numKeys)

	for i := 0; i < numKeys; i++ {
		kid, err := generateKeyID()
		if err != nil {
			return nil, fmt.Errorf("jwtx: generate key id: %w", err)
		}

		pemKey, err := generateKeyPEM(alg, opts.RSABits)
		if err != nil {
			return nil, err
		}

		signer, err := NewSigner(alg, kid, pemKey)
		if err != nil {
			return nil, fmt.Errorf("jwtx: build signer %d: %w", i+1, err)
		}

		if err := keyset.AddSigner(signer); err != nil {
			return nil, err
		}
		signers = append(signers, signer)
	}

	return &KeyManager{
		Verifier: NewVerifier(alg, keyset, opts.Issuer),
		KeySet:   keyset,
		signers:  signers,
	}, nil
}

// GetSigner returns one of the signing keys, chosen randomly to spread load.
func (km *KeyManager) GetSigner() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	if len(km.signers) == 1 {
		return km.signers[0]
	}
	return km.signers[mrand.IntN(len(km.signers))]
}

func generateKeyPEM(alg string, rsaBits int) ([]byte, error) {
	switch alg {
	case AlgorithmRS256:
		return cryptox.GenerateRSAKeyPEM(rsaBits)
	case AlgorithmEdDSA:
		return cryptox.GenerateEd25519KeyPEM()
	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q", alg)
	}
}

func generateKeyID() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}
