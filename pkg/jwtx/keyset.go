package jwtx

import (
	"crypto"
	"fmt"
	"sync"
)

// KeySet holds the public halves of the signing keys, indexed by kid.
// Verifiers consult it to resolve the key named in a token header, and the
// JWKS endpoint serializes it for external verifiers.
type KeySet struct {
	mu   sync.RWMutex
	keys map[string]JWK
}

// NewKeySet creates an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string]JWK)}
}

// AddSigner publishes a signer's public key into the set.
func (ks *KeySet) AddSigner(s Signer) error {
	jwk := s.PublicJWK()
	if jwk.Kid == "" {
		return fmt.Errorf("jwtx: signer has empty kid")
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.keys[jwk.Kid] = jwk
	return nil
}

// Get resolves a public key by kid.
func (ks *KeySet) Get(kid string) (crypto.PublicKey, error) {
	ks.mu.RLock()
	jwk, ok := ks.keys[kid]
	ks.mu.RUnlock()

	if !ok {
		return nil, ErrUnknownKID
	}
	return jwk.PublicKey()
}

// JWKS returns the serializable document of all published keys.
func (ks *KeySet) JWKS() JWKS {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	out := JWKS{Keys: make([]JWK, 0, len(ks.keys))}
	for _, jwk := range ks.keys {
		out.Keys = append(out.Keys, jwk)
	}
	return out
}
