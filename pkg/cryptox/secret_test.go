package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifySecret(t *testing.T) {
	t.Parallel()

	hash, err := HashSecret("password")
	require.NoError(t, err)
	require.NotEqual(t, "password", hash)

	require.NoError(t, VerifySecret("password", hash))
	require.ErrorIs(t, VerifySecret("wrong", hash), ErrMismatch)
}

func TestVerifySecretRejectsGarbageHash(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, VerifySecret("password", "not-a-bcrypt-hash"), ErrMismatch)
}

func TestGenerateSecret(t *testing.T) {
	t.Parallel()

	a, err := GenerateSecret()
	require.NoError(t, err)
	b, err := GenerateSecret()
	require.NoError(t, err)

	require.Len(t, a, 24)
	require.NotEqual(t, a, b)
}

func TestGenerateTokenAndFingerprint(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.Len(t, tok, 43)

	// Fingerprint is deterministic and never equals the token itself.
	require.Equal(t, FingerprintToken(tok), FingerprintToken(tok))
	require.NotEqual(t, tok, FingerprintToken(tok))

	_, err = GenerateToken(0)
	require.Error(t, err)
}
