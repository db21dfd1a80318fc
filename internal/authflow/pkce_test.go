package authflow

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPKCE_ChallengeRederivable(t *testing.T) {
	pkce, err := NewPKCE()
	require.NoError(t, err)

	// The challenge sent in the authorization URL must equal what the
	// server will derive from the verifier at exchange time.
	assert.Equal(t, pkce.Challenge, ChallengeS256(pkce.Verifier))
}

func TestNewPKCE_VerifierLength(t *testing.T) {
	pkce, err := NewPKCE()
	require.NoError(t, err)

	// RFC 7636 requires 43-128 characters.
	assert.GreaterOrEqual(t, len(pkce.Verifier), 43)
	assert.LessOrEqual(t, len(pkce.Verifier), 128)
}

func TestNewPKCE_Unique(t *testing.T) {
	a, err := NewPKCE()
	require.NoError(t, err)
	b, err := NewPKCE()
	require.NoError(t, err)

	assert.NotEqual(t, a.Verifier, b.Verifier)
	assert.NotEqual(t, a.State, b.State)
}

func TestChallengeS256_NoPadding(t *testing.T) {
	challenge := ChallengeS256("example-verifier")
	assert.NotContains(t, challenge, "=")

	sum := sha256.Sum256([]byte("example-verifier"))
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), challenge)
}
