package authflow

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// PKCE is one ephemeral proof-key session. It lives in memory for a single
// setup invocation and is gone once the callback is handled.
type PKCE struct {
	Verifier  string
	Challenge string
	State     string
}

// NewPKCE generates a verifier, its S256 challenge, and an anti-CSRF state
// token. 64 random bytes base64url-encode to 86 characters, comfortably
// inside the 43-128 range RFC 7636 requires.
func NewPKCE() (*PKCE, error) {
	verifier, err := randomToken(64)
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}
	state, err := randomToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	return &PKCE{
		Verifier:  verifier,
		Challenge: ChallengeS256(verifier),
		State:     state,
	}, nil
}

// ChallengeS256 derives the code challenge from a verifier: SHA-256, then
// base64url without padding.
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func randomToken(bytes int) (string, error) {
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
