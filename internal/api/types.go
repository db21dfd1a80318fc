package api

import "time"

// Token is the result of a code exchange or refresh at the token endpoint.
// ExpiresAt is absolute so nothing is lost converting back and forth
// through relative lifetimes.
type Token struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
}

// Profile is the authenticated user's public identity.
type Profile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"name"`
}

// PostRequest describes one post to create. Reply and quote are mutually
// exclusive per the API's semantics.
type PostRequest struct {
	Text     string
	MediaIDs []string
	ReplyTo  string
	QuoteID  string
}

// PostResult is the created post plus its derived permalink.
type PostResult struct {
	ID        string
	Permalink string
}

// AuthStatus is a sanitized snapshot of the credential state. It carries no
// secret values and is safe to print.
type AuthStatus struct {
	Authenticated    bool
	UserID           string
	Username         string
	DisplayName      string
	MinutesRemaining int
	TokenExpired     bool
	HasRefreshToken  bool
}
