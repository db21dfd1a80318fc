// Package credentials holds the single persisted credential record and its
// on-disk store. The record is the only state shared between invocations.
package credentials

import (
	"errors"
	"time"
)

// ErrNotConfigured indicates no credential record exists yet. The user has
// to run setup before any other command can work.
var ErrNotConfigured = errors.New("not configured: no credentials found, run setup first")

// DefaultRefreshMargin is how long before expiry a token is already treated
// as stale. Authorization servers won't mint a token that dies mid-request,
// but we would rather refresh a few minutes early than race the deadline.
const DefaultRefreshMargin = 5 * time.Minute

// Record is the credential record for the one authenticated account.
// The yaml keys match the frontmatter written into the credentials file.
type Record struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	AccessToken  string `yaml:"access_token"`
	RefreshToken string `yaml:"refresh_token"`
	ExpiresAt    int64  `yaml:"token_expires_at"`
	UserID       string `yaml:"user_id"`
	Username     string `yaml:"username"`
	DisplayName  string `yaml:"display_name"`
}

// Fresh reports whether the access token is still usable. A token inside
// the margin window counts as stale and should be refreshed before use.
func (r *Record) Fresh(margin time.Duration) bool {
	if r.ExpiresAt == 0 {
		return false
	}
	return time.Now().Before(time.Unix(r.ExpiresAt, 0).Add(-margin))
}

// TimeRemaining returns how long until the access token expires.
// Negative when already expired.
func (r *Record) TimeRemaining() time.Duration {
	return time.Until(time.Unix(r.ExpiresAt, 0))
}

// Complete reports whether setup finished: both tokens present.
func (r *Record) Complete() bool {
	return r.AccessToken != "" && r.RefreshToken != ""
}

// ApplyTokens replaces the token fields after an exchange or refresh.
// Refresh tokens rotate: an empty refreshToken keeps the current one, per
// OAuth servers that don't rotate. ExpiresAt never decreases.
func (r *Record) ApplyTokens(accessToken, refreshToken string, expiresAt time.Time) {
	r.AccessToken = accessToken
	if refreshToken != "" {
		r.RefreshToken = refreshToken
	}
	if unix := expiresAt.Unix(); unix > r.ExpiresAt {
		r.ExpiresAt = unix
	}
}
