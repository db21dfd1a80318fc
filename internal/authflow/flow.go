// Package authflow runs the one-time OAuth 2.0 authorization-code flow with
// PKCE: authorization URL, local callback listener, code exchange, profile
// fetch, credential persistence.
package authflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/postline/xpost/internal/api"
	"github.com/postline/xpost/internal/browser"
	"github.com/postline/xpost/internal/config"
	"github.com/postline/xpost/internal/credentials"
	"github.com/postline/xpost/internal/logger"
	"go.uber.org/zap"
)

// ErrExchangeFailed indicates the token endpoint rejected the code exchange.
// Authorization codes are single-use and expire within about a minute, so
// this is never retried; the user restarts setup.
var ErrExchangeFailed = errors.New("code exchange failed, restart setup")

// State names one step of the setup flow. Failures are terminal at every
// step; the operator re-invokes setup from idle.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingCallback State = "awaiting_callback"
	StateCodeReceived     State = "code_received"
	StateTokensExchanged  State = "tokens_exchanged"
	StateProfileFetched   State = "profile_fetched"
	StatePersisted        State = "persisted"
)

// Options tunes one Run invocation.
type Options struct {
	// OnAuthURL receives the authorization URL before the flow blocks, so
	// it can be shown to the user for out-of-band opening.
	OnAuthURL func(url string)
	// OnState receives each state transition. May be nil.
	OnState func(state State)
	// PromptRedirect, when set, replaces the local listener: the user opens
	// the URL elsewhere and pastes the full redirect URL back. Used when no
	// browser can reach this machine.
	PromptRedirect func() (string, error)
	// SkipBrowser disables the best-effort browser launch.
	SkipBrowser bool
}

// Flow drives one setup invocation through the state machine.
type Flow struct {
	oauthCfg *config.OAuthConfig
	provider api.Provider
	store    *credentials.FileStore
	state    State

	openBrowser func(string) error
}

// NewFlow creates a flow controller over the given provider and store.
func NewFlow(cfg *config.Config, provider api.Provider, store *credentials.FileStore) *Flow {
	return &Flow{
		oauthCfg:    &cfg.OAuth,
		provider:    provider,
		store:       store,
		state:       StateIdle,
		openBrowser: browser.Open,
	}
}

// State returns the current flow state.
func (f *Flow) State() State {
	return f.state
}

func (f *Flow) transition(state State, opts *Options) {
	f.state = state
	logger.Debug("auth flow state", zap.String("state", string(state)))
	if opts.OnState != nil {
		opts.OnState(state)
	}
}

// Run executes the whole flow and returns the persisted credential record.
// Any failure is terminal; nothing is retried across states.
func (f *Flow) Run(ctx context.Context, opts Options) (*credentials.Record, error) {
	if f.oauthCfg.ClientID == "" || f.oauthCfg.ClientSecret == "" {
		return nil, fmt.Errorf("client_id and client_secret are required for setup")
	}

	pkce, err := NewPKCE()
	if err != nil {
		return nil, err
	}

	authURL := f.provider.AuthCodeURL(pkce.State, pkce.Challenge)
	if opts.OnAuthURL != nil {
		opts.OnAuthURL(authURL)
	}

	code, err := f.obtainCode(ctx, pkce, authURL, &opts)
	if err != nil {
		return nil, err
	}
	f.transition(StateCodeReceived, &opts)

	token, err := f.provider.ExchangeCode(ctx, code, pkce.Verifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	f.transition(StateTokensExchanged, &opts)

	profile, err := f.provider.FetchProfile(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	f.transition(StateProfileFetched, &opts)

	record := &credentials.Record{
		ClientID:     f.oauthCfg.ClientID,
		ClientSecret: f.oauthCfg.ClientSecret,
		UserID:       profile.ID,
		Username:     profile.Username,
		DisplayName:  profile.DisplayName,
	}
	record.ApplyTokens(token.AccessToken, token.RefreshToken, token.ExpiresAt)

	if err := f.store.Save(record); err != nil {
		return nil, err
	}
	f.transition(StatePersisted, &opts)

	return record, nil
}

// obtainCode gets the authorization code either from the one-shot local
// listener or from a pasted redirect URL. Both paths share parseCallback.
func (f *Flow) obtainCode(ctx context.Context, pkce *PKCE, authURL string, opts *Options) (string, error) {
	if opts.PromptRedirect != nil {
		f.transition(StateAwaitingCallback, opts)
		rawURL, err := opts.PromptRedirect()
		if err != nil {
			return "", fmt.Errorf("failed to read redirect URL: %w", err)
		}
		return ParseRedirect(rawURL, pkce.State)
	}

	if !opts.SkipBrowser {
		if err := f.openBrowser(authURL); err != nil {
			logger.Warn("could not open browser, open the URL manually", zap.Error(err))
		}
	}

	f.transition(StateAwaitingCallback, opts)
	waitCtx, cancel := context.WithTimeout(ctx, f.oauthCfg.CallbackTimeout)
	defer cancel()
	return awaitCallback(waitCtx, f.oauthCfg.CallbackPort, pkce.State)
}
