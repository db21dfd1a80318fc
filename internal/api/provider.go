package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/postline/xpost/internal/config"
	"github.com/postline/xpost/internal/logger"
	"go.uber.org/zap"
)

// defaultTokenLifetime is assumed when the token endpoint omits expires_in.
// X access tokens live for two hours.
const defaultTokenLifetime = 2 * time.Hour

// Provider is the narrow surface of the X API the auth flow and the client
// talk to. Both are testable against a fake implementation of it.
type Provider interface {
	AuthCodeURL(state, codeChallenge string) string
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*Token, error)
	RefreshToken(ctx context.Context, refreshToken string) (*Token, error)
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
	CreatePost(ctx context.Context, accessToken string, req *PostRequest) (string, error)
	UploadMedia(ctx context.Context, accessToken string, media []byte, category string) (string, error)
}

// XProvider implements Provider against the real X API v2.
type XProvider struct {
	oauth2Config *oauth2.Config
	baseURL      string
	client       *http.Client
}

// NewXProvider creates a provider from the OAuth and API configuration.
func NewXProvider(cfg *config.Config) *XProvider {
	return &XProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			RedirectURL:  cfg.OAuth.RedirectURI(),
			Scopes:       strings.Fields(cfg.OAuth.Scopes),
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.OAuth.AuthURL,
				TokenURL: cfg.OAuth.TokenURL,
				// Confidential client: client_id/client_secret go in a
				// Basic auth header on token requests.
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		baseURL: cfg.API.BaseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// AuthCodeURL builds the browser-directed authorization URL carrying the
// PKCE challenge and anti-CSRF state.
func (p *XProvider) AuthCodeURL(state, codeChallenge string) string {
	return p.oauth2Config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// ExchangeCode trades an authorization code plus the PKCE verifier for
// tokens. The code is single-use and expires within about a minute, so a
// failure here is final and the whole flow restarts.
func (p *XProvider) ExchangeCode(ctx context.Context, code, codeVerifier string) (*Token, error) {
	tok, err := p.oauth2Config.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, tokenEndpointError(err)
	}
	return convertToken(tok), nil
}

// RefreshToken obtains a new access token. The refresh token may rotate;
// callers must persist the returned one.
func (p *XProvider) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	tok, err := p.oauth2Config.TokenSource(ctx, &oauth2.Token{
		RefreshToken: refreshToken,
	}).Token()
	if err != nil {
		return nil, tokenEndpointError(err)
	}
	return convertToken(tok), nil
}

// FetchProfile returns the authenticated user's id, username and display name.
func (p *XProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	body, err := p.do(ctx, http.MethodGet, "/users/me", accessToken, nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Data Profile `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode profile response: %w", err)
	}
	return &out.Data, nil
}

// CreatePost creates a post and returns its id.
func (p *XProvider) CreatePost(ctx context.Context, accessToken string, req *PostRequest) (string, error) {
	payload := map[string]interface{}{"text": req.Text}
	if len(req.MediaIDs) > 0 {
		payload["media"] = map[string]interface{}{"media_ids": req.MediaIDs}
	}
	if req.ReplyTo != "" {
		payload["reply"] = map[string]string{"in_reply_to_tweet_id": req.ReplyTo}
	}
	if req.QuoteID != "" {
		payload["quote_tweet_id"] = req.QuoteID
	}

	body, err := p.do(ctx, http.MethodPost, "/tweets", accessToken, payload)
	if err != nil {
		return "", err
	}

	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode post response: %w", err)
	}
	return out.Data.ID, nil
}

// UploadMedia sends media bytes base64-encoded to the v2 upload endpoint and
// returns the media id. The v1.1 multipart endpoint rejects OAuth 2.0 bearer
// tokens with a 403, so the JSON endpoint is the only option here.
func (p *XProvider) UploadMedia(ctx context.Context, accessToken string, media []byte, category string) (string, error) {
	payload := map[string]interface{}{
		"media":          encodeMedia(media),
		"media_category": category,
	}

	body, err := p.do(ctx, http.MethodPost, "/media/upload", accessToken, payload)
	if err != nil {
		return "", err
	}

	var out struct {
		Data struct {
			ID            string      `json:"id"`
			MediaIDString string      `json:"media_id_string"`
			MediaID       json.Number `json:"media_id"`
		} `json:"data"`
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode media upload response: %w", err)
	}

	// The endpoint has answered with several shapes over time.
	for _, id := range []string{out.Data.ID, out.Data.MediaIDString, out.Data.MediaID.String(), out.MediaIDString} {
		if id != "" && id != "0" {
			return id, nil
		}
	}
	return "", fmt.Errorf("media upload response contained no media id")
}

func (p *XProvider) do(ctx context.Context, method, path, accessToken string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Error("failed to close response body", zap.Error(closeErr))
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Debug("API request rejected",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	return respBody, nil
}

// tokenEndpointError normalizes oauth2 failures so the token endpoint's
// status and body surface the same way as every other API rejection. A
// failure that never produced a response is a transport problem.
func tokenEndpointError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return &APIError{
			StatusCode: retrieveErr.Response.StatusCode,
			Body:       strings.TrimSpace(string(retrieveErr.Body)),
		}
	}
	return &NetworkError{Err: err}
}

func convertToken(tok *oauth2.Token) *Token {
	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(defaultTokenLifetime)
	}
	return &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresAt:    expiresAt,
	}
}
