// Package api implements the API client and token manager: it loads the
// credential record, refreshes stale access tokens, and issues the
// authenticated post, media and profile requests.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"
	"unicode/utf8"

	"github.com/postline/xpost/internal/config"
	"github.com/postline/xpost/internal/credentials"
	"github.com/postline/xpost/internal/logger"
	"go.uber.org/zap"
)

// Client issues authenticated API calls for the configured account.
// Each process loads the record once, possibly refreshes it, and exits.
type Client struct {
	provider Provider
	store    *credentials.FileStore
	cfg      *config.APIConfig
	margin   time.Duration

	record *credentials.Record
}

// NewClient creates a client over the given provider and credential store.
func NewClient(cfg *config.Config, provider Provider, store *credentials.FileStore) *Client {
	return &Client{
		provider: provider,
		store:    store,
		cfg:      &cfg.API,
		margin:   credentials.DefaultRefreshMargin,
	}
}

// load reads the credential record once per invocation.
func (c *Client) load() (*credentials.Record, error) {
	if c.record != nil {
		return c.record, nil
	}
	record, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	c.record = record
	return record, nil
}

// EnsureFresh refreshes the access token when it is expired or inside the
// safety margin. A fresh token means zero network calls. On a successful
// refresh the rotated tokens are persisted immediately: the old refresh
// token is invalid the moment the provider answers.
func (c *Client) EnsureFresh(ctx context.Context) error {
	record, err := c.load()
	if err != nil {
		return err
	}
	if record.Fresh(c.margin) {
		return nil
	}
	return c.refresh(ctx)
}

// ForceRefresh refreshes the access token regardless of freshness.
func (c *Client) ForceRefresh(ctx context.Context) error {
	if _, err := c.load(); err != nil {
		return err
	}
	return c.refresh(ctx)
}

func (c *Client) refresh(ctx context.Context) error {
	record, err := c.load()
	if err != nil {
		return err
	}
	if record.RefreshToken == "" {
		return ErrReauthRequired
	}

	logger.Info("access token stale, refreshing")
	tok, err := c.provider.RefreshToken(ctx, record.RefreshToken)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			logger.Warn("token refresh rejected", zap.Int("status", apiErr.StatusCode))
			return fmt.Errorf("%w: refresh rejected with status %d", ErrReauthRequired, apiErr.StatusCode)
		}
		return fmt.Errorf("token refresh failed: %w", err)
	}

	record.ApplyTokens(tok.AccessToken, tok.RefreshToken, tok.ExpiresAt)
	if err := c.store.Save(record); err != nil {
		return fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}
	return nil
}

// CheckAuth returns a sanitized status snapshot. It never touches the
// network and never exposes token values.
func (c *Client) CheckAuth() (*AuthStatus, error) {
	record, err := c.load()
	if err != nil {
		return nil, err
	}

	remaining := record.TimeRemaining()
	return &AuthStatus{
		Authenticated:    record.Complete(),
		UserID:           record.UserID,
		Username:         record.Username,
		DisplayName:      record.DisplayName,
		MinutesRemaining: int(remaining.Minutes()),
		TokenExpired:     remaining <= 0,
		HasRefreshToken:  record.RefreshToken != "",
	}, nil
}

// CreatePost validates the text locally, then creates the post. A reply
// target and a quote id cannot be combined.
func (c *Client) CreatePost(ctx context.Context, req *PostRequest) (*PostResult, error) {
	if err := c.validateText(req.Text); err != nil {
		return nil, err
	}
	if req.ReplyTo != "" && req.QuoteID != "" {
		return nil, validationErrorf("a post cannot both reply and quote")
	}

	record, err := c.load()
	if err != nil {
		return nil, err
	}

	var id string
	err = c.withAuthRetry(ctx, func(accessToken string) error {
		var callErr error
		id, callErr = c.provider.CreatePost(ctx, accessToken, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	logger.Info("post created", zap.String("id", id))
	return &PostResult{
		ID:        id,
		Permalink: fmt.Sprintf("%s/%s/status/%s", c.cfg.PermalinkHost, record.Username, id),
	}, nil
}

// UploadMedia validates the local file, then uploads it and returns the
// opaque media id.
func (c *Client) UploadMedia(ctx context.Context, path string) (string, error) {
	format, err := inspectMedia(path)
	if err != nil {
		return "", err
	}

	media, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read media file: %w", err)
	}

	if _, err := c.load(); err != nil {
		return "", err
	}

	var id string
	err = c.withAuthRetry(ctx, func(accessToken string) error {
		var callErr error
		id, callErr = c.provider.UploadMedia(ctx, accessToken, media, format.category)
		return callErr
	})
	if err != nil {
		return "", err
	}

	logger.Info("media uploaded", zap.String("id", id), zap.String("path", path))
	return id, nil
}

// PostWithMedia uploads each image in order, then creates the post with the
// resulting media ids in that same order. A failed upload aborts the whole
// operation before any post is created; earlier uploads are not rolled back,
// their ids are simply discarded.
func (c *Client) PostWithMedia(ctx context.Context, text string, paths []string) (*PostResult, error) {
	if err := c.validateText(text); err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, validationErrorf("no images given")
	}
	if len(paths) > MaxImages {
		return nil, validationErrorf("at most %d images per post, got %d", MaxImages, len(paths))
	}
	// Catch bad files before spending any upload.
	for _, path := range paths {
		if _, err := inspectMedia(path); err != nil {
			return nil, err
		}
	}

	mediaIDs := make([]string, 0, len(paths))
	for i, path := range paths {
		logger.Info("uploading image",
			zap.Int("n", i+1),
			zap.Int("total", len(paths)),
			zap.String("path", path),
		)
		id, err := c.UploadMedia(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("upload %d of %d failed: %w", i+1, len(paths), err)
		}
		mediaIDs = append(mediaIDs, id)
	}

	return c.CreatePost(ctx, &PostRequest{Text: text, MediaIDs: mediaIDs})
}

func (c *Client) validateText(text string) error {
	if text == "" {
		return validationErrorf("post text is empty")
	}
	if n := utf8.RuneCountInString(text); n > c.cfg.CharacterLimit {
		return validationErrorf("post text is %d characters, limit is %d", n, c.cfg.CharacterLimit)
	}
	return nil
}

// withAuthRetry runs fn with a fresh access token. A single 401 triggers one
// silent refresh and one retry; a second 401 fails the invocation with
// ErrReauthRequired. No third attempt, ever.
func (c *Client) withAuthRetry(ctx context.Context, fn func(accessToken string) error) error {
	if err := c.EnsureFresh(ctx); err != nil {
		return err
	}
	record, err := c.load()
	if err != nil {
		return err
	}

	err = fn(record.AccessToken)
	if err == nil || !IsStatus(err, http.StatusUnauthorized) {
		return err
	}

	logger.Warn("request unauthorized despite local token, refreshing once")
	if err := c.refresh(ctx); err != nil {
		return err
	}

	err = fn(c.record.AccessToken)
	if IsStatus(err, http.StatusUnauthorized) {
		return fmt.Errorf("%w: request unauthorized after refresh", ErrReauthRequired)
	}
	return err
}
