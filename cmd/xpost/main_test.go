package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/postline/xpost/internal/api"
	"github.com/postline/xpost/internal/authflow"
	"github.com/postline/xpost/internal/credentials"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not configured", credentials.ErrNotConfigured, exitNotConfigured},
		{"wrapped not configured", fmt.Errorf("loading: %w", credentials.ErrNotConfigured), exitNotConfigured},
		{"reauth required", api.ErrReauthRequired, exitReauthRequired},
		{"wrapped reauth required", fmt.Errorf("%w: refresh rejected", api.ErrReauthRequired), exitReauthRequired},
		{"validation", &api.ValidationError{Reason: "too long"}, exitValidation},
		{"provider rejection", &api.APIError{StatusCode: 403, Body: "nope"}, exitAPI},
		{"transport failure", &api.NetworkError{Err: errors.New("connection refused")}, exitAPI},
		{"wrapped transport failure", fmt.Errorf("upload 1 of 2 failed: %w", &api.NetworkError{Err: errors.New("dns")}), exitAPI},
		{"exchange failure", authflow.ErrExchangeFailed, exitAPI},
		{"callback timeout", authflow.ErrCallbackTimeout, exitAPI},
		{"state mismatch", authflow.ErrStateMismatch, exitAPI},
		{"anything else", errors.New("boom"), exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCodeFor(tt.err))
		})
	}
}
