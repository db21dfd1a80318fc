package authflow

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestParseCallback(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		state    string
		wantCode string
		wantErr  error
	}{
		{
			name:     "valid callback",
			query:    "code=auth-code&state=expected",
			state:    "expected",
			wantCode: "auth-code",
		},
		{
			name:    "state mismatch",
			query:   "code=auth-code&state=tampered",
			state:   "expected",
			wantErr: ErrStateMismatch,
		},
		{
			name:    "missing code",
			query:   "state=expected",
			state:   "expected",
			wantErr: nil, // plain error, asserted below
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			code, err := parseCallback(values, tt.state)
			if tt.wantCode != "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantCode, code)
				return
			}
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestParseCallback_UserDenied(t *testing.T) {
	values, err := url.ParseQuery("error=access_denied&error_description=The+user+denied+access")
	require.NoError(t, err)

	_, err = parseCallback(values, "expected")
	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "access_denied", authErr.Code)
	assert.Contains(t, authErr.Description, "denied")
}

func TestParseRedirect_SharesCallbackPath(t *testing.T) {
	code, err := ParseRedirect("http://localhost:9877/callback?code=pasted-code&state=s1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "pasted-code", code)

	_, err = ParseRedirect("http://localhost:9877/callback?code=pasted-code&state=other", "s1")
	assert.ErrorIs(t, err, ErrStateMismatch)

	_, err = ParseRedirect("://not a url", "s1")
	assert.Error(t, err)
}

func TestAwaitCallback_ReceivesCode(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		code string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		code, err := awaitCallback(ctx, port, "good-state")
		done <- result{code, err}
	}()

	requireCallbackUp(t, port, "code=the-code&state=good-state", http.StatusOK)

	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, "the-code", r.code)
}

func TestAwaitCallback_StateMismatch(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := awaitCallback(ctx, port, "good-state")
		done <- err
	}()

	requireCallbackUp(t, port, "code=the-code&state=evil-state", http.StatusBadRequest)

	assert.ErrorIs(t, <-done, ErrStateMismatch)
}

func TestAwaitCallback_Timeout(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := awaitCallback(ctx, port, "good-state")
	assert.ErrorIs(t, err, ErrCallbackTimeout)
}

// requireCallbackUp issues the callback request, retrying briefly while the
// listener goroutine binds the port.
func requireCallbackUp(t *testing.T, port int, query string, wantStatus int) {
	t.Helper()
	url := fmt.Sprintf("http://localhost:%d/callback?%s", port, query)
	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			defer resp.Body.Close()
			assert.Equal(t, wantStatus, resp.StatusCode)
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("callback listener never came up: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
