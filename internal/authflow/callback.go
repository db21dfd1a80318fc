package authflow

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/postline/xpost/internal/logger"
	"go.uber.org/zap"
)

// ErrStateMismatch indicates the callback carried a state that does not
// match this session's. The code is discarded and never exchanged.
var ErrStateMismatch = errors.New("state mismatch on callback: possible CSRF, restart setup")

// ErrCallbackTimeout indicates no callback arrived within the bounded wait.
var ErrCallbackTimeout = errors.New("timed out waiting for the authorization callback")

// AuthorizationError is the provider reporting denial via the error query
// parameter, typically because the user declined consent.
type AuthorizationError struct {
	Code        string
	Description string
}

func (e *AuthorizationError) Error() string {
	if e.Description == "" {
		return "authorization failed: " + e.Code
	}
	return fmt.Sprintf("authorization failed: %s: %s", e.Code, e.Description)
}

// parseCallback extracts the authorization code from redirect query
// parameters and verifies the state. The automatic listener and the manual
// paste fallback both land here, so the two intake paths cannot diverge.
func parseCallback(query url.Values, expectedState string) (string, error) {
	if errCode := query.Get("error"); errCode != "" {
		return "", &AuthorizationError{
			Code:        errCode,
			Description: query.Get("error_description"),
		}
	}

	code := query.Get("code")
	if code == "" {
		return "", fmt.Errorf("callback carried no authorization code")
	}
	if query.Get("state") != expectedState {
		return "", ErrStateMismatch
	}
	return code, nil
}

// ParseRedirect extracts code and state from a full redirect URL pasted by
// the user, for setups where the browser cannot reach the local listener.
func ParseRedirect(rawURL, expectedState string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URL: %w", err)
	}
	return parseCallback(u.Query(), expectedState)
}

// awaitCallback binds the fixed callback port, serves exactly one callback
// request, and shuts down. The wait is bounded by ctx: authorization codes
// expire within about a minute of approval, so the listener must never be
// the thing that hangs.
func awaitCallback(ctx context.Context, port int, expectedState string) (string, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return "", fmt.Errorf("failed to bind callback port %d: %w", port, err)
	}

	type outcome struct {
		code string
		err  error
	}
	results := make(chan outcome, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code, err := parseCallback(r.URL.Query(), expectedState)

		w.Header().Set("Content-Type", "text/html")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "<h2>Authorization failed</h2><p>%s</p>", err)
		} else {
			fmt.Fprint(w, "<h2>Authorization successful!</h2><p>You can close this tab and return to the terminal.</p>")
		}

		// Buffered channel: only the first callback counts.
		select {
		case results <- outcome{code: code, err: err}:
		default:
		}
	})

	server := &http.Server{Handler: mux}
	go func() {
		if serveErr := server.Serve(ln); serveErr != nil && serveErr != http.ErrServerClosed {
			select {
			case results <- outcome{err: fmt.Errorf("callback listener failed: %w", serveErr)}:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("callback listener shutdown", zap.Error(shutdownErr))
		}
	}()

	select {
	case result := <-results:
		return result.code, result.err
	case <-ctx.Done():
		return "", ErrCallbackTimeout
	}
}
