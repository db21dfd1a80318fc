package api

import (
	"errors"
	"fmt"
)

// ErrReauthRequired indicates the refresh token was rejected or has expired.
// There is no automatic fallback to setup; the caller surfaces this.
var ErrReauthRequired = errors.New("reauthentication required: run setup again")

// ValidationError reports input rejected by local checks. Validation always
// runs before any network call, so these never cost a billable request.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Reason
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NetworkError reports a transport failure: the request never produced a
// provider response (connection refused, DNS, timeout). Kept distinct from
// APIError so "the provider said no" and "the network was down" stay
// tellable apart, even though both map to the same exit code.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError reports a request the provider rejected. Body carries the
// provider's response verbatim so the real reason is never swallowed.
// Bearer tokens never appear in it.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("API error: status %d: %s", e.StatusCode, e.Body)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
