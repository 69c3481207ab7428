package auth

import (
	"errors"
	"net/http"

	"golang.org/x/oauth2"
)

// Sentinel errors for the credential lifecycle. Callers classify failures
// with errors.Is rather than string matching.
var (
	// ErrNoCredentials indicates no credential record is stored. Resolved by
	// running the interactive sign-in flow.
	ErrNoCredentials = errors.New("no stored credentials")

	// ErrAuthenticationDeclined indicates the user denied the consent request
	// in the browser. Not retried automatically; requires fresh user action.
	ErrAuthenticationDeclined = errors.New("authentication declined")

	// ErrAuthenticationTimeout indicates the interactive sign-in flow expired
	// before the provider redirected back. Not retried automatically.
	ErrAuthenticationTimeout = errors.New("authentication timed out")

	// ErrRefreshTransient indicates a token refresh failed for a transient
	// reason (network error, provider 5xx). The stored credential is left
	// untouched and the caller may retry later.
	ErrRefreshTransient = errors.New("token refresh temporarily failed")

	// ErrAuthenticationFailed indicates the credential is invalid even after
	// a forced refresh. The user must re-authenticate.
	ErrAuthenticationFailed = errors.New("authentication failed, please run 'offmind-mcp login' to re-authenticate")
)

// isGrantRevoked reports whether a token-endpoint error means the refresh
// token itself is invalid or revoked, as opposed to a transient failure.
// Providers signal this with invalid_grant (RFC 6749 §5.2) or a 400/401
// response; anything else (network errors, 5xx) is treated as transient.
func isGrantRevoked(err error) bool {
	var rErr *oauth2.RetrieveError
	if !errors.As(err, &rErr) {
		return false
	}

	switch rErr.ErrorCode {
	case "invalid_grant", "invalid_client", "unauthorized_client":
		return true
	}
	if rErr.ErrorCode != "" {
		// A structured OAuth error other than the revocation family, e.g.
		// temporarily_unavailable. Leave the credential alone.
		return false
	}

	if rErr.Response != nil {
		code := rErr.Response.StatusCode
		return code == http.StatusBadRequest || code == http.StatusUnauthorized
	}
	return false
}
