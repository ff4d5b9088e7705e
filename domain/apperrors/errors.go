// Package apperrors defines the machine-readable error taxonomy for the
// TikTok integration. Handlers map these to HTTP responses; internal
// diagnostics stay in logs and never reach the end user verbatim.
package apperrors

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidOrExpiredState - handshake state missing, expired, or replayed;
	// the user must restart authorization.
	ErrInvalidOrExpiredState = errors.New("invalid or expired oauth state")

	// ErrUpstreamAuth - the provider rejected a code or refresh exchange.
	ErrUpstreamAuth = errors.New("provider rejected the authorization exchange")

	// ErrCredentialRevoked - refresh token invalid; stored credential is deleted
	// and the user must re-connect the account.
	ErrCredentialRevoked = errors.New("tiktok credential revoked")

	// ErrRefreshUnavailable - refresh failed transiently; credential kept, retry later.
	ErrRefreshUnavailable = errors.New("token refresh temporarily unavailable")

	// ErrRateLimited - provider rate limit persisted past the retry budget.
	ErrRateLimited = errors.New("provider rate limit exceeded")

	// ErrUnauthorized - persistent 401 after one forced refresh.
	ErrUnauthorized = errors.New("provider rejected the access token")

	// ErrCorruptedCredential - vault decryption failed; operational remediation required.
	ErrCorruptedCredential = errors.New("stored credential could not be decrypted")

	// ErrCredentialNotFound - no credential stored for the user.
	ErrCredentialNotFound = errors.New("tiktok account not connected")
)

// Kind returns the machine-readable code for a taxonomy error, or "internal_error".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidOrExpiredState):
		return "invalid_or_expired_state"
	case errors.Is(err, ErrUpstreamAuth):
		return "upstream_auth_error"
	case errors.Is(err, ErrCredentialRevoked):
		return "credential_revoked"
	case errors.Is(err, ErrRefreshUnavailable):
		return "refresh_unavailable"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrCorruptedCredential):
		return "corrupted_credential"
	case errors.Is(err, ErrCredentialNotFound):
		return "not_connected"
	default:
		return "internal_error"
	}
}

// HTTPStatus maps a taxonomy error to a response status.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidOrExpiredState):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpstreamAuth):
		return http.StatusBadGateway
	case errors.Is(err, ErrCredentialRevoked), errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrRefreshUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrCredentialNotFound):
		return http.StatusBadRequest
	case errors.Is(err, ErrCorruptedCredential):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
