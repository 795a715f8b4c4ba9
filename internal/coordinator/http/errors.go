package http

import (
	"errors"
	"net/http"

	"github.com/caseflow/caseflow/internal/coordinator/service"
	"github.com/caseflow/caseflow/pkg/httpx"
	"github.com/caseflow/caseflow/pkg/slogx"
)

// oauthError is an RFC 6749 token-endpoint error response.
type oauthError struct {
	status      int
	code        string
	description string
}

func (e oauthError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	httpx.WriteJSON(w, e.status, map[string]string{
		"error":             e.code,
		"error_description": e.description,
	})
}

var (
	errInvalidRequest = oauthError{http.StatusBadRequest, "invalid_request", "the request is missing a required parameter"}
	errInvalidContent = oauthError{http.StatusBadRequest, "invalid_request", "content type must be application/x-www-form-urlencoded"}
	errInvalidClient  = oauthError{http.StatusUnauthorized, "invalid_client", "client authentication failed"}
	errInvalidGrant   = oauthError{http.StatusBadRequest, "invalid_grant", "the provided grant is invalid, expired, or revoked"}
	errInvalidScope   = oauthError{http.StatusBadRequest, "invalid_scope", "the requested scope exceeds what the client may grant"}
	errUnsupported    = oauthError{http.StatusBadRequest, "unsupported_grant_type", "the grant type is not supported for this client"}
	errServerError    = oauthError{http.StatusInternalServerError, "server_error", "the server encountered an unexpected condition"}
)

// writeServiceError maps the service taxonomy onto HTTP statuses for the
// non-token endpoints. Unexpected errors are logged and reported as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "the requested resource does not exist")
	case errors.Is(err, service.ErrAlreadyClaimed):
		httpx.WriteError(w, http.StatusConflict, "already_claimed", "the task is claimed by another user")
	case errors.Is(err, service.ErrNotClaimed):
		httpx.WriteError(w, http.StatusConflict, "not_claimed", "the task is not claimed by the caller")
	case errors.Is(err, service.ErrInvalidState):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, service.ErrTimeout), errors.Is(err, service.ErrUnavailable):
		slogx.FromContext(r.Context()).Error("store unavailable", "err", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable", "the service is temporarily unavailable")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}

// retryRead runs an idempotent read once more when the first attempt hits an
// infrastructure failure. State-changing calls must not go through here.
func retryRead[T any](fn func() (T, error)) (T, error) {
	out, err := fn()
	if err != nil && (errors.Is(err, service.ErrTimeout) || errors.Is(err, service.ErrUnavailable)) {
		return fn()
	}
	return out, err
}
