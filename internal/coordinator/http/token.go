package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/caseflow/caseflow/internal/coordinator/domain"
	"github.com/caseflow/caseflow/internal/coordinator/metrics"
	"github.com/caseflow/caseflow/internal/coordinator/service"
	"github.com/caseflow/caseflow/pkg/httpx"
	"github.com/caseflow/caseflow/pkg/slogx"
)

// TokenHandler serves POST /token. It accepts
// application/x-www-form-urlencoded bodies per the RFC 6749 framework and
// supports the password, client_credentials, and refresh_token grants.
type TokenHandler struct {
	TokenService *service.TokenService
}

// tokenResponse is the success body of the token endpoint.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		errInvalidContent.WriteError(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		errInvalidRequest.WriteError(w)
		return
	}

	grantType := r.Form.Get("grant_type")
	clientID := strings.TrimSpace(r.Form.Get("client_id"))
	clientSecret := r.Form.Get("client_secret")
	if grantType == "" || clientID == "" {
		errInvalidRequest.WriteError(w)
		return
	}

	req := service.IssueRequest{
		GrantType:    grantType,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       httpx.ParseSpaceDelimitedFields(r.Form.Get("scope")),
	}

	switch grantType {
	case domain.GrantPassword:
		req.Username = strings.TrimSpace(r.Form.Get("username"))
		req.Password = r.Form.Get("password")
		if req.Username == "" || req.Password == "" {
			errInvalidRequest.WriteError(w)
			return
		}
	case domain.GrantRefreshToken:
		req.RefreshToken = r.Form.Get("refresh_token")
		if req.RefreshToken == "" {
			errInvalidRequest.WriteError(w)
			return
		}
	case domain.GrantClientCredentials:
	default:
		errUnsupported.WriteError(w)
		return
	}

	pair, err := h.TokenService.Issue(r.Context(), req)
	if err != nil {
		h.writeGrantError(w, r, err)
		return
	}

	metrics.TokensIssued.WithLabelValues(grantType).Inc()
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
		Scope:        strings.TrimSpace(pair.Scope),
	})
}

func (h *TokenHandler) writeGrantError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidClient):
		errInvalidClient.WriteError(w)
	case errors.Is(err, service.ErrInvalidGrant):
		errInvalidGrant.WriteError(w)
	case errors.Is(err, service.ErrInvalidScope):
		errInvalidScope.WriteError(w)
	case errors.Is(err, service.ErrUnsupportedGrant):
		errUnsupported.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("token grant failed", "err", err)
		errServerError.WriteError(w)
	}
}

// RevokeHandler serves POST /token/revoke.
type RevokeHandler struct {
	TokenService *service.TokenService
}

func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		errInvalidRequest.WriteError(w)
		return
	}

	token := r.Form.Get("token")
	if token == "" {
		errInvalidRequest.WriteError(w)
		return
	}

	err := h.TokenService.Revoke(r.Context(), token)
	switch {
	case err == nil, errors.Is(err, service.ErrInvalidGrant):
		// RFC 7009: revoking an unknown token is still a success.
		w.WriteHeader(http.StatusOK)
	default:
		slogx.FromContext(r.Context()).Error("revoke failed", "err", err)
		errServerError.WriteError(w)
	}
}
