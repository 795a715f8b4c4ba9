package service

import (
	"context"
	"errors"
	"time"

	"github.com/caseflow/caseflow/internal/coordinator/domain"
	"github.com/caseflow/caseflow/internal/coordinator/store"
	"github.com/caseflow/caseflow/pkg/cryptox"
	"github.com/caseflow/caseflow/pkg/jwtx"
)

// DefaultRefreshTTL is how long refresh tokens stay redeemable.
const DefaultRefreshTTL = 30 * 24 * time.Hour

// TokenService implements the token endpoint grants: password,
// client_credentials, and refresh_token. Refresh tokens rotate on use; the
// redeemed token is revoked in the same transaction that stores its
// replacement.
type TokenService struct {
	Store        store.Store
	Keys         *jwtx.KeyManager
	Issuer       string
	RefreshTTL   time.Duration
	StoreTimeout time.Duration

	// Now is a clock override for tests. Nil means time.Now.
	Now func() time.Time
}

// IssueRequest carries the parsed token request. Exactly one grant type is
// exercised per call.
type IssueRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	RefreshToken string
	Scopes       []string
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return DefaultRefreshTTL
}

// Issue authenticates the client, dispatches on grant type, and returns the
// signed token pair. Failures come back as ErrInvalidClient,
// ErrUnsupportedGrant, ErrInvalidGrant, or ErrInvalidScope.
func (s *TokenService) Issue(ctx context.Context, req IssueRequest) (domain.TokenPair, error) {
	client, err := s.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return domain.TokenPair{}, err
	}

	if !client.AllowsGrant(req.GrantType) {
		return domain.TokenPair{}, ErrUnsupportedGrant
	}

	switch req.GrantType {
	case domain.GrantPassword:
		return s.passwordGrant(ctx, client, req)
	case domain.GrantClientCredentials:
		return s.clientCredentialsGrant(ctx, client, req)
	case domain.GrantRefreshToken:
		return s.refreshGrant(ctx, client, req)
	default:
		return domain.TokenPair{}, ErrUnsupportedGrant
	}
}

func (s *TokenService) authenticateClient(ctx context.Context, clientID, secret string) (domain.Client, error) {
	cctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	client, err := s.Store.Clients().GetClientByID(cctx, clientID)
	if err != nil {
		if errors.Is(mapStoreErr(err), ErrNotFound) {
			return domain.Client{}, ErrInvalidClient
		}
		return domain.Client{}, mapStoreErr(err)
	}

	if err := cryptox.VerifySecret(secret, client.SecretHash); err != nil {
		return domain.Client{}, ErrInvalidClient
	}
	return client, nil
}

func (s *TokenService) passwordGrant(ctx context.Context, client domain.Client, req IssueRequest) (domain.TokenPair, error) {
	cctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	user, err := s.Store.Users().GetUserByUsername(cctx, req.Username)
	if err != nil {
		if errors.Is(mapStoreErr(err), ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidGrant
		}
		return domain.TokenPair{}, mapStoreErr(err)
	}

	if err := cryptox.VerifySecret(req.Password, user.PasswordHash); err != nil {
		return domain.TokenPair{}, ErrInvalidGrant
	}

	scopes, err := s.resolveScopes(client, req.Scopes)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return s.mint(ctx, client, user.ID, user.Username, scopes, true)
}

func (s *TokenService) clientCredentialsGrant(ctx context.Context, client domain.Client, req IssueRequest) (domain.TokenPair, error) {
	scopes, err := s.resolveScopes(client, req.Scopes)
	if err != nil {
		return domain.TokenPair{}, err
	}

	// The client is its own subject; no refresh token is issued because the
	// client can always re-authenticate directly.
	return s.mint(ctx, client, client.ID, "", scopes, false)
}

func (s *TokenService) refreshGrant(ctx context.Context, client domain.Client, req IssueRequest) (domain.TokenPair, error) {
	if req.RefreshToken == "" {
		return domain.TokenPair{}, ErrInvalidGrant
	}
	hash := cryptox.FingerprintToken(req.RefreshToken)

	cctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	stored, err := s.Store.RefreshTokens().GetRefreshTokenByHash(cctx, hash)
	if err != nil {
		if errors.Is(mapStoreErr(err), ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidGrant
		}
		return domain.TokenPair{}, mapStoreErr(err)
	}

	now := s.now()
	if stored.Revoked || now.After(stored.ExpiresAt) || stored.ClientID != client.ID {
		return domain.TokenPair{}, ErrInvalidGrant
	}

	// Narrowing on refresh is allowed; widening is not.
	scopes := stored.Scopes
	if len(req.Scopes) > 0 {
		if !scopesWithin(stored.Scopes, req.Scopes) {
			return domain.TokenPair{}, ErrInvalidScope
		}
		scopes = req.Scopes
	}

	user, err := s.Store.Users().GetUserByID(cctx, stored.UserID)
	if err != nil {
		if errors.Is(mapStoreErr(err), ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidGrant
		}
		return domain.TokenPair{}, mapStoreErr(err)
	}

	pair, err := s.mintRotated(ctx, client, user, scopes, hash)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return pair, nil
}

func (s *TokenService) resolveScopes(client domain.Client, requested []string) ([]string, error) {
	if len(requested) > 0 && !scopesWithin(client.Scopes, requested) {
		return nil, ErrInvalidScope
	}
	return intersectScopes(client.Scopes, requested), nil
}

// mint signs the access token and, when withRefresh is set, stores a fresh
// refresh token record alongside it.
func (s *TokenService) mint(ctx context.Context, client domain.Client, subject, username string, scopes []string, withRefresh bool) (domain.TokenPair, error) {
	now := s.now()
	claims := jwtx.NewAccessClaims(subject, scopes, client.Authorities, client.ID, username, client.AccessTTL, s.Issuer, now)

	access, err := s.Keys.GetSigner().Sign(claims)
	if err != nil {
		return domain.TokenPair{}, err
	}

	pair := domain.TokenPair{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   client.AccessTTL,
		Scope:       joinScopes(scopes),
	}

	if withRefresh {
		opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return domain.TokenPair{}, err
		}

		cctx, cancel := withTimeout(ctx, s.StoreTimeout)
		defer cancel()

		record := domain.RefreshToken{
			ID:        newID(),
			UserID:    subject,
			ClientID:  client.ID,
			TokenHash: cryptox.FingerprintToken(opaque),
			Scopes:    scopes,
			ExpiresAt: now.Add(s.refreshTTL()),
		}
		if err := s.Store.RefreshTokens().CreateRefreshToken(cctx, record); err != nil {
			return domain.TokenPair{}, mapStoreErr(err)
		}
		pair.RefreshToken = opaque
	}
	return pair, nil
}

// mintRotated revokes the redeemed refresh token and stores its replacement
// atomically, then signs the new access token.
func (s *TokenService) mintRotated(ctx context.Context, client domain.Client, user domain.User, scopes []string, redeemedHash string) (domain.TokenPair, error) {
	now := s.now()
	claims := jwtx.NewAccessClaims(user.ID, scopes, client.Authorities, client.ID, user.Username, client.AccessTTL, s.Issuer, now)

	access, err := s.Keys.GetSigner().Sign(claims)
	if err != nil {
		return domain.TokenPair{}, err
	}

	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, err
	}

	cctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	err = s.Store.WithTx(cctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().RevokeRefreshToken(cctx, redeemedHash); err != nil {
			return err
		}
		return tx.RefreshTokens().CreateRefreshToken(cctx, domain.RefreshToken{
			ID:        newID(),
			UserID:    user.ID,
			ClientID:  client.ID,
			TokenHash: cryptox.FingerprintToken(opaque),
			Scopes:    scopes,
			ExpiresAt: now.Add(s.refreshTTL()),
		})
	})
	if err != nil {
		return domain.TokenPair{}, mapStoreErr(err)
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: opaque,
		TokenType:    "Bearer",
		ExpiresIn:    client.AccessTTL,
		Scope:        joinScopes(scopes),
	}, nil
}

// Revoke invalidates a refresh token. Unknown tokens are reported as
// ErrInvalidGrant so the endpoint cannot be used as an oracle.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	cctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	err := s.Store.RefreshTokens().RevokeRefreshToken(cctx, cryptox.FingerprintToken(refreshToken))
	if err != nil {
		if errors.Is(mapStoreErr(err), ErrNotFound) {
			return ErrInvalidGrant
		}
		return mapStoreErr(err)
	}
	return nil
}
