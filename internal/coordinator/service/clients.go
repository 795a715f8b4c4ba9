package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caseflow/caseflow/internal/coordinator/domain"
	"github.com/caseflow/caseflow/internal/coordinator/store"
	"github.com/caseflow/caseflow/pkg/cryptox"
)

// DefaultAccessTTL matches the token lifetime the deployment has always
// used: two hours.
const DefaultAccessTTL = 7200 * time.Second

// ClientService manages the client registry. Secrets are hashed before they
// reach storage and the plaintext is returned to the caller exactly once,
// at registration time.
type ClientService struct {
	Store        store.Store
	StoreTimeout time.Duration
}

// RegisterClientRequest describes a new client registration. A blank Secret
// asks the service to generate one.
type RegisterClientRequest struct {
	ID          string
	Name        string
	Secret      string
	GrantTypes  []string
	Scopes      []string
	Authorities []string
	AccessTTL   time.Duration
}

// Register creates the client and returns it together with the plaintext
// secret. The secret is never persisted or logged.
func (s *ClientService) Register(ctx context.Context, req RegisterClientRequest) (domain.Client, string, error) {
	if req.ID == "" {
		return domain.Client{}, "", fmt.Errorf("%w: client id is required", ErrInvalidState)
	}
	if len(req.GrantTypes) == 0 {
		return domain.Client{}, "", fmt.Errorf("%w: at least one grant type is required", ErrInvalidState)
	}
	for _, g := range req.GrantTypes {
		switch g {
		case domain.GrantPassword, domain.GrantClientCredentials, domain.GrantRefreshToken:
		default:
			return domain.Client{}, "", fmt.Errorf("%w: unknown grant type %q", ErrInvalidState, g)
		}
	}

	secret := req.Secret
	if secret == "" {
		generated, err := cryptox.GenerateSecret()
		if err != nil {
			return domain.Client{}, "", err
		}
		secret = generated
	}

	hash, err := cryptox.HashSecret(secret)
	if err != nil {
		return domain.Client{}, "", err
	}

	ttl := req.AccessTTL
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}

	client := domain.Client{
		ID:          req.ID,
		Name:        req.Name,
		SecretHash:  hash,
		GrantTypes:  req.GrantTypes,
		Scopes:      req.Scopes,
		Authorities: req.Authorities,
		AccessTTL:   ttl,
	}

	cctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	if err := s.Store.Clients().CreateClient(cctx, client); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Client{}, "", fmt.Errorf("%w: client %q exists", ErrInvalidState, req.ID)
		}
		return domain.Client{}, "", mapStoreErr(err)
	}
	return client, secret, nil
}

// Lookup returns a client registration by id.
func (s *ClientService) Lookup(ctx context.Context, clientID string) (domain.Client, error) {
	cctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	client, err := s.Store.Clients().GetClientByID(cctx, clientID)
	if err != nil {
		return domain.Client{}, mapStoreErr(err)
	}
	return client, nil
}

// List returns every registered client.
func (s *ClientService) List(ctx context.Context) ([]domain.Client, error) {
	cctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	clients, err := s.Store.Clients().ListClients(cctx)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return clients, nil
}

// Delete removes a client registration. Outstanding refresh tokens issued
// to the client are removed with it.
func (s *ClientService) Delete(ctx context.Context, clientID string) error {
	cctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	return mapStoreErr(s.Store.Clients().DeleteClient(cctx, clientID))
}
