package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/caseflow/caseflow/internal/coordinator/domain"
	httpapi "github.com/caseflow/caseflow/internal/coordinator/http"
	"github.com/caseflow/caseflow/internal/coordinator/service"
	"github.com/caseflow/caseflow/pkg/cryptox"
	"github.com/caseflow/caseflow/pkg/idx"
)

// seed provisions the first client and optional users so a fresh deployment
// can obtain tokens. Runs only against empty tables, so restarting never
// duplicates or overwrites anything.
func (app *Application) seed(ctx context.Context) error {
	if err := app.seedClient(ctx); err != nil {
		return err
	}
	return app.seedUsers(ctx)
}

func (app *Application) seedClient(ctx context.Context) error {
	if app.cfg.SeedClientID == "" {
		return nil
	}

	empty, err := app.db.Clients().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("failed to check client registry: %w", err)
	}
	if !empty {
		return nil
	}

	_, _, err = app.clientService.Register(ctx, service.RegisterClientRequest{
		ID:     app.cfg.SeedClientID,
		Name:   "default",
		Secret: app.cfg.SeedClientSecret,
		GrantTypes: []string{
			domain.GrantPassword,
			domain.GrantClientCredentials,
			domain.GrantRefreshToken,
		},
		Scopes:      []string{httpapi.ScopeAPIAccess},
		Authorities: []string{"ROLE_USER"},
		AccessTTL:   service.DefaultAccessTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to seed client: %w", err)
	}

	app.logger.Info("seeded default client", "client_id", app.cfg.SeedClientID)
	return nil
}

func (app *Application) seedUsers(ctx context.Context) error {
	if app.cfg.SeedUsers == "" {
		return nil
	}

	empty, err := app.db.Users().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("failed to check user table: %w", err)
	}
	if !empty {
		return nil
	}

	for _, entry := range strings.Split(app.cfg.SeedUsers, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("malformed seed user entry %q, want name:password:role", entry)
		}

		hash, err := cryptox.HashSecret(parts[1])
		if err != nil {
			return err
		}
		err = app.db.Users().CreateUser(ctx, domain.User{
			ID:           idx.New().String(),
			Username:     parts[0],
			PasswordHash: hash,
			Role:         parts[2],
		})
		if err != nil {
			return fmt.Errorf("failed to seed user %q: %w", parts[0], err)
		}
		app.logger.Info("seeded user", "username", parts[0], "role", parts[2])
	}
	return nil
}
