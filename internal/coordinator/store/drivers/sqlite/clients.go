package sqlite

import (
	"context"
	"time"

	"github.com/caseflow/caseflow/internal/coordinator/domain"
	"github.com/caseflow/caseflow/internal/coordinator/store"
)

type clientsRepo struct {
	db dbtx
}

const clientColumns = `id, name, secret_hash, grant_types, scopes, authorities, access_ttl_seconds, created_at, updated_at`

func scanClient(row interface{ Scan(...any) error }) (domain.Client, error) {
	var (
		c          domain.Client
		grants     string
		scopes     string
		auths      string
		ttlSeconds int64
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.SecretHash,
		&grants, &scopes, &auths, &ttlSeconds,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Client{}, err
	}
	c.GrantTypes = splitSet(grants)
	c.Scopes = splitSet(scopes)
	c.Authorities = splitSet(auths)
	c.AccessTTL = time.Duration(ttlSeconds) * time.Second
	return c, nil
}

func (r *clientsRepo) GetClientByID(ctx context.Context, id string) (domain.Client, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)

	c, err := scanClient(row)
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}
	return c, nil
}

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	ts := now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO clients (id, name, secret_hash, grant_types, scopes, authorities, access_ttl_seconds, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.SecretHash,
		joinSet(c.GrantTypes), joinSet(c.Scopes), joinSet(c.Authorities),
		int64(c.AccessTTL.Seconds()), ts, ts,
	)
	return mapAlreadyExists(err)
}

func (r *clientsRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *clientsRepo) DeleteClient(ctx context.Context, clientID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, clientID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *clientsRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}
