package sqlite

import (
	"context"
	"encoding/json"

	"github.com/caseflow/caseflow/internal/coordinator/domain"
	"github.com/caseflow/caseflow/internal/coordinator/store"
)

type processesRepo struct {
	db dbtx
}

func (r *processesRepo) CreateProcess(ctx context.Context, p domain.ProcessInstance) error {
	vars := p.Variables
	if vars == nil {
		vars = map[string]string{}
	}
	encoded, err := json.Marshal(vars)
	if err != nil {
		return err
	}

	ts := now()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO processes (id, definition_key, business_key, starter_id, variables, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.DefinitionKey, p.BusinessKey, p.StarterID,
		string(encoded), string(p.Status), ts, ts,
	)
	return err
}

func (r *processesRepo) GetProcessByID(ctx context.Context, id string) (domain.ProcessInstance, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, definition_key, business_key, starter_id, variables, status, created_at, updated_at
		 FROM processes WHERE id = ?`, id)

	var (
		p      domain.ProcessInstance
		vars   string
		status string
	)
	err := row.Scan(
		&p.ID, &p.DefinitionKey, &p.BusinessKey, &p.StarterID,
		&vars, &status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.ProcessInstance{}, mapNotFound(err)
	}
	if err := json.Unmarshal([]byte(vars), &p.Variables); err != nil {
		return domain.ProcessInstance{}, err
	}
	p.Status = domain.ProcessStatus(status)
	return p, nil
}

func (r *processesRepo) UpdateProcessStatus(ctx context.Context, id string, status domain.ProcessStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE processes SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), now(), id,
	)
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
