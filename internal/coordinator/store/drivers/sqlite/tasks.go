package sqlite

import (
	"context"
	"database/sql"

	"github.com/caseflow/caseflow/internal/coordinator/domain"
	"github.com/caseflow/caseflow/internal/coordinator/store"
)

type tasksRepo struct {
	db dbtx
}

const taskColumns = `id, process_id, name, candidate_user, candidate_group, assignee, status, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (domain.Task, error) {
	var (
		t         domain.Task
		candUser  sql.NullString
		candGroup sql.NullString
		assignee  sql.NullString
		status    string
	)
	err := row.Scan(
		&t.ID, &t.ProcessID, &t.Name,
		&candUser, &candGroup, &assignee,
		&status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.Task{}, err
	}
	t.CandidateUser = mapNullString(candUser)
	t.CandidateGroup = mapNullString(candGroup)
	t.Assignee = mapNullString(assignee)
	t.Status = domain.TaskStatus(status)
	return t, nil
}

func (r *tasksRepo) CreateTask(ctx context.Context, t domain.Task) error {
	ts := now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, process_id, name, candidate_user, candidate_group, assignee, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProcessID, t.Name,
		mapStringNull(t.CandidateUser), mapStringNull(t.CandidateGroup), mapStringNull(t.Assignee),
		string(t.Status), ts, ts,
	)
	return err
}

func (r *tasksRepo) GetTaskByID(ctx context.Context, id string) (domain.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)

	t, err := scanTask(row)
	if err != nil {
		return domain.Task{}, mapNotFound(err)
	}
	return t, nil
}

func (r *tasksRepo) ListByAssignee(ctx context.Context, userID string) ([]domain.Task, error) {
	return r.list(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE assignee = ? AND status = ?
		 ORDER BY created_at ASC`,
		userID, string(domain.TaskClaimed),
	)
}

func (r *tasksRepo) ListByCandidateUser(ctx context.Context, userID string) ([]domain.Task, error) {
	return r.list(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE candidate_user = ? AND status = ? AND assignee IS NULL
		 ORDER BY created_at ASC`,
		userID, string(domain.TaskOpen),
	)
}

func (r *tasksRepo) ListByCandidateGroup(ctx context.Context, role string) ([]domain.Task, error) {
	return r.list(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE candidate_group = ? AND status = ? AND assignee IS NULL
		 ORDER BY created_at ASC`,
		role, string(domain.TaskOpen),
	)
}

func (r *tasksRepo) list(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Claim is a single conditional UPDATE so two racing claims can never both
// win: the WHERE clause only matches when the task is unassigned or already
// held by the same user. A zero row count is disambiguated afterwards.
func (r *tasksRepo) Claim(ctx context.Context, taskID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET assignee = ?, status = ?, updated_at = ?
		 WHERE id = ? AND status != ? AND (assignee IS NULL OR assignee = ?)`,
		userID, string(domain.TaskClaimed), now(),
		taskID, string(domain.TaskCompleted), userID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	// Lost the race or bad id: look at the task to report which.
	if _, err := r.GetTaskByID(ctx, taskID); err != nil {
		return err
	}
	return store.ErrAlreadyClaimed
}

func (r *tasksRepo) Unclaim(ctx context.Context, taskID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET assignee = NULL, status = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND assignee = ?`,
		string(domain.TaskOpen), now(),
		taskID, string(domain.TaskClaimed), userID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	if _, err := r.GetTaskByID(ctx, taskID); err != nil {
		return err
	}
	return store.ErrNotClaimed
}

func (r *tasksRepo) CompleteTask(ctx context.Context, taskID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(domain.TaskCompleted), now(),
		taskID, string(domain.TaskClaimed),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	if _, err := r.GetTaskByID(ctx, taskID); err != nil {
		return err
	}
	return store.ErrNotClaimed
}
